package allergies

import "context"

type Repository interface {
	List(ctx context.Context, ssn string) ([]Allergy, error)
	Create(ctx context.Context, ssn string, a NewAllergy) (string, error)
}
