package patient

import "context"

type Repository interface {
	Search(ctx context.Context, q SearchQuery) ([]Patient, error)
	// Get returns apierror.NotFound when the backend has no such patient.
	Get(ctx context.Context, ssn string) (*Patient, error)
}
