package orders

import "context"

type Repository interface {
	ListMedications(ctx context.Context, ssn string) ([]Medication, error)
	ListLabs(ctx context.Context, ssn string) ([]LabOrder, error)
	ListRadiology(ctx context.Context, ssn string) ([]RadiologyEntry, error)
	PlaceRadiology(ctx context.Context, ssn string, o NewRadiologyOrder) (string, error)
}
