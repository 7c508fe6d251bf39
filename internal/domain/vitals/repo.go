package vitals

import (
	"context"
	"time"
)

type Repository interface {
	List(ctx context.Context, ssn string) ([]Vital, error)
	Record(ctx context.Context, ssn string, takenAt time.Time, m []Measurement) error
	ListIntakeOutput(ctx context.Context, ssn string) ([]IntakeOutputRecord, error)
	RecordIntakeOutput(ctx context.Context, ssn string, r NewIntakeOutput) (string, error)
}
