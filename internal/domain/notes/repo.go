package notes

import "context"

type NoteRepository interface {
	List(ctx context.Context, ssn string) ([]ClinicalNote, error)
	Get(ctx context.Context, ssn, id string) (*ClinicalNote, error)
	// Create returns the id the backend assigned.
	Create(ctx context.Context, ssn string, n NewNote) (string, error)
}

type DischargeSummaryRepository interface {
	List(ctx context.Context, ssn string) ([]DischargeSummary, error)
	Get(ctx context.Context, ssn, id string) (*DischargeSummary, error)
}
