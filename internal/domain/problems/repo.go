package problems

import "context"

type Repository interface {
	ListProblems(ctx context.Context, ssn string) ([]Problem, error)
	CreateProblem(ctx context.Context, ssn string, p NewProblem) (string, error)
	ListDiagnoses(ctx context.Context, ssn string) ([]Diagnosis, error)
}
