package problems

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/gateway/internal/platform/backend"
	"github.com/ehr/gateway/pkg/display"
)

const (
	endpointProblemList = "apiProbList.sh"
	endpointProblemSave = "apiProbSave.sh"
	endpointDiagList    = "apiDiagList.sh"
)

type problemRow struct {
	IEN        backend.Flex `json:"ProblemIEN"`
	Text       string       `json:"ProblemText"`
	ICD        string       `json:"ICDCode"`
	Status     string       `json:"Status"`
	Onset      string       `json:"OnsetDate"`
	RecordedBy string       `json:"RecordedBy"`
}

type diagnosisRow struct {
	IEN      backend.Flex `json:"DiagIEN"`
	Text     string       `json:"Diagnosis"`
	ICD      string       `json:"ICDCode"`
	Primary  string       `json:"Primary"`
	Date     string       `json:"VisitDate"`
	Provider string       `json:"Provider"`
}

// statusName maps the backend's status codes to list filter values.
func statusName(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A", "ACTIVE":
		return "active"
	case "I", "INACTIVE":
		return "inactive"
	case "":
		return display.NotAvailable
	}
	return strings.ToLower(strings.TrimSpace(s))
}

type backendRepo struct {
	client *backend.Client
}

func NewBackendRepo(client *backend.Client) Repository {
	return &backendRepo{client: client}
}

func (r *backendRepo) ListProblems(ctx context.Context, ssn string) ([]Problem, error) {
	var rows []problemRow
	if err := r.client.Fetch(ctx, endpointProblemList, backend.Params{backend.FieldPatientSSN: ssn}, &rows); err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	out := make([]Problem, 0, len(rows))
	for _, row := range rows {
		out = append(out, Problem{
			ID:          string(row.IEN),
			Description: display.NA(row.Text),
			ICDCode:     display.NA(row.ICD),
			Status:      statusName(row.Status),
			Onset:       display.Date(row.Onset),
			RecordedBy:  display.NA(row.RecordedBy),
		})
	}
	return out, nil
}

func (r *backendRepo) CreateProblem(ctx context.Context, ssn string, p NewProblem) (string, error) {
	status := "A"
	if p.Status == "inactive" {
		status = "I"
	}
	params := backend.Params{
		backend.FieldPatientSSN: ssn,
		"ProblemText":           p.Description,
		"ICDCode":               p.ICDCode,
		"Status":                status,
	}
	if p.Onset != "" {
		// Validated by the service.
		t, _ := time.Parse(display.DayLayout, p.Onset)
		params["OnsetDate"] = display.ToFileMan(t)
	}

	var saved struct {
		IEN backend.Flex `json:"ProblemIEN"`
	}
	if err := r.client.Call(ctx, endpointProblemSave, params, &saved); err != nil {
		return "", fmt.Errorf("save problem: %w", err)
	}
	if err := r.client.InvalidatePatient(ctx, ssn); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("problem saved; patient cache not invalidated")
	}
	return string(saved.IEN), nil
}

func (r *backendRepo) ListDiagnoses(ctx context.Context, ssn string) ([]Diagnosis, error) {
	var rows []diagnosisRow
	if err := r.client.Fetch(ctx, endpointDiagList, backend.Params{backend.FieldPatientSSN: ssn}, &rows); err != nil {
		return nil, fmt.Errorf("list diagnoses: %w", err)
	}
	out := make([]Diagnosis, 0, len(rows))
	for _, row := range rows {
		out = append(out, Diagnosis{
			ID:          string(row.IEN),
			Description: display.NA(row.Text),
			ICDCode:     display.NA(row.ICD),
			Primary:     display.Bool(row.Primary) || strings.EqualFold(strings.TrimSpace(row.Primary), "P"),
			Date:        display.Date(row.Date),
			Provider:    display.NA(row.Provider),
		})
	}
	return out, nil
}
