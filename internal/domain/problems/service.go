package problems

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/ehr/gateway/internal/platform/apierror"
	"github.com/ehr/gateway/pkg/display"
)

// icdPattern accepts ICD-10-CM (E11.9) and ICD-9-CM (250.00, V45.81, E880.9) codes.
var icdPattern = regexp.MustCompile(`^([A-Z][0-9][0-9A-Z](\.[0-9A-Z]{1,4})?|[0-9]{3}(\.[0-9]{1,2})?|E[0-9]{3}(\.[0-9])?)$`)

var statusFilters = map[string]bool{"": true, "all": true, "active": true, "inactive": true}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// ListProblems returns the problem list filtered by status
// (active, inactive, or all).
func (s *Service) ListProblems(ctx context.Context, ssn, status string) ([]Problem, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !statusFilters[status] {
		return nil, apierror.Invalid("status", "must be active, inactive or all")
	}
	items, err := s.repo.ListProblems(ctx, ssn)
	if err != nil || status == "" || status == "all" {
		return items, err
	}
	out := make([]Problem, 0, len(items))
	for _, p := range items {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) CreateProblem(ctx context.Context, ssn string, p NewProblem) (*Problem, error) {
	p.Description = strings.TrimSpace(p.Description)
	p.ICDCode = strings.ToUpper(strings.TrimSpace(p.ICDCode))
	p.Status = strings.ToLower(strings.TrimSpace(p.Status))
	p.Onset = strings.TrimSpace(p.Onset)

	if p.Description == "" {
		return nil, apierror.Invalid("description", "is required")
	}
	if p.ICDCode == "" {
		return nil, apierror.Invalid("icd_code", "is required")
	}
	if !icdPattern.MatchString(p.ICDCode) {
		return nil, apierror.Invalid("icd_code", "is not a valid ICD code")
	}
	if p.Status == "" {
		p.Status = "active"
	}
	if p.Status != "active" && p.Status != "inactive" {
		return nil, apierror.Invalid("status", "must be active or inactive")
	}
	if p.Onset != "" {
		t, err := time.Parse(display.DayLayout, p.Onset)
		if err != nil {
			return nil, apierror.Invalid("onset", "must be YYYY-MM-DD")
		}
		if t.After(s.now()) {
			return nil, apierror.Invalid("onset", "must not be in the future")
		}
	}

	id, err := s.repo.CreateProblem(ctx, ssn, p)
	if err != nil {
		return nil, err
	}
	return &Problem{
		ID:          id,
		Description: p.Description,
		ICDCode:     p.ICDCode,
		Status:      p.Status,
		Onset:       display.Or(p.Onset, display.NotAvailable),
		RecordedBy:  display.NotAvailable,
	}, nil
}

func (s *Service) ListDiagnoses(ctx context.Context, ssn string) ([]Diagnosis, error) {
	return s.repo.ListDiagnoses(ctx, ssn)
}
