package allergies

import (
	"context"
	"strings"

	"github.com/ehr/gateway/internal/platform/apierror"
	"github.com/ehr/gateway/pkg/display"
)

var severities = map[string]bool{"mild": true, "moderate": true, "severe": true}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, ssn string) ([]Allergy, error) {
	return s.repo.List(ctx, ssn)
}

func (s *Service) Create(ctx context.Context, ssn string, a NewAllergy) (*Allergy, error) {
	a.Allergen = strings.ToUpper(strings.TrimSpace(a.Allergen))
	a.Type = strings.ToLower(strings.TrimSpace(a.Type))
	a.Severity = strings.ToLower(strings.TrimSpace(a.Severity))
	a.Comment = strings.TrimSpace(a.Comment)

	if a.Allergen == "" {
		return nil, apierror.Invalid("allergen", "is required")
	}
	if _, ok := typeCodes[a.Type]; !ok {
		return nil, apierror.Invalid("type", "must be drug, food or other")
	}
	if a.Severity != "" && !severities[a.Severity] {
		return nil, apierror.Invalid("severity", "must be mild, moderate or severe")
	}

	reactions := make([]string, 0, len(a.Reactions))
	for _, r := range a.Reactions {
		r = strings.ToUpper(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if strings.Contains(r, "^") {
			return nil, apierror.Invalid("reactions", "must not contain '^'")
		}
		reactions = append(reactions, r)
	}
	a.Reactions = reactions

	id, err := s.repo.Create(ctx, ssn, a)
	if err != nil {
		return nil, err
	}
	return &Allergy{
		ID:        id,
		Allergen:  a.Allergen,
		Type:      a.Type,
		Reactions: a.Reactions,
		Severity:  display.Or(a.Severity, display.NotAvailable),
		Entered:   display.NotAvailable,
	}, nil
}
