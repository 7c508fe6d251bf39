package patient

import (
	"context"
	"errors"
	"strings"

	"github.com/ehr/gateway/internal/platform/apierror"
	"github.com/ehr/gateway/pkg/display"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Search finds patients by text and/or ward. Text is a full SSN, a last-5
// identifier (A1234) or a name fragment of at least two characters.
func (s *Service) Search(ctx context.Context, text, ward string) ([]Patient, error) {
	text = strings.TrimSpace(text)
	ward = strings.TrimSpace(ward)
	if text == "" && ward == "" {
		return nil, apierror.Invalid("q", "q or ward is required")
	}

	if ssn, ok := display.NormalizeSSN(text); ok {
		p, err := s.repo.Get(ctx, ssn)
		var nf *apierror.NotFoundError
		if errors.As(err, &nf) {
			return []Patient{}, nil
		}
		if err != nil {
			return nil, err
		}
		if ward != "" && !strings.EqualFold(p.Ward, ward) {
			return []Patient{}, nil
		}
		return []Patient{*p}, nil
	}

	q := SearchQuery{Ward: strings.ToUpper(ward)}
	switch {
	case text == "":
	case display.IsLast5(text):
		q.Last5 = strings.ToUpper(text)
	case len(text) < 2:
		return nil, apierror.Invalid("q", "must be at least 2 characters")
	default:
		// The backend matches names in upper case, LAST,FIRST.
		q.Name = strings.ToUpper(text)
	}
	return s.repo.Search(ctx, q)
}

func (s *Service) Get(ctx context.Context, ssn string) (*Patient, error) {
	return s.repo.Get(ctx, ssn)
}
