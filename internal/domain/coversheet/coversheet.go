// Package coversheet assembles the patient cover sheet from several clinical
// sections fetched concurrently.
package coversheet

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ehr/gateway/internal/domain/allergies"
	"github.com/ehr/gateway/internal/domain/orders"
	"github.com/ehr/gateway/internal/domain/patient"
	"github.com/ehr/gateway/internal/domain/problems"
	"github.com/ehr/gateway/internal/domain/vitals"
	"github.com/ehr/gateway/internal/platform/backend"
)

// Section names used as keys of Summary.Errors.
const (
	SectionAllergies   = "allergies"
	SectionProblems    = "problems"
	SectionVitals      = "vitals"
	SectionMedications = "medications"
)

type PatientGetter interface {
	Get(ctx context.Context, ssn string) (*patient.Patient, error)
}

type AllergyLister interface {
	List(ctx context.Context, ssn string) ([]allergies.Allergy, error)
}

type ProblemLister interface {
	ListProblems(ctx context.Context, ssn, status string) ([]problems.Problem, error)
}

type VitalLister interface {
	List(ctx context.Context, ssn, typ string) ([]vitals.Vital, error)
}

type MedicationLister interface {
	ListMedications(ctx context.Context, ssn, status string) ([]orders.Medication, error)
}

// Sources are the services the cover sheet reads from.
type Sources struct {
	Patients    PatientGetter
	Allergies   AllergyLister
	Problems    ProblemLister
	Vitals      VitalLister
	Medications MedicationLister
}

// Summary is the cover sheet. A section that failed is empty and its reason
// is in Errors.
type Summary struct {
	Patient     *patient.Patient    `json:"patient"`
	Allergies   []allergies.Allergy `json:"allergies"`
	Problems    []problems.Problem  `json:"problems"`
	Vitals      []vitals.Vital      `json:"vitals"`
	Medications []orders.Medication `json:"medications"`
	Errors      map[string]string   `json:"errors,omitempty"`
}

type Service struct {
	src Sources
}

func NewService(src Sources) *Service {
	return &Service{src: src}
}

// Get fetches every section concurrently. Demographics are required: if they
// fail the whole call fails and outstanding sections are canceled.
func (s *Service) Get(ctx context.Context, ssn string) (*Summary, error) {
	sum := &Summary{
		Allergies:   []allergies.Allergy{},
		Problems:    []problems.Problem{},
		Vitals:      []vitals.Vital{},
		Medications: []orders.Medication{},
	}
	var mu sync.Mutex
	fail := func(section string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if sum.Errors == nil {
			sum.Errors = make(map[string]string)
		}
		sum.Errors[section] = reason(err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.src.Patients.Get(gctx, ssn)
		if err != nil {
			return err
		}
		sum.Patient = p
		return nil
	})
	g.Go(func() error {
		items, err := s.src.Allergies.List(gctx, ssn)
		if err != nil {
			fail(SectionAllergies, err)
			return nil
		}
		sum.Allergies = items
		return nil
	})
	g.Go(func() error {
		items, err := s.src.Problems.ListProblems(gctx, ssn, "active")
		if err != nil {
			fail(SectionProblems, err)
			return nil
		}
		sum.Problems = items
		return nil
	})
	g.Go(func() error {
		items, err := s.src.Vitals.List(gctx, ssn, "")
		if err != nil {
			fail(SectionVitals, err)
			return nil
		}
		sum.Vitals = vitals.Latest(items)
		return nil
	})
	g.Go(func() error {
		items, err := s.src.Medications.ListMedications(gctx, ssn, "active")
		if err != nil {
			fail(SectionMedications, err)
			return nil
		}
		sum.Medications = items
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sum, nil
}

// reason is the text reported for a failed section.
func reason(err error) string {
	switch {
	case errors.Is(err, backend.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	}
	if be, ok := backend.AsError(err); ok && be.Message != "" {
		return be.Message
	}
	return "unavailable"
}
