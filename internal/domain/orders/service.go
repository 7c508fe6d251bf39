package orders

import (
	"context"
	"strings"
	"time"

	"github.com/ehr/gateway/internal/platform/apierror"
	"github.com/ehr/gateway/pkg/display"
)

// Transport modes accepted on radiology orders.
var transports = map[string]bool{"ambulatory": true, "wheelchair": true, "stretcher": true, "portable": true}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// ListMedications returns medication orders, optionally restricted to one
// status (active, pending, discontinued, expired, ...).
func (s *Service) ListMedications(ctx context.Context, ssn, status string) ([]Medication, error) {
	items, err := s.repo.ListMedications(ctx, ssn)
	status = strings.ToLower(strings.TrimSpace(status))
	if err != nil || status == "" || status == "all" {
		return items, err
	}
	out := make([]Medication, 0, len(items))
	for _, m := range items {
		if m.Status == status {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Service) ListLabs(ctx context.Context, ssn string) ([]LabOrder, error) {
	return s.repo.ListLabs(ctx, ssn)
}

func (s *Service) ListRadiology(ctx context.Context, ssn string) ([]RadiologyEntry, error) {
	return s.repo.ListRadiology(ctx, ssn)
}

func (s *Service) PlaceRadiology(ctx context.Context, ssn string, o NewRadiologyOrder) (*RadiologyEntry, error) {
	o.Procedure = strings.ToUpper(strings.TrimSpace(o.Procedure))
	o.Reason = strings.TrimSpace(o.Reason)
	o.Urgency = strings.ToLower(strings.TrimSpace(o.Urgency))
	o.Transport = strings.ToLower(strings.TrimSpace(o.Transport))
	o.Comment = strings.TrimSpace(o.Comment)

	if o.Procedure == "" {
		return nil, apierror.Invalid("procedure", "is required")
	}
	if o.Reason == "" {
		return nil, apierror.Invalid("reason", "is required")
	}
	if len(o.Reason) > 64 {
		return nil, apierror.Invalid("reason", "must be at most 64 characters")
	}
	if o.Urgency == "" {
		o.Urgency = "routine"
	}
	if _, ok := urgencyCodes[o.Urgency]; !ok {
		return nil, apierror.Invalid("urgency", "must be routine, urgent or stat")
	}
	if o.Transport != "" && !transports[o.Transport] {
		return nil, apierror.Invalid("transport", "must be ambulatory, wheelchair, stretcher or portable")
	}

	id, err := s.repo.PlaceRadiology(ctx, ssn, o)
	if err != nil {
		return nil, err
	}
	return &RadiologyEntry{
		ID:          id,
		Procedure:   o.Procedure,
		Status:      "pending",
		Urgency:     o.Urgency,
		RequestedAt: s.now().Format(display.DateLayout),
		ExamDate:    display.NotAvailable,
		Provider:    display.NotAvailable,
	}, nil
}
