package vitals

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ehr/gateway/internal/platform/apierror"
	"github.com/ehr/gateway/pkg/display"
)

// defaultUnits holds the unit recorded when a measurement omits one.
var defaultUnits = map[string]string{
	"BP":  "mmHg",
	"T":   "F",
	"P":   "/min",
	"R":   "/min",
	"PO2": "%",
	"HT":  "in",
	"WT":  "lb",
	"PN":  "",
}

// ioCategories lists the accepted categories per intake/output kind.
var ioCategories = map[string]map[string]bool{
	"intake": {"oral": true, "iv": true, "tube": true, "blood": true, "other": true},
	"output": {"urine": true, "stool": true, "emesis": true, "drain": true, "ng": true, "other": true},
}

const (
	// maxBatch is one reading of each known vital type.
	maxBatch    = 8
	maxAmountML = 10000
	// clockSkew tolerates client clocks slightly ahead of ours.
	clockSkew = 5 * time.Minute
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns vitals, optionally restricted to one type.
func (s *Service) List(ctx context.Context, ssn, typ string) ([]Vital, error) {
	typ = strings.ToUpper(strings.TrimSpace(typ))
	if _, ok := defaultUnits[typ]; typ != "" && !ok {
		return nil, apierror.Invalid("type", "unknown vital type "+typ)
	}
	items, err := s.repo.List(ctx, ssn)
	if err != nil || typ == "" {
		return items, err
	}
	out := make([]Vital, 0, len(items))
	for _, v := range items {
		if v.Type == typ {
			out = append(out, v)
		}
	}
	return out, nil
}

// Latest returns the most recent measurement of each type, ordered by type.
func Latest(items []Vital) []Vital {
	latest := make(map[string]Vital)
	for _, v := range items {
		cur, ok := latest[v.Type]
		if !ok || newer(v.TakenAt, cur.TakenAt) {
			latest[v.Type] = v
		}
	}
	out := make([]Vital, 0, len(latest))
	for _, v := range latest {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// newer reports whether timestamp a is later than b. Unknown times never
// win; when either cannot be parsed the earlier row in backend order stays.
func newer(a, b string) bool {
	ta, okA := display.ParseTime(a)
	tb, okB := display.ParseTime(b)
	if okA && okB {
		return ta.After(tb)
	}
	if a == display.NotAvailable {
		return false
	}
	return b == display.NotAvailable
}

func (s *Service) Record(ctx context.Context, ssn string, req NewVitals) ([]Vital, error) {
	if len(req.Measurements) == 0 {
		return nil, apierror.Invalid("measurements", "at least one is required")
	}
	if len(req.Measurements) > maxBatch {
		return nil, apierror.Invalid("measurements", "too many in one request")
	}
	takenAt, err := s.when(req.TakenAt, "taken_at")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	ms := make([]Measurement, 0, len(req.Measurements))
	for _, m := range req.Measurements {
		m, err := normalize(m)
		if err != nil {
			return nil, err
		}
		if seen[m.Type] {
			return nil, apierror.Invalid("measurements", "duplicate type "+m.Type)
		}
		seen[m.Type] = true
		ms = append(ms, m)
	}

	if err := s.repo.Record(ctx, ssn, takenAt, ms); err != nil {
		return nil, err
	}
	out := make([]Vital, 0, len(ms))
	for _, m := range ms {
		out = append(out, Vital{
			Type:      m.Type,
			Value:     m.Value,
			Units:     m.Units,
			TakenAt:   takenAt.Format(display.DateLayout),
			EnteredBy: display.NotAvailable,
		})
	}
	return out, nil
}

func normalize(m Measurement) (Measurement, error) {
	m.Type = strings.ToUpper(strings.TrimSpace(m.Type))
	m.Value = strings.TrimSpace(m.Value)
	m.Units = strings.TrimSpace(m.Units)

	units, ok := defaultUnits[m.Type]
	if !ok {
		return m, apierror.Invalid("type", "unknown vital type "+strconv.Quote(m.Type))
	}
	if m.Units == "" {
		m.Units = units
	}
	if m.Value == "" {
		return m, apierror.Invalid(m.Type, "value is required")
	}

	switch m.Type {
	case "BP":
		sys, dia, ok := strings.Cut(m.Value, "/")
		s, err1 := strconv.Atoi(sys)
		d, err2 := strconv.Atoi(dia)
		if !ok || err1 != nil || err2 != nil || s <= 0 || d <= 0 {
			return m, apierror.Invalid("BP", "must be systolic/diastolic, e.g. 120/80")
		}
		if d >= s {
			return m, apierror.Invalid("BP", "diastolic must be below systolic")
		}
	case "PN":
		n, err := strconv.Atoi(m.Value)
		if err != nil || n < 0 || n > 10 {
			return m, apierror.Invalid("PN", "must be a whole number from 0 to 10")
		}
	default:
		f, err := strconv.ParseFloat(m.Value, 64)
		if err != nil || f <= 0 {
			return m, apierror.Invalid(m.Type, "must be a positive number")
		}
	}
	return m, nil
}

// when defaults t to now and rejects times in the future.
func (s *Service) when(t *time.Time, field string) (time.Time, error) {
	now := s.now()
	if t == nil || t.IsZero() {
		return now, nil
	}
	if t.After(now.Add(clockSkew)) {
		return time.Time{}, apierror.Invalid(field, "must not be in the future")
	}
	return *t, nil
}

// ListIntakeOutput returns intake/output records, optionally one kind only.
func (s *Service) ListIntakeOutput(ctx context.Context, ssn, kind string) ([]IntakeOutputRecord, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if _, ok := ioCategories[kind]; kind != "" && !ok {
		return nil, apierror.Invalid("kind", "must be intake or output")
	}
	items, err := s.repo.ListIntakeOutput(ctx, ssn)
	if err != nil || kind == "" {
		return items, err
	}
	out := make([]IntakeOutputRecord, 0, len(items))
	for _, r := range items {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Service) RecordIntakeOutput(ctx context.Context, ssn string, req NewIntakeOutput) (*IntakeOutputRecord, error) {
	req.Kind = strings.ToLower(strings.TrimSpace(req.Kind))
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))

	categories, ok := ioCategories[req.Kind]
	if !ok {
		return nil, apierror.Invalid("kind", "must be intake or output")
	}
	if !categories[req.Category] {
		return nil, apierror.Invalid("category", "not a valid "+req.Kind+" category")
	}
	if req.AmountML <= 0 {
		return nil, apierror.Invalid("amount_ml", "must be positive")
	}
	if req.AmountML > maxAmountML {
		return nil, apierror.Invalid("amount_ml", "exceeds "+strconv.Itoa(maxAmountML)+" mL")
	}
	at, err := s.when(req.RecordedAt, "recorded_at")
	if err != nil {
		return nil, err
	}
	req.RecordedAt = &at

	id, err := s.repo.RecordIntakeOutput(ctx, ssn, req)
	if err != nil {
		return nil, err
	}
	return &IntakeOutputRecord{
		ID:         id,
		Kind:       req.Kind,
		Category:   req.Category,
		AmountML:   req.AmountML,
		RecordedAt: at.Format(display.DateLayout),
		Shift:      display.NotAvailable,
		EnteredBy:  display.NotAvailable,
	}, nil
}
