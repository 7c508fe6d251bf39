package vitals

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/gateway/internal/platform/backend"
	"github.com/ehr/gateway/pkg/display"
)

const (
	endpointList   = "apiVitalsList.sh"
	endpointSave   = "apiVitalsSave.sh"
	endpointIOList = "apiIOList.sh"
	endpointIOSave = "apiIOSave.sh"
)

type vitalRow struct {
	IEN       backend.Flex `json:"VitalIEN"`
	Type      string       `json:"VitalType"`
	Value     backend.Flex `json:"Rate"`
	Units     string       `json:"Units"`
	TakenAt   string       `json:"DateTaken"`
	EnteredBy string       `json:"EnteredBy"`
}

type ioRow struct {
	IEN       backend.Flex `json:"IOIEN"`
	Type      string       `json:"IOType"` // I or O
	Category  string       `json:"Category"`
	Amount    backend.Flex `json:"Amount"`
	TakenAt   string       `json:"DateTaken"`
	Shift     string       `json:"Shift"`
	EnteredBy string       `json:"EnteredBy"`
}

type backendRepo struct {
	client *backend.Client
}

func NewBackendRepo(client *backend.Client) Repository {
	return &backendRepo{client: client}
}

func (r *backendRepo) List(ctx context.Context, ssn string) ([]Vital, error) {
	var rows []vitalRow
	if err := r.client.Fetch(ctx, endpointList, backend.Params{backend.FieldPatientSSN: ssn}, &rows); err != nil {
		return nil, fmt.Errorf("list vitals: %w", err)
	}
	out := make([]Vital, 0, len(rows))
	for _, row := range rows {
		typ := strings.ToUpper(strings.TrimSpace(row.Type))
		out = append(out, Vital{
			ID:        string(row.IEN),
			Type:      display.NA(typ),
			Value:     display.NA(string(row.Value)),
			Units:     display.Or(strings.TrimSpace(row.Units), defaultUnits[typ]),
			TakenAt:   display.Date(row.TakenAt),
			EnteredBy: display.NA(row.EnteredBy),
		})
	}
	return out, nil
}

func (r *backendRepo) Record(ctx context.Context, ssn string, takenAt time.Time, ms []Measurement) error {
	entries := make([]map[string]string, 0, len(ms))
	for _, m := range ms {
		entries = append(entries, map[string]string{"VitalType": m.Type, "Rate": m.Value, "Units": m.Units})
	}
	params := backend.Params{
		backend.FieldPatientSSN: ssn,
		"DateTaken":             display.ToFileMan(takenAt),
		"Vitals":                entries,
	}
	if err := r.client.Call(ctx, endpointSave, params, nil); err != nil {
		return fmt.Errorf("save vitals: %w", err)
	}
	if err := r.client.InvalidatePatient(ctx, ssn); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("vitals saved; patient cache not invalidated")
	}
	return nil
}

func (r *backendRepo) ListIntakeOutput(ctx context.Context, ssn string) ([]IntakeOutputRecord, error) {
	var rows []ioRow
	if err := r.client.Fetch(ctx, endpointIOList, backend.Params{backend.FieldPatientSSN: ssn}, &rows); err != nil {
		return nil, fmt.Errorf("list intake/output: %w", err)
	}
	out := make([]IntakeOutputRecord, 0, len(rows))
	for _, row := range rows {
		amount, _ := strconv.ParseFloat(string(row.Amount), 64)
		kind := display.NotAvailable
		switch strings.ToUpper(strings.TrimSpace(row.Type)) {
		case "I", "INTAKE":
			kind = "intake"
		case "O", "OUTPUT":
			kind = "output"
		}
		out = append(out, IntakeOutputRecord{
			ID:         string(row.IEN),
			Kind:       kind,
			Category:   display.NA(strings.ToLower(strings.TrimSpace(row.Category))),
			AmountML:   amount,
			RecordedAt: display.Date(row.TakenAt),
			Shift:      display.NA(row.Shift),
			EnteredBy:  display.NA(row.EnteredBy),
		})
	}
	return out, nil
}

func (r *backendRepo) RecordIntakeOutput(ctx context.Context, ssn string, rec NewIntakeOutput) (string, error) {
	params := backend.Params{
		backend.FieldPatientSSN: ssn,
		"IOType":                strings.ToUpper(rec.Kind[:1]),
		"Category":              strings.ToUpper(rec.Category),
		"Amount":                strconv.FormatFloat(rec.AmountML, 'f', -1, 64),
		"DateTaken":             display.ToFileMan(*rec.RecordedAt),
	}
	var saved struct {
		IEN backend.Flex `json:"IOIEN"`
	}
	if err := r.client.Call(ctx, endpointIOSave, params, &saved); err != nil {
		return "", fmt.Errorf("save intake/output: %w", err)
	}
	if err := r.client.InvalidatePatient(ctx, ssn); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("intake/output saved; patient cache not invalidated")
	}
	return string(saved.IEN), nil
}
