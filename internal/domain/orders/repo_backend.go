package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ehr/gateway/internal/platform/backend"
	"github.com/ehr/gateway/pkg/display"
)

const (
	endpointMedList = "apiOrdMedList.sh"
	endpointLabList = "apiOrdLabList.sh"
	endpointRadList = "apiOrdRadListNew.sh"
	endpointRadSave = "apiOrdRadSave.sh"
)

// urgencyCodes are the backend's radiology urgency codes.
var urgencyCodes = map[string]string{"stat": "1", "urgent": "2", "routine": "9"}

type medicationRow struct {
	IEN      backend.Flex `json:"OrderIEN"`
	Drug     string       `json:"DrugName"`
	Dose     string       `json:"Dosage"`
	Route    string       `json:"Route"`
	Schedule string       `json:"Schedule"`
	Status   string       `json:"Status"`
	Start    string       `json:"StartDate"`
	Stop     string       `json:"StopDate"`
	Provider string       `json:"Provider"`
}

type labRow struct {
	IEN       backend.Flex `json:"OrderIEN"`
	Test      string       `json:"TestName"`
	Specimen  string       `json:"Specimen"`
	Status    string       `json:"Status"`
	Collected string       `json:"CollectionDate"`
	Result    backend.Flex `json:"Result"`
	Units     string       `json:"Units"`
	RefRange  string       `json:"RefRange"`
	Flag      string       `json:"AbnormalFlag"`
}

type radiologyRow struct {
	IEN       backend.Flex `json:"OrderIEN"`
	Procedure string       `json:"Procedure"`
	Status    string       `json:"Status"`
	Urgency   string       `json:"Urgency"`
	Requested string       `json:"RequestDate"`
	ExamDate  string       `json:"ExamDate"`
	Provider  string       `json:"Provider"`
	Report    backend.Text `json:"Report"`
}

func lower(s string) string {
	return display.NA(strings.ToLower(strings.TrimSpace(s)))
}

// urgencyName maps a backend urgency code or word to routine/urgent/stat.
func urgencyName(s string) string {
	s = strings.TrimSpace(s)
	for name, code := range urgencyCodes {
		if s == code || strings.EqualFold(s, name) {
			return name
		}
	}
	return lower(s)
}

// abnormal reports lab flags such as H, L, HH, LL, A or "*".
func abnormal(flag string) bool {
	flag = strings.TrimSpace(flag)
	return flag != "" && !strings.EqualFold(flag, "N")
}

type backendRepo struct {
	client *backend.Client
}

func NewBackendRepo(client *backend.Client) Repository {
	return &backendRepo{client: client}
}

func (r *backendRepo) ListMedications(ctx context.Context, ssn string) ([]Medication, error) {
	var rows []medicationRow
	if err := r.client.Fetch(ctx, endpointMedList, backend.Params{backend.FieldPatientSSN: ssn}, &rows); err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	out := make([]Medication, 0, len(rows))
	for _, row := range rows {
		out = append(out, Medication{
			ID:       string(row.IEN),
			Name:     display.NA(row.Drug),
			Dose:     display.NA(row.Dose),
			Route:    display.NA(row.Route),
			Schedule: display.NA(row.Schedule),
			Status:   lower(row.Status),
			Start:    display.Date(row.Start),
			Stop:     display.Date(row.Stop),
			Provider: display.NA(row.Provider),
		})
	}
	return out, nil
}

func (r *backendRepo) ListLabs(ctx context.Context, ssn string) ([]LabOrder, error) {
	var rows []labRow
	if err := r.client.Fetch(ctx, endpointLabList, backend.Params{backend.FieldPatientSSN: ssn}, &rows); err != nil {
		return nil, fmt.Errorf("list labs: %w", err)
	}
	out := make([]LabOrder, 0, len(rows))
	for _, row := range rows {
		out = append(out, LabOrder{
			ID:          string(row.IEN),
			Test:        display.NA(row.Test),
			Specimen:    display.NA(row.Specimen),
			Status:      lower(row.Status),
			CollectedAt: display.Date(row.Collected),
			Result:      display.NA(string(row.Result)),
			Units:       display.NA(row.Units),
			RefRange:    display.NA(row.RefRange),
			Abnormal:    abnormal(row.Flag),
		})
	}
	return out, nil
}

func (r *backendRepo) ListRadiology(ctx context.Context, ssn string) ([]RadiologyEntry, error) {
	var rows []radiologyRow
	if err := r.client.Fetch(ctx, endpointRadList, backend.Params{backend.FieldPatientSSN: ssn}, &rows); err != nil {
		return nil, fmt.Errorf("list radiology: %w", err)
	}
	out := make([]RadiologyEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, RadiologyEntry{
			ID:          string(row.IEN),
			Procedure:   display.NA(row.Procedure),
			Status:      lower(row.Status),
			Urgency:     urgencyName(row.Urgency),
			RequestedAt: display.Date(row.Requested),
			ExamDate:    display.Date(row.ExamDate),
			Provider:    display.NA(row.Provider),
			Report:      strings.TrimSpace(string(row.Report)),
		})
	}
	return out, nil
}

func (r *backendRepo) PlaceRadiology(ctx context.Context, ssn string, o NewRadiologyOrder) (string, error) {
	params := backend.Params{
		backend.FieldPatientSSN: ssn,
		"Procedure":             o.Procedure,
		"ReasonForStudy":        o.Reason,
		"Urgency":               urgencyCodes[o.Urgency],
	}
	if o.Transport != "" {
		params["Transport"] = o.Transport
	}
	if o.Comment != "" {
		params["Comment"] = o.Comment
	}

	var saved struct {
		IEN backend.Flex `json:"OrderIEN"`
	}
	if err := r.client.Call(ctx, endpointRadSave, params, &saved); err != nil {
		return "", fmt.Errorf("place radiology order: %w", err)
	}
	if err := r.client.InvalidatePatient(ctx, ssn); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("radiology order placed; patient cache not invalidated")
	}
	return string(saved.IEN), nil
}
