package patient

import (
	"context"
	"fmt"

	"github.com/ehr/gateway/internal/platform/apierror"
	"github.com/ehr/gateway/internal/platform/backend"
	"github.com/ehr/gateway/pkg/display"
)

const (
	endpointSearch = "apiPatSearch.sh"
	endpointDetail = "apiPatDetail.sh"
)

type patientRow struct {
	SSN       backend.Flex `json:"PatientSSN"`
	Name      string       `json:"PatientName"`
	Sex       string       `json:"Sex"`
	DOB       string       `json:"DOB"`
	Age       backend.Flex `json:"Age"`
	Ward      string       `json:"Ward"`
	RoomBed   string       `json:"RoomBed"`
	Attending string       `json:"Attending"`
	AdmitDate string       `json:"AdmitDate"`
	Veteran   string       `json:"Veteran"`
}

func (r patientRow) toPatient() Patient {
	ssn, ok := display.NormalizeSSN(string(r.SSN))
	if !ok {
		ssn = string(r.SSN)
	}
	return Patient{
		SSN:        ssn,
		Name:       display.NA(r.Name),
		Sex:        display.NA(r.Sex),
		DOB:        display.Date(r.DOB),
		Age:        display.NA(string(r.Age)),
		Ward:       display.NA(r.Ward),
		RoomBed:    display.NA(r.RoomBed),
		Attending:  display.NA(r.Attending),
		AdmittedAt: display.Date(r.AdmitDate),
		Last5:      display.Last5(r.Name, ssn),
		Veteran:    display.Bool(r.Veteran),
	}
}

type backendRepo struct {
	client *backend.Client
}

func NewBackendRepo(client *backend.Client) Repository {
	return &backendRepo{client: client}
}

func (r *backendRepo) Search(ctx context.Context, q SearchQuery) ([]Patient, error) {
	params := backend.Params{}
	if q.Name != "" {
		params["PatientName"] = q.Name
	}
	if q.Last5 != "" {
		params["Last5"] = q.Last5
	}
	if q.Ward != "" {
		params["Ward"] = q.Ward
	}

	var rows []patientRow
	if err := r.client.Fetch(ctx, endpointSearch, params, &rows); err != nil {
		return nil, fmt.Errorf("search patients: %w", err)
	}
	out := make([]Patient, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toPatient())
	}
	return out, nil
}

func (r *backendRepo) Get(ctx context.Context, ssn string) (*Patient, error) {
	var row *patientRow
	if err := r.client.Fetch(ctx, endpointDetail, backend.Params{backend.FieldPatientSSN: ssn}, &row); err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	if row == nil || (row.SSN == "" && row.Name == "") {
		return nil, apierror.NotFound("patient")
	}
	p := row.toPatient()
	if p.SSN == "" {
		p.SSN = ssn
	}
	return &p, nil
}
