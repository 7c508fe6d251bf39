package patient

import (
	"context"
	"errors"
	"testing"

	"github.com/ehr/gateway/internal/platform/apierror"
	"github.com/ehr/gateway/internal/platform/backend"
	"github.com/ehr/gateway/internal/platform/backend/backendtest"
	"github.com/ehr/gateway/pkg/display"
)

func TestBackendRepo_Search(t *testing.T) {
	fake := backendtest.New(t)
	fake.ReplyData(endpointSearch, []map[string]any{
		{"PatientSSN": "123-45-6789", "PatientName": "SMITH,JOHN", "Sex": "M", "DOB": "2500704", "Age": 74, "Ward": "3A", "Veteran": "Y"},
		{"PatientSSN": "987654321", "PatientName": "DOE,JANE", "AdmitDate": "3240115.143"},
	})

	got, err := NewBackendRepo(fake.Client(nil)).Search(context.Background(), SearchQuery{Name: "SMITH", Ward: "3A"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 patients, got %d", len(got))
	}

	p := got[0]
	if p.SSN != "123456789" || p.Last5 != "S6789" || p.Age != "74" || !p.Veteran {
		t.Errorf("unexpected patient %+v", p)
	}
	if p.DOB != "1950-07-04" {
		t.Errorf("expected FileMan DOB converted, got %q", p.DOB)
	}
	if got[1].Sex != display.NotAvailable || got[1].AdmittedAt != "2024-01-15 14:30" {
		t.Errorf("unexpected defaults %+v", got[1])
	}

	body := fake.Last(endpointSearch)
	if body["PatientName"] != "SMITH" || body["Ward"] != "3A" {
		t.Errorf("unexpected request body %v", body)
	}
	if _, ok := body["Last5"]; ok {
		t.Error("expected unset search fields to be omitted")
	}
}

func TestBackendRepo_Get(t *testing.T) {
	fake := backendtest.New(t)
	fake.ReplyData(endpointDetail, map[string]any{"PatientName": "SMITH,JOHN"})

	p, err := NewBackendRepo(fake.Client(nil)).Get(context.Background(), "123456789")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.SSN != "123456789" || p.Name != "SMITH,JOHN" {
		t.Errorf("unexpected patient %+v", p)
	}
	if fake.Last(endpointDetail)[backend.FieldPatientSSN] != "123456789" {
		t.Error("expected PatientSSN in request")
	}
}

func TestBackendRepo_GetNotFound(t *testing.T) {
	fake := backendtest.New(t)
	fake.ReplyData(endpointDetail, nil)

	_, err := NewBackendRepo(fake.Client(nil)).Get(context.Background(), "123456789")
	var nf *apierror.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}
