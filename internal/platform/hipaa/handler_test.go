package hipaa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ehr/gateway/internal/platform/middleware"
)

type failingSearcher struct{}

func (failingSearcher) Search(context.Context, AccessQuery) ([]AccessRecord, int, error) {
	return nil, 0, errors.New("db down")
}

func accessLogContext(ssn, query string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?"+query, nil), rec)
	c.SetPath("/api/v1/patients/:ssn/access-log")
	c.SetParamNames("ssn")
	c.SetParamValues(ssn)
	return c, rec
}

func TestHandler_PatientAccess(t *testing.T) {
	log := NewMemoryAccessLog(NewHasher([]byte("k")), 0)
	log.RecordAccess(context.Background(), middleware.AuditEntry{DUZ: "520", PatientSSN: "123456789", Resource: "notes"})
	log.RecordAccess(context.Background(), middleware.AuditEntry{DUZ: "521", PatientSSN: "987654321"})

	c, rec := accessLogContext("123-45-6789", "")
	if err := NewHandler(log).PatientAccess(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body struct {
		Data  []AccessRecord `json:"data"`
		Total int            `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 1 || body.Data[0].DUZ != "520" || body.Data[0].PatientLast4 != "6789" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestHandler_PatientAccessValidation(t *testing.T) {
	h := NewHandler(NewMemoryAccessLog(NewHasher(nil), 0))

	c, _ := accessLogContext("12345", "")
	if he, ok := h.PatientAccess(c).(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad ssn")
	}

	c, _ = accessLogContext("123456789", "since=yesterday")
	if he, ok := h.PatientAccess(c).(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad since")
	}
}

func TestHandler_PatientAccessStoreError(t *testing.T) {
	c, _ := accessLogContext("123456789", "since=2024-01-01")
	he, ok := NewHandler(failingSearcher{}).PatientAccess(c).(*echo.HTTPError)
	if !ok || he.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %v", he)
	}
}
