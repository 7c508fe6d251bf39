package notes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func patientContext(method, target, body, ssn string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("ssn")
	c.SetParamValues(ssn)
	return c, rec
}

func TestHandler_ListNotesShaping(t *testing.T) {
	svc, repo := newTestService()
	repo.notes["123456789"] = []ClinicalNote{
		{ID: "1", Title: "NURSING NOTE", Date: "2024-01-10 08:00"},
		{ID: "2", Title: "PRIMARY CARE NOTE", Date: "2024-01-15 14:30"},
		{ID: "3", Title: "NURSING NOTE", Date: "2024-01-12 09:00"},
	}
	h := NewHandler(svc)

	c, rec := patientContext(http.MethodGet, "/?q=nursing&sort=date&order=desc", "", "123-45-6789")
	if err := h.ListNotes(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data  []ClinicalNote `json:"data"`
		Total int            `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Total != 2 || body.Data[0].ID != "3" || body.Data[1].ID != "1" {
		t.Errorf("unexpected page %+v", body)
	}
}

func TestHandler_ListNotesEmptyIsArray(t *testing.T) {
	svc, _ := newTestService()
	c, rec := patientContext(http.MethodGet, "/", "", "123456789")
	if err := NewHandler(svc).ListNotes(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestHandler_CreateNote(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)

	c, rec := patientContext(http.MethodPost, "/", `{"title":"NOTE","text":"Seen today."}`, "123456789")
	if err := h.CreateNote(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	c, _ = patientContext(http.MethodPost, "/", `{"title":"NOTE"}`, "123456789")
	if he, ok := h.CreateNote(c).(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", he)
	}
}

func TestHandler_GetNoteNotFound(t *testing.T) {
	svc, _ := newTestService()
	c, _ := patientContext(http.MethodGet, "/", "", "123456789")
	c.SetParamNames("ssn", "id")
	c.SetParamValues("123456789", "999")
	if he, ok := NewHandler(svc).GetNote(c).(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", he)
	}
}
