package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/labstack/echo/v4"
)

type noteHandler struct{}

func (noteHandler) ListNotes(c echo.Context) error  { return nil }
func (noteHandler) CreateNote(c echo.Context) error { return nil }
func (noteHandler) GetNote(c echo.Context) error    { return nil }

func newTestEcho() *echo.Echo {
	e := echo.New()
	api := e.Group("/api/v1")
	h := noteHandler{}
	api.GET("/patients/:ssn/notes", h.ListNotes)
	api.POST("/patients/:ssn/notes", h.CreateNote)
	api.GET("/patients/:ssn/notes/:id", h.GetNote)
	api.POST("/session", func(c echo.Context) error { return nil })
	e.GET("/health", func(c echo.Context) error { return nil })
	return e
}

func TestGenerateSpec_Paths(t *testing.T) {
	e := newTestEcho()
	spec := NewGenerator("EHR Gateway API", "1.0.0", "/api/v1").GenerateSpec(e.Routes())

	want := []string{"/patients/{ssn}/notes", "/patients/{ssn}/notes/{id}", "/session"}
	if diff := cmp.Diff(want, Paths(spec)); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
	if spec["openapi"] != "3.0.3" {
		t.Errorf("unexpected version %v", spec["openapi"])
	}
}

func TestGenerateSpec_Operations(t *testing.T) {
	e := newTestEcho()
	spec := NewGenerator("EHR Gateway API", "1.0.0", "/api/v1").GenerateSpec(e.Routes())
	paths := spec["paths"].(map[string]map[string]interface{})

	list := paths["/patients/{ssn}/notes"]["get"].(map[string]interface{})
	if list["operationId"] != "openapi.ListNotes" {
		t.Errorf("unexpected operationId %v", list["operationId"])
	}
	params := list["parameters"].([]map[string]interface{})
	if len(params) != 6 || params[0]["name"] != "ssn" || params[1]["name"] != "q" {
		t.Errorf("expected ssn path param plus list query params, got %v", params)
	}
	if _, ok := list["responses"].(map[string]interface{})["200"]; !ok {
		t.Error("expected 200 response on list")
	}

	create := paths["/patients/{ssn}/notes"]["post"].(map[string]interface{})
	if _, ok := create["responses"].(map[string]interface{})["201"]; !ok {
		t.Error("expected 201 on create")
	}
	if _, ok := create["requestBody"]; !ok {
		t.Error("expected request body on create")
	}

	detail := paths["/patients/{ssn}/notes/{id}"]["get"].(map[string]interface{})
	if n := len(detail["parameters"].([]map[string]interface{})); n != 2 {
		t.Errorf("expected only path params on detail, got %d", n)
	}

	login := paths["/session"]["post"].(map[string]interface{})
	if sec := login["security"].([]map[string][]string); len(sec) != 0 {
		t.Errorf("expected login to be public, got %v", sec)
	}
	if _, ok := login["responses"].(map[string]interface{})["401"]; ok {
		t.Error("public operation should not document 401")
	}
}

func TestRegisterRoutes(t *testing.T) {
	e := newTestEcho()
	NewGenerator("EHR Gateway API", "1.0.0", "/api/v1").RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var doc struct {
		Paths map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := doc.Paths["/patients/{ssn}/notes"]; !ok {
		t.Errorf("expected notes path in served document")
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected docs page, got %d", rec.Code)
	}
}

func TestDescribe(t *testing.T) {
	cases := map[string][2]string{
		"github.com/ehr/gateway/internal/domain/notes.(*Handler).ListNotes-fm": {"notes", "ListNotes"},
		"main.runServer.func1": {"main", "func1"},
		"handler":              {"", "handler"},
	}
	for in, want := range cases {
		tag, op := describe(in)
		if tag != want[0] || op != want[1] {
			t.Errorf("describe(%q) = %q,%q; want %v", in, tag, op, want)
		}
	}
}
