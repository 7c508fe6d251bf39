package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/labstack/echo/v4"
)

func TestFromContext_Defaults(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	p := FromContext(c)

	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
	if p.Sort != "" || p.Desc || p.Query != "" {
		t.Errorf("expected no shaping, got %+v", p)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?limit=50&offset=10&q=+aspirin+&sort=name&order=DESC", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	p := FromContext(c)

	want := Params{Limit: 50, Offset: 10, Query: "aspirin", Sort: "name", Desc: true}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("FromContext mismatch (-want +got):\n%s", diff)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&offset=-3", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	p := FromContext(c)

	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected negative offset clamped to 0, got %d", p.Offset)
	}
}

type row struct {
	Name   string
	Status string
}

func rowFields(r row) map[string]string {
	return map[string]string{"name": r.Name, "status": r.Status}
}

var rows = []row{
	{Name: "Metformin", Status: "ACTIVE"},
	{Name: "aspirin", Status: "DISCONTINUED"},
	{Name: "Lisinopril", Status: "ACTIVE"},
}

func TestPage_FilterIsCaseInsensitive(t *testing.T) {
	resp := Page(rows, Params{Limit: 10, Query: "active"}, rowFields)

	got := resp.Data.([]row)
	want := []row{rows[0], rows[2]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Page mismatch (-want +got):\n%s", diff)
	}
	if resp.Total != 2 {
		t.Errorf("expected total 2, got %d", resp.Total)
	}
}

func TestPage_SortAscDesc(t *testing.T) {
	asc := Page(rows, Params{Limit: 10, Sort: "name"}, rowFields).Data.([]row)
	if asc[0].Name != "aspirin" || asc[2].Name != "Metformin" {
		t.Errorf("unexpected asc order: %+v", asc)
	}

	desc := Page(rows, Params{Limit: 10, Sort: "name", Desc: true}, rowFields).Data.([]row)
	if desc[0].Name != "Metformin" || desc[2].Name != "aspirin" {
		t.Errorf("unexpected desc order: %+v", desc)
	}
}

func TestPage_UnknownSortKeepsOrder(t *testing.T) {
	got := Page(rows, Params{Limit: 10, Sort: "nope"}, rowFields).Data.([]row)
	if diff := cmp.Diff(rows, got); diff != "" {
		t.Errorf("expected backend order (-want +got):\n%s", diff)
	}
}

func TestPage_Slices(t *testing.T) {
	resp := Page(rows, Params{Limit: 2, Offset: 1}, rowFields)
	got := resp.Data.([]row)
	if len(got) != 2 || got[0].Name != "aspirin" {
		t.Errorf("unexpected page: %+v", got)
	}
	if resp.HasMore {
		t.Error("expected has_more=false on last page")
	}

	first := Page(rows, Params{Limit: 2}, rowFields)
	if !first.HasMore {
		t.Error("expected has_more=true on first page")
	}
}

func TestPage_OffsetPastEnd(t *testing.T) {
	resp := Page(rows, Params{Limit: 10, Offset: 50}, rowFields)
	got := resp.Data.([]row)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil page, got %#v", got)
	}
	if resp.Total != 3 {
		t.Errorf("expected total 3, got %d", resp.Total)
	}
}

func TestParams_HasNext(t *testing.T) {
	p := Params{Limit: 20, Offset: 10}
	if !p.HasNext(50) || p.HasNext(30) {
		t.Error("HasNext mismatch")
	}
}

type reading struct {
	Value   string
	TakenAt string
}

func readingFields(r reading) map[string]string {
	return map[string]string{"value": r.Value, "taken_at": r.TakenAt}
}

func TestPage_SortsNumbersNumerically(t *testing.T) {
	items := []reading{{Value: "74"}, {Value: "9"}, {Value: "101.2"}}
	got := Page(items, Params{Limit: 10, Sort: "value"}, readingFields).Data.([]reading)

	want := []reading{{Value: "9"}, {Value: "74"}, {Value: "101.2"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("numeric sort mismatch (-want +got):\n%s", diff)
	}
}

func TestPage_SortsDatesChronologically(t *testing.T) {
	items := []reading{
		{TakenAt: "12/01/2023 10:00"},
		{TakenAt: "01/15/2024 09:00"},
		{TakenAt: "3231130.08"},
	}
	got := Page(items, Params{Limit: 10, Sort: "taken_at", Desc: true}, readingFields).Data.([]reading)

	want := []reading{items[1], items[0], items[2]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("date sort mismatch (-want +got):\n%s", diff)
	}
}
