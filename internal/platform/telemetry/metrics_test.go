package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestHistogram_Buckets(t *testing.T) {
	h := newHistogram([]float64{1, 5, 10})
	for _, v := range []float64{0.5, 1, 3, 7, 20} {
		h.Observe(v)
	}
	got := h.cumulativeBuckets()
	want := []int64{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bucket %d: got %d, want %d", i, got[i], want[i])
		}
	}
	if h.Count() != 5 || h.Sum() != 31.5 {
		t.Errorf("count=%d sum=%g", h.Count(), h.Sum())
	}
}

func TestMiddleware_RecordsRouteTemplate(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/v1/patients/:ssn", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/api/v1/patients/:ssn/notes", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadGateway, "backend unavailable")
	})

	for _, path := range []string{"/api/v1/patients/123456789", "/api/v1/patients/123456789/notes"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	out := m.Expose()
	if !strings.Contains(out, `route="/api/v1/patients/:ssn",status_code="200"`) {
		t.Errorf("expected 200 series for route template, got:\n%s", out)
	}
	if !strings.Contains(out, `route="/api/v1/patients/:ssn/notes",status_code="502"`) {
		t.Errorf("expected 502 series, got:\n%s", out)
	}
	if strings.Contains(out, "123456789") {
		t.Error("SSN leaked into metric labels")
	}
}

func TestBackendObserver(t *testing.T) {
	m := New()
	m.BackendCall("apiPatDetail.sh", 200, 40*time.Millisecond, nil)
	m.BackendCall("apiPatDetail.sh", 500, time.Second, errors.New("boom"))
	m.CacheLookup("apiPatDetail.sh", true)
	m.CacheLookup("apiPatDetail.sh", false)
	m.CacheLookup("apiPatDetail.sh", false)

	if n := m.Counter(metricBackendErrors, "endpoint", "apiPatDetail.sh"); n != 1 {
		t.Errorf("expected 1 error, got %d", n)
	}
	if n := m.Counter(metricCacheLookups, "endpoint", "apiPatDetail.sh", "result", "miss"); n != 2 {
		t.Errorf("expected 2 misses, got %d", n)
	}
	out := m.Expose()
	if !strings.Contains(out, `backend_call_duration_seconds_count{endpoint="apiPatDetail.sh",status_code="500"} 1`) {
		t.Errorf("missing backend duration series:\n%s", out)
	}
}

func TestHandler_ServesText(t *testing.T) {
	m := New()
	e := echo.New()
	e.GET("/metrics", m.Handler())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "http_server_active_requests 0") {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}
