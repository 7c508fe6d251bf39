// Package telemetry records gateway metrics and serves them in the Prometheus
// text exposition format.
package telemetry

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

// Metrics holds every series the gateway exports. The zero value is not
// usable; call New.
type Metrics struct {
	mu         sync.RWMutex
	histograms map[string]map[string]*histogram // metric -> labels -> series
	counters   map[string]map[string]*int64

	activeRequests int64
}

func New() *Metrics {
	return &Metrics{
		histograms: make(map[string]map[string]*histogram),
		counters:   make(map[string]map[string]*int64),
	}
}

const (
	metricRequestDuration = "http_server_request_duration_seconds"
	metricBackendDuration = "backend_call_duration_seconds"
	metricBackendErrors   = "backend_call_errors_total"
	metricCacheLookups    = "backend_cache_lookups_total"
)

var help = map[string]string{
	metricRequestDuration: "Duration of HTTP requests in seconds.",
	metricBackendDuration: "Duration of backend CGI calls in seconds.",
	metricBackendErrors:   "Backend CGI calls that failed.",
	metricCacheLookups:    "Backend read cache lookups by result.",
}

// labels renders label pairs (name, value, name, value...) in order.
func labels(kv ...string) string {
	parts := make([]string, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		parts = append(parts, kv[i]+"="+strconv.Quote(kv[i+1]))
	}
	return strings.Join(parts, ",")
}

func (m *Metrics) histogram(name, lbl string) *histogram {
	m.mu.RLock()
	h, ok := m.histograms[name][lbl]
	m.mu.RUnlock()
	if ok {
		return h
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	series, ok := m.histograms[name]
	if !ok {
		series = make(map[string]*histogram)
		m.histograms[name] = series
	}
	if h, ok = series[lbl]; !ok {
		h = newHistogram(durationBuckets)
		series[lbl] = h
	}
	return h
}

func (m *Metrics) inc(name, lbl string) {
	m.mu.RLock()
	p, ok := m.counters[name][lbl]
	m.mu.RUnlock()
	if !ok {
		m.mu.Lock()
		series, ok := m.counters[name]
		if !ok {
			series = make(map[string]*int64)
			m.counters[name] = series
		}
		if p, ok = series[lbl]; !ok {
			p = new(int64)
			series[lbl] = p
		}
		m.mu.Unlock()
	}
	atomic.AddInt64(p, 1)
}

// Counter returns the current value of a counter series; for tests.
func (m *Metrics) Counter(name string, kv ...string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.counters[name][labels(kv...)]; ok {
		return atomic.LoadInt64(p)
	}
	return 0
}

// BackendCall implements backend.Observer.
func (m *Metrics) BackendCall(endpoint string, status int, latency time.Duration, err error) {
	code := strconv.Itoa(status)
	m.histogram(metricBackendDuration, labels("endpoint", endpoint, "status_code", code)).Observe(latency.Seconds())
	if err != nil {
		m.inc(metricBackendErrors, labels("endpoint", endpoint))
	}
}

// CacheLookup implements backend.Observer.
func (m *Metrics) CacheLookup(endpoint string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.inc(metricCacheLookups, labels("endpoint", endpoint, "result", result))
}

// Middleware records request duration by method, route template and status.
// Route templates keep patient SSNs out of label values.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt64(&m.activeRequests, 1)
			defer atomic.AddInt64(&m.activeRequests, -1)

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			lbl := labels("method", c.Request().Method, "route", route, "status_code", strconv.Itoa(status))
			m.histogram(metricRequestDuration, lbl).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves all series at /metrics.
func (m *Metrics) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, m.Expose())
	}
}

// Expose renders every series. Output is sorted so it is stable.
func (m *Metrics) Expose() string {
	var b strings.Builder

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, name := range sortedKeys(m.histograms) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s histogram\n", name, help[name], name)
		series := m.histograms[name]
		for _, lbl := range sortedKeys(series) {
			writeHistogram(&b, name, lbl, series[lbl])
		}
		b.WriteByte('\n')
	}
	for _, name := range sortedKeys(m.counters) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s counter\n", name, help[name], name)
		series := m.counters[name]
		for _, lbl := range sortedKeys(series) {
			fmt.Fprintf(&b, "%s{%s} %d\n", name, lbl, atomic.LoadInt64(series[lbl]))
		}
		b.WriteByte('\n')
	}

	b.WriteString("# HELP http_server_active_requests Number of in-flight HTTP requests.\n")
	b.WriteString("# TYPE http_server_active_requests gauge\n")
	fmt.Fprintf(&b, "http_server_active_requests %d\n", atomic.LoadInt64(&m.activeRequests))
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
