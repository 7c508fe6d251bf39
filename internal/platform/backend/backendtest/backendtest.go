// Package backendtest runs a fake CGI backend for repository tests.
package backendtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/gateway/internal/platform/backend"
	"github.com/ehr/gateway/internal/platform/cache"
)

// Request is one call the fake received.
type Request struct {
	Endpoint string
	Body     map[string]any
}

type reply struct {
	status int
	body   string
}

// Server is a fake backend. Endpoints without a reply answer 404.
type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	replies  map[string]reply
	requests []Request
}

// New starts a Server that is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{replies: make(map[string]reply)}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	json.Unmarshal(raw, &body)

	s.mu.Lock()
	s.requests = append(s.requests, Request{Endpoint: endpoint, Body: body})
	rep, ok := s.replies[endpoint]
	s.mu.Unlock()

	if !ok {
		http.Error(w, "unknown endpoint "+endpoint, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rep.status)
	io.WriteString(w, rep.body)
}

// Reply makes endpoint answer with status and a raw body.
func (s *Server) Reply(endpoint string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[endpoint] = reply{status: status, body: body}
}

// ReplyData makes endpoint succeed with data in the envelope.
func (s *Server) ReplyData(endpoint string, data any) {
	raw, err := json.Marshal(map[string]any{"status": "ok", "data": data})
	if err != nil {
		panic(err)
	}
	s.Reply(endpoint, http.StatusOK, string(raw))
}

// ReplyError makes endpoint fail inside a 200 envelope.
func (s *Server) ReplyError(endpoint, message string) {
	raw, _ := json.Marshal(map[string]any{"status": "error", "message": message})
	s.Reply(endpoint, http.StatusOK, string(raw))
}

// Requests returns the calls made to endpoint, in order.
func (s *Server) Requests(endpoint string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Request
	for _, r := range s.requests {
		if r.Endpoint == endpoint {
			out = append(out, r)
		}
	}
	return out
}

// Last returns the body of the latest call to endpoint, or nil.
func (s *Server) Last(endpoint string) map[string]any {
	reqs := s.Requests(endpoint)
	if len(reqs) == 0 {
		return nil
	}
	return reqs[len(reqs)-1].Body
}

// URL is the base URL a backend.Client should be configured with.
func (s *Server) URL() string {
	return s.srv.URL + "/cgi-bin"
}

// Client returns a backend client for the fake. store may be nil.
func (s *Server) Client(store cache.Store) *backend.Client {
	return backend.New(backend.Config{
		BaseURL:  s.URL(),
		UserName: "svc-user",
		Password: "svc-pass",
		Timeout:  2 * time.Second,
		CacheTTL: time.Minute,
	}, store, zerolog.Nop())
}
