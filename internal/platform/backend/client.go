// Package backend is the single client for the hospital CGI backend.
//
// Every endpoint is a POST of one flat JSON object that must carry the
// service credentials (UserName, Password) and the caller's DUZ and
// ihtLocation. The client owns the credentials; callers pass only the
// endpoint-specific fields.
package backend

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ehr/gateway/internal/platform/cache"
	"github.com/ehr/gateway/pkg/display"
)

// maxResponseBytes caps how much of a backend body is read.
const maxResponseBytes = 16 << 20

// Field names the backend requires on every request.
const (
	FieldUserName   = "UserName"
	FieldPassword   = "Password"
	FieldDUZ        = "DUZ"
	FieldLocation   = "ihtLocation"
	FieldPatientSSN = "PatientSSN"
)

// Params are the endpoint-specific request fields.
type Params map[string]any

// Config configures a Client.
type Config struct {
	BaseURL  string
	UserName string
	Password string
	Timeout  time.Duration
	CacheTTL time.Duration
	// Observer receives call and cache metrics. Optional.
	Observer Observer
}

// Observer is notified of every backend round trip and cache lookup.
type Observer interface {
	BackendCall(endpoint string, status int, latency time.Duration, err error)
	CacheLookup(endpoint string, hit bool)
}

type nopObserver struct{}

func (nopObserver) BackendCall(string, int, time.Duration, error) {}
func (nopObserver) CacheLookup(string, bool)                       {}

// Client calls backend endpoints.
type Client struct {
	baseURL  string
	userName string
	password string
	http     *http.Client
	cache    cache.Store
	cacheTTL time.Duration
	group    singleflight.Group
	observer Observer
	logger   zerolog.Logger
}

// New creates a Client. store may be nil, which disables read caching.
func New(cfg Config, store cache.Store, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		userName: cfg.UserName,
		password: cfg.Password,
		http:     &http.Client{Timeout: timeout},
		cache:    store,
		cacheTTL: cfg.CacheTTL,
		observer: observer,
		logger:   logger.With().Str("component", "backend").Logger(),
	}
}

type envelope struct {
	Status       string          `json:"status"`
	Error        string          `json:"error"`
	ErrorMessage string          `json:"errorMessage"`
	Message      string          `json:"message"`
	Data         json.RawMessage `json:"data"`
}

// Call POSTs to endpoint and decodes the response's data field into out.
// out may be nil when only success matters. A missing or null data field
// leaves out untouched.
func (c *Client) Call(ctx context.Context, endpoint string, params Params, out any) error {
	data, err := c.do(ctx, endpoint, params)
	if err != nil {
		return err
	}
	return decodeData(endpoint, data, out)
}

// Fetch is Call for read-only endpoints. Identical concurrent reads share one
// backend round trip, and results are cached for the configured TTL, keyed by
// endpoint, caller identity, patient generation and parameters.
func (c *Client) Fetch(ctx context.Context, endpoint string, params Params, out any) error {
	if c.cache == nil || c.cacheTTL <= 0 {
		return c.Call(ctx, endpoint, params, out)
	}

	key, err := c.cacheKey(ctx, endpoint, params)
	if err != nil {
		return err
	}

	if cached, err := c.cache.Get(ctx, key); err == nil {
		c.observer.CacheLookup(endpoint, true)
		return decodeData(endpoint, cached, out)
	} else if !errors.Is(err, cache.ErrMiss) {
		c.log(ctx).Warn().Err(err).Str("endpoint", endpoint).Msg("cache read failed")
	}
	c.observer.CacheLookup(endpoint, false)

	// The shared call must outlive any single waiter's cancellation; the
	// http.Client timeout still bounds it.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		data, err := c.do(shared, endpoint, params)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(shared, key, data, c.cacheTTL); err != nil {
			c.log(shared).Warn().Err(err).Str("endpoint", endpoint).Msg("cache write failed")
		}
		return data, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return decodeData(endpoint, res.Val.(json.RawMessage), out)
	}
}

// InvalidatePatient makes every cached read for ssn miss. Writes call it
// after the backend accepts them.
func (c *Client) InvalidatePatient(ctx context.Context, ssn string) error {
	if c.cache == nil || ssn == "" {
		return nil
	}
	ttl := 10 * c.cacheTTL
	if ttl < time.Hour {
		ttl = time.Hour
	}
	if err := c.cache.Set(ctx, generationKey(ssn), []byte(uuid.NewString()), ttl); err != nil {
		return fmt.Errorf("invalidate patient cache: %w", err)
	}
	return nil
}

func generationKey(ssn string) string {
	return "gen:" + ssn
}

func (c *Client) cacheKey(ctx context.Context, endpoint string, params Params) (string, error) {
	id := IdentityFromContext(ctx)
	gen := "0"
	if ssn, _ := params[FieldPatientSSN].(string); ssn != "" {
		if b, err := c.cache.Get(ctx, generationKey(ssn)); err == nil {
			gen = string(b)
		}
	}
	// encoding/json sorts map keys, so equal params hash equally.
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("%s: encode params: %w", endpoint, err)
	}
	sum := sha256.Sum256(raw)
	return strings.Join([]string{"be", endpoint, id.DUZ, id.Location, gen, hex.EncodeToString(sum[:])}, ":"), nil
}

// do performs the POST and returns the raw data field.
func (c *Client) do(ctx context.Context, endpoint string, params Params) (json.RawMessage, error) {
	start := time.Now()
	body, err := json.Marshal(c.requestBody(ctx, params))
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	ssn, _ := params[FieldPatientSSN].(string)
	evt := func(status int, err error) {
		c.observer.BackendCall(endpoint, status, time.Since(start), err)
		e := c.log(ctx).Info()
		if err != nil {
			e = c.log(ctx).Warn().Err(err)
		}
		e.Str("endpoint", endpoint).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("patient", display.MaskSSN(ssn)).
			Msg("backend call")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var uerr *url.Error
		if ctx.Err() == nil && errors.As(err, &uerr) && uerr.Timeout() {
			err = ErrTimeout
		}
		err = fmt.Errorf("%s: %w", endpoint, err)
		evt(0, err)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		err = fmt.Errorf("%s: read response: %w", endpoint, err)
		evt(resp.StatusCode, err)
		return nil, err
	}

	data, err := classify(endpoint, resp.StatusCode, raw)
	evt(resp.StatusCode, err)
	return data, err
}

func (c *Client) requestBody(ctx context.Context, params Params) map[string]any {
	id := IdentityFromContext(ctx)
	body := map[string]any{
		FieldDUZ:      id.DUZ,
		FieldLocation: id.Location,
	}
	for k, v := range params {
		body[k] = v
	}
	// Service credentials are never taken from callers.
	body[FieldUserName] = c.userName
	body[FieldPassword] = c.password
	return body
}

// classify turns a status code and body into data or an *Error.
func classify(endpoint string, status int, raw []byte) (json.RawMessage, error) {
	if status < 200 || status > 299 {
		msg := strings.TrimSpace(string(raw))
		var env envelope
		if json.Unmarshal(raw, &env) == nil {
			if m := env.message(); m != "" {
				msg = m
			}
		}
		if msg == "" {
			msg = http.StatusText(status)
		}
		return nil, &Error{Endpoint: endpoint, StatusCode: status, Message: msg}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &Error{Endpoint: endpoint, StatusCode: status, Message: "invalid JSON response"}
	}
	if strings.EqualFold(env.Status, "error") || env.Error != "" || env.ErrorMessage != "" {
		msg := env.message()
		if msg == "" {
			msg = "backend reported an error"
		}
		return nil, &Error{Endpoint: endpoint, StatusCode: status, Message: msg}
	}
	return env.Data, nil
}

func (e envelope) message() string {
	for _, m := range []string{e.Error, e.ErrorMessage, e.Message} {
		if m = strings.TrimSpace(m); m != "" {
			return m
		}
	}
	return ""
}

func decodeData(endpoint string, data json.RawMessage, out any) error {
	if out == nil || len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode data: %w", endpoint, err)
	}
	return nil
}

func (c *Client) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &c.logger
}
