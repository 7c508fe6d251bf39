package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/gateway/internal/platform/auth"
	"github.com/ehr/gateway/pkg/display"
)

// AuditEntry records one access to patient data.
type AuditEntry struct {
	DUZ        string
	UserName   string
	SessionID  string
	PatientSSN string // normalized, never logged; recorders decide how to store it
	Resource   string // notes, allergies, radiology, ...
	Action     string // read, create, update, delete
	Route      string
	Method     string
	IPAddress  string
	UserAgent  string
	RequestID  string
	StatusCode int
	Timestamp  time.Time
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	RecordAccess(ctx context.Context, entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(ctx context.Context, entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(ctx context.Context, entry AuditEntry) error {
	return f(ctx, entry)
}

// Audit logs every patient-scoped request (routes with an :ssn parameter)
// as a phi_access event and hands it to recorder when one is configured.
// The log line carries only the masked SSN.
func Audit(logger zerolog.Logger, recorder AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			ssn, ok := display.NormalizeSSN(c.Param("ssn"))
			if !ok {
				return err
			}

			req := c.Request()
			status := c.Response().Status
			if he, isHTTP := err.(*echo.HTTPError); isHTTP && !c.Response().Committed {
				status = he.Code
			}
			entry := AuditEntry{
				PatientSSN: ssn,
				Resource:   resourceFromRoute(c.Path()),
				Action:     httpMethodToAction(req.Method),
				Route:      c.Path(),
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: status,
				Timestamp:  time.Now().UTC(),
			}
			if s := auth.SessionFromContext(req.Context()); s != nil {
				entry.DUZ = s.DUZ
				entry.UserName = s.Name
				entry.SessionID = s.ID
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			if recorder != nil {
				// A timed-out or abandoned request is still recorded.
				if recErr := recorder.RecordAccess(context.WithoutCancel(req.Context()), entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "phi_access").
				Str("request_id", entry.RequestID).
				Str("duz", entry.DUZ).
				Str("patient", display.MaskSSN(entry.PatientSSN)).
				Str("resource", entry.Resource).
				Str("action", entry.Action).
				Str("route", entry.Route).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("phi_access")

			return err
		}
	}
}

// httpMethodToAction maps HTTP methods to audit action codes.
func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// resourceFromRoute names the clinical area of a patient route:
//   - /api/v1/patients/:ssn            -> patient
//   - /api/v1/patients/:ssn/summary    -> summary
//   - /api/v1/patients/:ssn/notes/:id  -> notes
func resourceFromRoute(route string) string {
	_, rest, found := strings.Cut(route, "/:ssn")
	if !found {
		return "unknown"
	}
	rest = strings.TrimPrefix(rest, "/")
	if rest == "" {
		return "patient"
	}
	seg, _, _ := strings.Cut(rest, "/")
	return seg
}
