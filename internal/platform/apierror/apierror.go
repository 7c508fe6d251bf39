// Package apierror maps service and backend failures to HTTP errors.
package apierror

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/gateway/internal/platform/backend"
	"github.com/ehr/gateway/pkg/display"
)

// ValidationError is returned by services for bad client input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError is returned when the backend has no such record.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return e.What + " not found"
}

// NotFound builds a NotFoundError.
func NotFound(what string) error {
	return &NotFoundError{What: what}
}

// SSNParam reads and normalizes the :ssn route parameter.
func SSNParam(c echo.Context) (string, error) {
	ssn, ok := display.NormalizeSSN(c.Param("ssn"))
	if !ok {
		return "", Invalid("ssn", "must be 9 digits")
	}
	return ssn, nil
}

// Bind decodes the request body into v. Malformed input is a 400; a body
// cut off by the size limit keeps its 413, which the JSON decoder wraps.
func Bind(c echo.Context, v any) error {
	err := c.Bind(v)
	if err == nil {
		return nil
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if he, ok := e.(*echo.HTTPError); ok && he.Code == http.StatusRequestEntityTooLarge {
			return he
		}
	}
	return echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
}

// From converts err into an *echo.HTTPError. Backend text is passed through so
// the clinician sees what the backend said.
func From(err error) error {
	if err == nil {
		return nil
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error()).SetInternal(err)
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return echo.NewHTTPError(http.StatusNotFound, nf.Error()).SetInternal(err)
	}

	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		msg := "backend rejected credentials"
		if be, ok := backend.AsError(err); ok {
			msg = be.Message
		}
		return echo.NewHTTPError(http.StatusUnauthorized, msg).SetInternal(err)
	case errors.Is(err, backend.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "backend did not respond in time").SetInternal(err)
	case errors.Is(err, context.Canceled):
		// The client went away; the status is never seen.
		return echo.NewHTTPError(499, "request canceled").SetInternal(err)
	}

	if be, ok := backend.AsError(err); ok {
		return echo.NewHTTPError(http.StatusBadGateway, be.Message).SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusBadGateway, "backend unavailable").SetInternal(err)
}
