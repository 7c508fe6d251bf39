package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/gateway/internal/platform/auth"
)

// Recovery turns a handler panic into a 500. The panic value may hold PHI
// and is never sent to the client. The stack is logged at debug level.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if e, ok := r.(error); ok && errors.Is(e, http.ErrAbortHandler) {
					panic(r)
				}

				rid, _ := c.Get("request_id").(string)
				ev := logger.Error().
					Str("request_id", rid).
					Str("method", c.Request().Method).
					Str("route", c.Path())
				if s := auth.SessionFromContext(c.Request().Context()); s != nil {
					ev = ev.Str("duz", s.DUZ)
				}
				ev.Str("panic", fmt.Sprint(r)).Msg("handler panicked")
				logger.Debug().Str("request_id", rid).Bytes("stack", debug.Stack()).Msg("panic stack")

				err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error").
					SetInternal(fmt.Errorf("panic: %v", r))
			}()
			return next(c)
		}
	}
}
