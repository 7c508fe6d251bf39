package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ehr/gateway/internal/platform/backend"
)

type contextKey string

const sessionKey contextKey = "session"

// WithSession stores s on ctx together with the backend identity it implies.
func WithSession(ctx context.Context, s *Session) context.Context {
	ctx = context.WithValue(ctx, sessionKey, s)
	return backend.WithIdentity(ctx, backend.Identity{DUZ: s.DUZ, Location: s.Location})
}

// SessionFromContext returns the session set by the middleware, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}

// Config configures Middleware.
type Config struct {
	Manager *Manager
	// DevSession, when set, is used for requests without an Authorization
	// header. Only wired in development.
	DevSession *Session
	Skipper    func(c echo.Context) bool
}

// Middleware validates the bearer session token and attaches the session.
func Middleware(cfg Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				if cfg.DevSession != nil {
					return next(setSession(c, cfg.DevSession))
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			s, err := cfg.Manager.Parse(c.Request().Context(), strings.TrimSpace(parts[1]))
			if errors.Is(err, ErrRevoked) {
				return echo.NewHTTPError(http.StatusUnauthorized, "session ended")
			}
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			return next(setSession(c, s))
		}
	}
}

func setSession(c echo.Context, s *Session) echo.Context {
	c.SetRequest(c.Request().WithContext(WithSession(c.Request().Context(), s)))
	c.Set("duz", s.DUZ)
	return c
}

// RequireKey allows the request if the session holds any of keys.
func RequireKey(keys ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := SessionFromContext(c.Request().Context())
			if s == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "no session")
			}
			for _, k := range keys {
				if s.HasKey(k) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				"required security key: "+strings.Join(keys, " or "))
		}
	}
}
