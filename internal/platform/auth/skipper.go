package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// publicPaths lists route paths that bypass session validation.
var publicPaths = map[string]bool{
	"/health":       true,
	"/health/db":    true,
	"/metrics":      true,
	"/openapi.json": true,
	"/docs":         true,
}

// Skipper returns true for infrastructure endpoints and for login itself.
func Skipper(c echo.Context) bool {
	if publicPaths[c.Path()] {
		return true
	}
	return c.Request().Method == http.MethodPost && c.Path() == "/api/v1/session"
}
