package account

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/gateway/internal/platform/apierror"
	"github.com/ehr/gateway/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/session", h.Login)
	api.GET("/session", h.Current)
	api.DELETE("/session", h.Logout)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := apierror.Bind(c, &req); err != nil {
		return err
	}
	resp, err := h.svc.Login(c.Request().Context(), req)
	if errors.Is(err, ErrInvalidCredentials) {
		msg := ErrInvalidCredentials.Error()
		var re *RejectedError
		if errors.As(err, &re) {
			msg = re.Error()
		}
		return echo.NewHTTPError(http.StatusUnauthorized, msg).SetInternal(err)
	}
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Current(c echo.Context) error {
	s := auth.SessionFromContext(c.Request().Context())
	if s == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	return c.JSON(http.StatusOK, viewOf(s))
}

func (h *Handler) Logout(c echo.Context) error {
	s := auth.SessionFromContext(c.Request().Context())
	if s == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	if err := h.svc.Logout(c.Request().Context(), s); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not end session").SetInternal(err)
	}
	return c.NoContent(http.StatusNoContent)
}
