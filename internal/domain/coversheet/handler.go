package coversheet

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/gateway/internal/platform/apierror"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:ssn/summary", h.Get)
}

func (h *Handler) Get(c echo.Context) error {
	ssn, err := apierror.SSNParam(c)
	if err != nil {
		return apierror.From(err)
	}
	sum, err := h.svc.Get(c.Request().Context(), ssn)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, sum)
}
