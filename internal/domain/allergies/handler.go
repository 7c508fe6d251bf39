package allergies

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/gateway/internal/platform/apierror"
	"github.com/ehr/gateway/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:ssn/allergies", h.List)
	api.POST("/patients/:ssn/allergies", h.Create)
}

func (h *Handler) List(c echo.Context) error {
	ssn, err := apierror.SSNParam(c)
	if err != nil {
		return apierror.From(err)
	}
	items, err := h.svc.List(c.Request().Context(), ssn)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c), Allergy.Fields))
}

func (h *Handler) Create(c echo.Context) error {
	ssn, err := apierror.SSNParam(c)
	if err != nil {
		return apierror.From(err)
	}
	var req NewAllergy
	if err := apierror.Bind(c, &req); err != nil {
		return err
	}
	a, err := h.svc.Create(c.Request().Context(), ssn, req)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusCreated, a)
}
