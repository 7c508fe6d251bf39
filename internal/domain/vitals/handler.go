package vitals

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
	api.GET("/patients/:ssn/vitals", h.List)
	api.POST("/patients/:ssn/vitals", h.Record)
	api.GET("/patients/:ssn/intake-output", h.ListIntakeOutput)
	api.POST("/patients/:ssn/intake-output", h.RecordIntakeOutput)
}

func (h *Handler) List(c echo.Context) error {
	ssn, err := apierror.SSNParam(c)
	if err != nil {
		return apierror.From(err)
	}
	items, err := h.svc.List(c.Request().Context(), ssn, c.QueryParam("type"))
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c), Vital.Fields))
}

func (h *Handler) Record(c echo.Context) error {
	ssn, err := apierror.SSNParam(c)
	if err != nil {
		return apierror.From(err)
	}
	var req NewVitals
	if err := apierror.Bind(c, &req); err != nil {
		return err
	}
	recorded, err := h.svc.Record(c.Request().Context(), ssn, req)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"data": recorded})
}

func (h *Handler) ListIntakeOutput(c echo.Context) error {
	ssn, err := apierror.SSNParam(c)
	if err != nil {
		return apierror.From(err)
	}
	items, err := h.svc.ListIntakeOutput(c.Request().Context(), ssn, c.QueryParam("kind"))
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c), IntakeOutputRecord.Fields))
}

func (h *Handler) RecordIntakeOutput(c echo.Context) error {
	ssn, err := apierror.SSNParam(c)
	if err != nil {
		return apierror.From(err)
	}
	var req NewIntakeOutput
	if err := apierror.Bind(c, &req); err != nil {
		return err
	}
	rec, err := h.svc.RecordIntakeOutput(c.Request().Context(), ssn, req)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusCreated, rec)
}
