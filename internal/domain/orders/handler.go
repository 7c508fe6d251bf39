package orders

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/gateway/internal/platform/apierror"
	"github.com/ehr/gateway/internal/platform/auth"
	"github.com/ehr/gateway/pkg/pagination"
)

// Security keys that allow placing orders.
var orderKeys = []string{"ORES", "ORELSE"}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:ssn/medications", h.ListMedications)
	api.GET("/patients/:ssn/labs", h.ListLabs)
	api.GET("/patients/:ssn/radiology", h.ListRadiology)
	api.POST("/patients/:ssn/radiology", h.PlaceRadiology, auth.RequireKey(orderKeys...))
}

func (h *Handler) ListMedications(c echo.Context) error {
	ssn, err := apierror.SSNParam(c)
	if err != nil {
		return apierror.From(err)
	}
	items, err := h.svc.ListMedications(c.Request().Context(), ssn, c.QueryParam("status"))
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c), Medication.Fields))
}

func (h *Handler) ListLabs(c echo.Context) error {
	ssn, err := apierror.SSNParam(c)
	if err != nil {
		return apierror.From(err)
	}
	items, err := h.svc.ListLabs(c.Request().Context(), ssn)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c), LabOrder.Fields))
}

func (h *Handler) ListRadiology(c echo.Context) error {
	ssn, err := apierror.SSNParam(c)
	if err != nil {
		return apierror.From(err)
	}
	items, err := h.svc.ListRadiology(c.Request().Context(), ssn)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c), RadiologyEntry.Fields))
}

func (h *Handler) PlaceRadiology(c echo.Context) error {
	ssn, err := apierror.SSNParam(c)
	if err != nil {
		return apierror.From(err)
	}
	var req NewRadiologyOrder
	if err := apierror.Bind(c, &req); err != nil {
		return err
	}
	entry, err := h.svc.PlaceRadiology(c.Request().Context(), ssn, req)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusCreated, entry)
}
