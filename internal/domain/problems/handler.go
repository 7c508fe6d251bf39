package problems

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
	api.GET("/patients/:ssn/problems", h.ListProblems)
	api.POST("/patients/:ssn/problems", h.CreateProblem)
	api.GET("/patients/:ssn/diagnoses", h.ListDiagnoses)
}

func (h *Handler) ListProblems(c echo.Context) error {
	ssn, err := apierror.SSNParam(c)
	if err != nil {
		return apierror.From(err)
	}
	items, err := h.svc.ListProblems(c.Request().Context(), ssn, c.QueryParam("status"))
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c), Problem.Fields))
}

func (h *Handler) CreateProblem(c echo.Context) error {
	ssn, err := apierror.SSNParam(c)
	if err != nil {
		return apierror.From(err)
	}
	var req NewProblem
	if err := apierror.Bind(c, &req); err != nil {
		return err
	}
	p, err := h.svc.CreateProblem(c.Request().Context(), ssn, req)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListDiagnoses(c echo.Context) error {
	ssn, err := apierror.SSNParam(c)
	if err != nil {
		return apierror.From(err)
	}
	items, err := h.svc.ListDiagnoses(c.Request().Context(), ssn)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c), Diagnosis.Fields))
}
