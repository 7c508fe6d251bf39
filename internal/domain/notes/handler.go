package notes

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
	api.GET("/patients/:ssn/notes", h.ListNotes)
	api.GET("/patients/:ssn/notes/:id", h.GetNote)
	api.POST("/patients/:ssn/notes", h.CreateNote)
	api.GET("/patients/:ssn/discharge-summaries", h.ListDischargeSummaries)
	api.GET("/patients/:ssn/discharge-summaries/:id", h.GetDischargeSummary)
}

func (h *Handler) ListNotes(c echo.Context) error {
	ssn, err := apierror.SSNParam(c)
	if err != nil {
		return apierror.From(err)
	}
	items, err := h.svc.ListNotes(c.Request().Context(), ssn)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c), ClinicalNote.Fields))
}

func (h *Handler) GetNote(c echo.Context) error {
	ssn, err := apierror.SSNParam(c)
	if err != nil {
		return apierror.From(err)
	}
	n, err := h.svc.GetNote(c.Request().Context(), ssn, c.Param("id"))
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) CreateNote(c echo.Context) error {
	ssn, err := apierror.SSNParam(c)
	if err != nil {
		return apierror.From(err)
	}
	var req NewNote
	if err := apierror.Bind(c, &req); err != nil {
		return err
	}
	n, err := h.svc.CreateNote(c.Request().Context(), ssn, req)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) ListDischargeSummaries(c echo.Context) error {
	ssn, err := apierror.SSNParam(c)
	if err != nil {
		return apierror.From(err)
	}
	items, err := h.svc.ListDischargeSummaries(c.Request().Context(), ssn)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c), DischargeSummary.Fields))
}

func (h *Handler) GetDischargeSummary(c echo.Context) error {
	ssn, err := apierror.SSNParam(c)
	if err != nil {
		return apierror.From(err)
	}
	d, err := h.svc.GetDischargeSummary(c.Request().Context(), ssn, c.Param("id"))
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, d)
}
