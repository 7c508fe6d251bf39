package patient

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
	api.GET("/patients", h.Search)
	api.GET("/patients/:ssn", h.Get)
}

// Search handles GET /patients?q=&ward=. Here q is the backend search text,
// so filtering within the result uses filter= instead.
func (h *Handler) Search(c echo.Context) error {
	pg := pagination.FromContext(c)
	pg.Query = c.QueryParam("filter")

	items, err := h.svc.Search(c.Request().Context(), c.QueryParam("q"), c.QueryParam("ward"))
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pg, Patient.Fields))
}

func (h *Handler) Get(c echo.Context) error {
	ssn, err := apierror.SSNParam(c)
	if err != nil {
		return apierror.From(err)
	}
	p, err := h.svc.Get(c.Request().Context(), ssn)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, p)
}
