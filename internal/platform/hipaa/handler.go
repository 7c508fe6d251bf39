package hipaa

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ehr/gateway/internal/platform/apierror"
	"github.com/ehr/gateway/pkg/display"
)

// AuditKey is the security key required to read the access log.
const AuditKey = "XUAUDITING"

// Searcher is implemented by PGAccessLog and MemoryAccessLog.
type Searcher interface {
	Search(ctx context.Context, q AccessQuery) ([]AccessRecord, int, error)
}

// Handler serves the access history of a patient.
type Handler struct {
	log Searcher
}

func NewHandler(log Searcher) *Handler {
	return &Handler{log: log}
}

// RegisterRoutes mounts the handler; guard restricts it to auditors.
func (h *Handler) RegisterRoutes(api *echo.Group, guard echo.MiddlewareFunc) {
	api.GET("/patients/:ssn/access-log", h.PatientAccess, guard)
}

// PatientAccess lists who accessed a patient's record.
// Query: duz, since (RFC 3339 or YYYY-MM-DD), limit, offset.
func (h *Handler) PatientAccess(c echo.Context) error {
	ssn, ok := display.NormalizeSSN(c.Param("ssn"))
	if !ok {
		return apierror.From(apierror.Invalid("ssn", "must be 9 digits"))
	}

	q := AccessQuery{PatientSSN: ssn, DUZ: c.QueryParam("duz")}
	if v := c.QueryParam("since"); v != "" {
		t, err := parseSince(v)
		if err != nil {
			return apierror.From(apierror.Invalid("since", "must be RFC 3339 or YYYY-MM-DD"))
		}
		q.Since = t
	}
	q.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	q.Offset, _ = strconv.Atoi(c.QueryParam("offset"))
	q.normalize()

	records, total, err := h.log.Search(c.Request().Context(), q)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "access log unavailable").SetInternal(err)
	}
	if records == nil {
		records = []AccessRecord{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data":     records,
		"total":    total,
		"limit":    q.Limit,
		"offset":   q.Offset,
		"has_more": q.Offset+len(records) < total,
	})
}

func parseSince(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
