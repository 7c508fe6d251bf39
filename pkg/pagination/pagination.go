package pagination

import (
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ehr/gateway/pkg/display"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds list shaping parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
	Query  string // case-insensitive substring filter
	Sort   string // field name; empty keeps backend order
	Desc   bool
}

// FromContext extracts list parameters from the echo context.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{
		Limit:  limit,
		Offset: offset,
		Query:  strings.TrimSpace(c.QueryParam("q")),
		Sort:   strings.TrimSpace(c.QueryParam("sort")),
		Desc:   strings.EqualFold(c.QueryParam("order"), "desc"),
	}
}

// Response wraps a paginated API response.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
}

// Fields exposes a record's display fields by name for filtering and sorting.
type Fields[T any] func(item T) map[string]string

// Page filters, sorts and slices items in memory. Backend list endpoints do
// not page, so every list screen is shaped here. Unknown sort fields keep the
// backend order. The returned Data is never nil so it encodes as [].
func Page[T any](items []T, p Params, fields Fields[T]) *Response {
	rows := make([]T, 0, len(items))
	needle := strings.ToLower(p.Query)
	for _, item := range items {
		if needle == "" || matches(fields(item), needle) {
			rows = append(rows, item)
		}
	}

	if p.Sort != "" && len(rows) > 0 {
		if _, ok := fields(rows[0])[p.Sort]; ok {
			sort.SliceStable(rows, func(i, j int) bool {
				c := compare(fields(rows[i])[p.Sort], fields(rows[j])[p.Sort])
				if p.Desc {
					return c > 0
				}
				return c < 0
			})
		}
	}

	total := len(rows)
	start := p.Offset
	if start > total {
		start = total
	}
	end := start + p.Limit
	if p.Limit <= 0 || end > total {
		end = total
	}
	return &Response{
		Data:    rows[start:end],
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.HasNext(total),
	}
}

// compare orders two display values: numerically when both are numbers,
// chronologically when both are timestamps, otherwise case-insensitively.
func compare(a, b string) int {
	if x, err := strconv.ParseFloat(strings.TrimSpace(a), 64); err == nil {
		if y, err := strconv.ParseFloat(strings.TrimSpace(b), 64); err == nil {
			return cmpOrdered(x, y)
		}
	}
	if x, ok := display.ParseTime(a); ok {
		if y, ok := display.ParseTime(b); ok {
			return x.Compare(y)
		}
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func cmpOrdered(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func matches(fields map[string]string, needle string) bool {
	for _, v := range fields {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}
