// Package pagination normalizes page/limit query parameters and derives the
// metadata returned with every paginated listing.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Params holds one-based page/limit pagination.
type Params struct {
	Page  int
	Limit int
}

// FromContext extracts raw pagination parameters from the echo context.
// Unparseable values come back as zero; callers normalize before use.
func FromContext(c echo.Context) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return Params{Page: page, Limit: limit}
}

// Normalize clamps the parameters to their valid range: page at least 1,
// limit defaulted when absent and capped at MaxLimit.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the SQL offset for the current page. Call on normalized
// params only.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages returns how many pages a result set of total rows spans.
func (p Params) TotalPages(total int) int {
	if p.Limit <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}
