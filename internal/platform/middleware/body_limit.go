package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// BodyLimit returns middleware that rejects request bodies larger than the
// given limit. Limits are human readable: "1M", "512K", or a bare byte
// count. Oversized requests get a 413 before the handler runs.
func BodyLimit(limit string) echo.MiddlewareFunc {
	maxBytes := parseLimit(limit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			if req.ContentLength > maxBytes {
				return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Request body too large")
			}

			// Content-Length can lie or be absent; enforce while reading.
			req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBytes)
			err := next(c)
			if err != nil && isMaxBytesError(err) {
				return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Request body too large")
			}
			return err
		}
	}
}

func isMaxBytesError(err error) bool {
	_, ok := err.(*http.MaxBytesError)
	if ok {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

// parseLimit converts "1M" style strings to bytes. Unparseable input falls
// back to 1 megabyte.
func parseLimit(s string) int64 {
	const fallback = 1 << 20

	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return fallback
	}

	multiplier := int64(1)
	switch s[len(s)-1] {
	case 'K':
		multiplier = 1 << 10
		s = s[:len(s)-1]
	case 'M':
		multiplier = 1 << 20
		s = s[:len(s)-1]
	case 'G':
		multiplier = 1 << 30
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n * multiplier
}
