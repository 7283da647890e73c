package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/caretrail/caretrail/internal/platform/requestctx"
)

// RequestIDHeader carries the correlation id between client and server.
const RequestIDHeader = "X-Request-ID"

// RequestID returns middleware that assigns each request a correlation id.
// A client-supplied X-Request-ID is preserved; otherwise one is generated.
// The id is echoed in the response header, stored on the echo context, and
// recorded in the request context for downstream components.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			rid := req.Header.Get(RequestIDHeader)
			if rid == "" {
				rid = uuid.NewString()
			}

			c.Set("request_id", rid)
			c.Response().Header().Set(RequestIDHeader, rid)

			ctx := requestctx.With(req.Context(), requestctx.RequestContext{
				RequestID: rid,
				Timestamp: time.Now().UTC(),
			})
			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}
