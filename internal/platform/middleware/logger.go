package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/caretrail/caretrail/internal/platform/requestctx"
)

// Logger emits one structured line per request. Clinical payloads and API
// keys never appear here; only routing metadata is logged.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())

			if pid := requestctx.ProviderID(c.Request().Context()); pid != "" {
				evt = evt.Str("provider_id", pid)
			}

			evt.Msg("request")

			return err
		}
	}
}
