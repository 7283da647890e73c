package apperror

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// HTTPErrorHandler returns the central echo error handler. It converts any
// error into the client envelope, echoes the request id header, and logs
// operational errors at info level and non-operational ones at error level.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		rid, _ := c.Get("request_id").(string)

		ae := translate(err)
		if ae.RequestID == "" {
			ae.RequestID = rid
		}

		evt := logger.Info()
		if !ae.Operational {
			evt = logger.Error().Str("internal", ae.Internal)
		}
		evt.
			Str("request_id", ae.RequestID).
			Str("method", c.Request().Method).
			Str("path", c.Request().URL.Path).
			Int("status", ae.Status).
			Msg(ae.Message)

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(ae.Status)
			return
		}
		_ = c.JSON(ae.Status, ae.ToClientResponse())
	}
}

// translate maps echo's own HTTP errors (route not found, method not allowed,
// bind failures) into the taxonomy so every client response uses one envelope.
func translate(err error) *AppError {
	if he, ok := err.(*echo.HTTPError); ok {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		return newError(msg, "", he.Code, he.Code < http.StatusInternalServerError)
	}
	return From(err)
}
