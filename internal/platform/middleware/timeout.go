package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/caretrail/caretrail/internal/platform/apperror"
)

// RequestTimeout returns middleware that sets a context deadline on each
// incoming request. If the deadline is exceeded before the handler completes,
// the request context is cancelled and a 504 envelope is written. The handler
// goroutine may still be running at that point; its writes are dropped so the
// abandoned handler can never touch the response after the timeout reply.
// Handlers observe the cancellation through the request context they pass to
// the repositories.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))

			tw := &timeoutWriter{ResponseWriter: c.Response().Writer}
			c.Response().Writer = tw

			// Run the handler in a goroutine so we can select on the context.
			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded {
					tw.reject(apperror.GatewayTimeout(
						"Request processing exceeded the allowed time limit", ""))
					return nil
				}
				return ctx.Err()
			}
		}
	}
}

// timeoutWriter serializes access to the underlying writer. Once rejected,
// every write from the abandoned handler is discarded.
type timeoutWriter struct {
	http.ResponseWriter
	mu        sync.Mutex
	timedOut  bool
	committed bool
}

func (w *timeoutWriter) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return
	}
	w.committed = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *timeoutWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	w.committed = true
	return w.ResponseWriter.Write(b)
}

// reject cuts the handler off and, unless a response already reached the
// client, writes the timeout envelope itself.
func (w *timeoutWriter) reject(err *apperror.AppError) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timedOut = true
	if w.committed {
		return
	}
	w.ResponseWriter.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSONCharsetUTF8)
	w.ResponseWriter.WriteHeader(err.Status)
	_ = json.NewEncoder(w.ResponseWriter).Encode(err.ToClientResponse())
}
