package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/caretrail/caretrail/internal/platform/requestctx"
)

const (
	providerContextKey = "provider"
	authContextKey     = "auth_context"
)

// Middleware returns echo middleware that authenticates every request on the
// group it is mounted on. On success it attaches the provider to the echo
// context, records the provider id in the request context for downstream
// components, and builds the AuthContext.
func Middleware(a *Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			p, err := a.Authenticate(req.Context(), req.Header.Get(HeaderAPIKey))
			if err != nil {
				return err
			}

			rid, _ := c.Get("request_id").(string)
			c.Set(providerContextKey, p)
			c.Set(authContextKey, &AuthContext{
				Provider:  *p,
				RequestID: rid,
				IPAddress: c.RealIP(),
				UserAgent: req.UserAgent(),
			})

			ctx := requestctx.WithProviderID(req.Context(), p.ID.String())
			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}

// ProviderFromEcho returns the authenticated provider attached by Middleware,
// or nil when the request is anonymous.
func ProviderFromEcho(c echo.Context) *AuthenticatedProvider {
	p, _ := c.Get(providerContextKey).(*AuthenticatedProvider)
	return p
}

// ContextFromEcho returns the AuthContext attached by Middleware, or nil.
func ContextFromEcho(c echo.Context) *AuthContext {
	ac, _ := c.Get(authContextKey).(*AuthContext)
	return ac
}
