// Package requestctx carries per-request identity through context.Context.
// The request id is attached by the RequestID middleware and the provider id
// by the API key middleware; downstream components read them without explicit
// parameter threading and nothing leaks across concurrent requests.
package requestctx

import (
	"context"
	"time"
)

type contextKey string

const requestContextKey contextKey = "request_context"

// RequestContext holds the identity of one in-flight request. It is never
// persisted and is discarded when the request completes.
type RequestContext struct {
	RequestID  string
	ProviderID string
	Timestamp  time.Time
}

// With returns a context carrying rc.
func With(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// From returns the request context, or a zero value when none is attached.
func From(ctx context.Context) RequestContext {
	rc, _ := ctx.Value(requestContextKey).(RequestContext)
	return rc
}

// WithProviderID copies the current request context, sets the provider id,
// and returns the updated context. Used by the auth middleware once the
// caller is identified.
func WithProviderID(ctx context.Context, providerID string) context.Context {
	rc := From(ctx)
	rc.ProviderID = providerID
	return With(ctx, rc)
}

// RequestID returns the request id, or "" when no request context is attached.
func RequestID(ctx context.Context) string {
	return From(ctx).RequestID
}

// ProviderID returns the authenticated provider id, or "" for anonymous requests.
func ProviderID(ctx context.Context) string {
	return From(ctx).ProviderID
}
