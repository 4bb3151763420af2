package correlation

import (
	"context"

	"github.com/oklog/ulid/v2"
)

type contextKey struct{}

// EnsureCorrelationID returns the correlation id bound to ctx, minting one
// when absent.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if cid, ok := ctx.Value(contextKey{}).(string); ok && cid != "" {
		return ctx, cid
	}

	cid := newID()
	return context.WithValue(ctx, contextKey{}, cid), cid
}

// FromContext returns the correlation id bound to ctx, if any.
func FromContext(ctx context.Context) string {
	cid, _ := ctx.Value(contextKey{}).(string)
	return cid
}

// WithCorrelationID binds an externally supplied correlation id to ctx.
func WithCorrelationID(ctx context.Context, cid string) context.Context {
	if cid == "" {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, cid)
}

func newID() string {
	return ulid.Make().String()
}
