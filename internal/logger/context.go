package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts a logger from the context.
// Returns zap.NewNop() if no logger is found.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithTenant returns a context whose logger tags every entry with the
// tenant. Sweep and sync paths fan out per tenant; tagging once at the
// fan-out point keeps the field off every individual call site.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return ContextWithLogger(ctx, FromContext(ctx).With(zap.String("tenant", tenantID)))
}
