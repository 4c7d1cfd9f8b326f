package requestctx

import (
	"context"
	"log/slog"
)

// contextKey is a private type to prevent collisions with other context keys.
type contextKey struct{}

// WithContext stores the envelope in ctx.
func WithContext(ctx context.Context, rc *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, rc)
}

// FromContext retrieves the envelope from ctx.
func FromContext(ctx context.Context) (*Context, bool) {
	rc, ok := ctx.Value(contextKey{}).(*Context)
	return rc, ok && rc != nil
}

// MustFromContext retrieves the envelope or panics. Use only behind the
// middleware.
func MustFromContext(ctx context.Context) *Context {
	rc, ok := FromContext(ctx)
	if !ok {
		panic("requestctx: no request context")
	}
	return rc
}

// Logger returns the request-bound logger from ctx, falling back to
// slog.Default when no envelope is present. Library code can always log
// through this without caring whether it runs inside a request.
func Logger(ctx context.Context) *slog.Logger {
	if rc, ok := FromContext(ctx); ok {
		return rc.Logger()
	}
	return slog.Default()
}

// LoggerExtractor injects the request ID into log records for loggers built
// by the logger package.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if rc, ok := FromContext(ctx); ok {
			return slog.String("request_id", rc.ID()), true
		}
		return slog.Attr{}, false
	}
}
