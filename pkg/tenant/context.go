package tenant

import (
	"context"
	"log/slog"
)

// accessKey is a private type to prevent collisions with other context keys.
type accessKey struct{}

// principalKey holds the pre-authenticated principal set by upstream
// middleware.
type principalKey struct{}

// WithAccess stores the resolved access scope in the context.
func WithAccess(ctx context.Context, access Access) context.Context {
	return context.WithValue(ctx, accessKey{}, access)
}

// FromContext retrieves the access scope from the context.
func FromContext(ctx context.Context) (Access, bool) {
	access, ok := ctx.Value(accessKey{}).(Access)
	return access, ok
}

// MustFromContext retrieves the access scope or panics. Use only in code
// that runs strictly behind the resolution middleware.
func MustFromContext(ctx context.Context) Access {
	access, ok := FromContext(ctx)
	if !ok {
		panic("tenant: no access scope in context")
	}
	return access
}

// WithPrincipal stores an authenticated principal for the principal
// resolution strategy to pick up.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext retrieves the principal set by upstream middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// LoggerExtractor injects tenant_id and user_id from the context scope into
// log records.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		access, ok := FromContext(ctx)
		if !ok || access.IsAnonymous() {
			return slog.Attr{}, false
		}
		return slog.Any("access", access), true
	}
}
