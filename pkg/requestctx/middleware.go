package requestctx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/tenantkit/pkg/apierror"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// DefaultSlowThreshold flags requests slower than this as "slow request".
const DefaultSlowThreshold = time.Second

// AccessResolver resolves the caller's scope for a request. *tenant.Factory
// implements it.
type AccessResolver interface {
	Resolve(r *http.Request) (tenant.Access, error)
}

type middlewareConfig struct {
	log           *slog.Logger
	slowThreshold time.Duration
	renderer      *apierror.Renderer
	allowlist     []string
}

// MiddlewareOption configures the middleware.
type MiddlewareOption func(*middlewareConfig)

// WithLogger sets the base logger the envelope binds onto.
func WithLogger(log *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// WithSlowThreshold overrides the slow-request threshold.
func WithSlowThreshold(d time.Duration) MiddlewareOption {
	return func(c *middlewareConfig) {
		if d > 0 {
			c.slowThreshold = d
		}
	}
}

// WithRenderer sets the renderer used for resolution failures.
func WithRenderer(r *apierror.Renderer) MiddlewareOption {
	return func(c *middlewareConfig) {
		if r != nil {
			c.renderer = r
		}
	}
}

// WithCapturedHeaders replaces the request headers captured into the
// envelope.
func WithCapturedHeaders(names ...string) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.allowlist = names
	}
}

// Middleware is the ingress point of the request lifecycle: it resolves the
// caller's access scope, builds the envelope exactly once, publishes it (and
// the scope) through the request context, and logs the request start and
// outcome with status and duration.
func Middleware(resolver AccessResolver, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{
		log:           slog.Default(),
		slowThreshold: DefaultSlowThreshold,
		renderer:      apierror.NewRenderer(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access, err := resolver.Resolve(r)
			if err != nil {
				if errors.Is(err, tenant.ErrAuthenticationRequired) {
					cfg.renderer.Render(w, apierror.Authentication("authentication required"))
					return
				}
				cfg.renderer.Render(w, err)
				return
			}

			envOpts := []Option{WithBaseLogger(cfg.log)}
			if cfg.allowlist != nil {
				envOpts = append(envOpts, WithHeaderAllowlist(cfg.allowlist...))
			}
			rc := New(r, access, envOpts...)

			ctx := WithContext(r.Context(), rc)
			ctx = tenant.WithAccess(ctx, access)

			w.Header().Set(Header, rc.ID())
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			rc.Logger().InfoContext(ctx, "request started",
				slog.String("method", rc.Method()),
				slog.String("path", rc.Path()),
				slog.String("ip", rc.IP()),
			)

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				duration := rc.Elapsed()
				attrs := []any{
					slog.Int("status", status),
					slog.Duration("duration", duration),
					slog.Int("bytes", ww.BytesWritten()),
				}
				switch {
				case status >= http.StatusInternalServerError:
					rc.Logger().ErrorContext(ctx, "request error", attrs...)
				case duration > cfg.slowThreshold:
					rc.Logger().WarnContext(ctx, "slow request", attrs...)
				default:
					rc.Logger().InfoContext(ctx, "request completed", attrs...)
				}
			}()

			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}

// RefreshInContext swaps the envelope after an authentication state change:
// it rebuilds the envelope with the new scope and returns a context carrying
// both. The original request ID, start time and scratch values survive.
func RefreshInContext(ctx context.Context, access tenant.Access, reason string) context.Context {
	rc, ok := FromContext(ctx)
	if !ok {
		return ctx
	}
	next := rc.Refresh(access, reason)
	ctx = WithContext(ctx, next)
	return tenant.WithAccess(ctx, access)
}
