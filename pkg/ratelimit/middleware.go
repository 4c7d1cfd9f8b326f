package ratelimit

import (
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/tenantkit/pkg/apierror"
	"github.com/dmitrymomot/tenantkit/pkg/clientip"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// EndpointFunc derives the endpoint component of bucket keys from a
// request.
type EndpointFunc func(r *http.Request) string

// SkipFunc reports whether a request bypasses rate limiting entirely.
type SkipFunc func(r *http.Request) bool

// RoutePattern keys buckets by HTTP method and the matched chi route
// pattern, so /projects/p_1 and /projects/p_2 share a bucket. Falls
// back to the raw URL path when no pattern has been matched yet, which
// is the case for middleware mounted ahead of the router.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return r.Method + " " + pattern
		}
	}
	return r.Method + " " + r.URL.Path
}

type middlewareConfig struct {
	renderer *apierror.Renderer
	endpoint EndpointFunc
	skip     SkipFunc
}

// MiddlewareOption configures the rate limiting middleware.
type MiddlewareOption func(*middlewareConfig)

// WithRenderer overrides the error renderer used for denial responses.
func WithRenderer(renderer *apierror.Renderer) MiddlewareOption {
	return func(c *middlewareConfig) {
		if renderer != nil {
			c.renderer = renderer
		}
	}
}

// WithEndpointFunc overrides how bucket keys identify the endpoint.
func WithEndpointFunc(fn EndpointFunc) MiddlewareOption {
	return func(c *middlewareConfig) {
		if fn != nil {
			c.endpoint = fn
		}
	}
}

// WithSkipFunc exempts matching requests from rate limiting, e.g.
// health checks or internal probes.
func WithSkipFunc(fn SkipFunc) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.skip = fn
	}
}

// Middleware enforces the limiter on every request passing through it.
// Caller identity comes from the request context: tenant and user from
// the ambient access, the client IP from the clientip middleware when
// present. Denials get a 429 with a Retry-After header and a JSON body
// naming the exhausted dimension.
func Middleware(limiter *Limiter, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{
		renderer: apierror.NewRenderer(),
		endpoint: RoutePattern,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.skip != nil && cfg.skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			access, _ := tenant.FromContext(ctx)
			ip := clientip.FromContext(ctx)
			if ip == "" {
				ip = clientip.GetIP(r)
			}

			result := limiter.Check(ctx, access, ip, cfg.endpoint(r))
			setRateHeaders(w, result)
			if !result.Allowed {
				cfg.renderer.Render(w, apierror.RateLimited(result.RetryAfter).
					WithDetail("dimension", result.Dimension))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// setRateHeaders exposes the tightest dimension's state. Skipped when
// no limit applied to the request, so unlimited callers do not see
// zeroed headers.
func setRateHeaders(w http.ResponseWriter, result Result) {
	if result.Limit <= 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(int64(result.Limit), 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(int64(math.Max(0, math.Floor(result.Remaining))), 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
