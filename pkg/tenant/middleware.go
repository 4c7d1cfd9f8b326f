package tenant

import (
	"errors"
	"net/http"
	"strings"
)

// ErrorHandler writes the response for resolution and guard failures.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type middlewareConfig struct {
	errorHandler ErrorHandler
	skipPaths    []string
}

// MiddlewareOption configures the resolution middleware.
type MiddlewareOption func(*middlewareConfig)

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(handler ErrorHandler) MiddlewareOption {
	return func(c *middlewareConfig) {
		if handler != nil {
			c.errorHandler = handler
		}
	}
}

// WithSkipPaths lists path prefixes that bypass resolution entirely, such as
// health checks and static assets.
func WithSkipPaths(paths ...string) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.skipPaths = append(c.skipPaths, paths...)
	}
}

// Middleware resolves the access scope for every request and stores it in
// the request context. In strict mode unresolved requests are rejected with
// the configured error handler.
func Middleware(factory *Factory, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{errorHandler: defaultErrorHandler}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			access, err := factory.Resolve(r)
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccess(r.Context(), access)))
		})
	}
}

// RequireTenant guards routes that must run inside a tenant. Anonymous
// scopes and admin scopes without a tenant are rejected; platform admins
// pass only when they carry an explicit tenant.
func RequireTenant(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = defaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access, ok := FromContext(r.Context())
			if !ok {
				errorHandler(w, r, ErrNoAccessInContext)
				return
			}
			if access.TenantID() == "" && !access.IsPlatformAdmin() {
				errorHandler(w, r, ErrTenantRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthenticated guards routes that accept any identified caller,
// tenant-bound or platform admin, but never anonymous.
func RequireAuthenticated(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = defaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access, ok := FromContext(r.Context())
			if !ok || access.IsAnonymous() {
				errorHandler(w, r, ErrAuthenticationRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrAuthenticationRequired), errors.Is(err, ErrNoAccessInContext):
		http.Error(w, "Authentication required", http.StatusUnauthorized)
	case errors.Is(err, ErrTenantRequired):
		http.Error(w, "Tenant required", http.StatusForbidden)
	case errors.Is(err, ErrInvalidCredential):
		http.Error(w, "Invalid credential", http.StatusUnauthorized)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
