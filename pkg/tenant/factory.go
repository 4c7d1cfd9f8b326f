package tenant

import (
	"context"
	"log/slog"
	"net/http"
)

// Mode selects what happens when every resolution strategy declines.
type Mode string

const (
	// ModeLenient resolves exhausted chains to an anonymous scope. The
	// request proceeds but matches no tenant's data.
	ModeLenient Mode = "lenient"
	// ModeStrict resolves exhausted chains to ErrAuthenticationRequired.
	ModeStrict Mode = "strict"
)

// Factory resolves the access scope for inbound requests by trying an
// ordered chain of strategies: signed credential, pre-authenticated
// principal, legacy headers. The first strategy that succeeds wins. Bad
// credentials are logged and the chain continues, so a stale token degrades
// to the next strategy instead of failing the request outright.
type Factory struct {
	resolvers []Resolver
	mode      Mode
	log       *slog.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithMode selects strict or lenient handling of unresolved requests.
// This is a deployment-time choice, not a per-request one.
func WithMode(mode Mode) FactoryOption {
	return func(f *Factory) {
		if mode == ModeStrict || mode == ModeLenient {
			f.mode = mode
		}
	}
}

// WithResolvers replaces the default strategy chain. Order is significant:
// strategies are tried first to last.
func WithResolvers(resolvers ...Resolver) FactoryOption {
	return func(f *Factory) {
		f.resolvers = resolvers
	}
}

// WithLegacyHeaders overrides the header names used by the legacy fallback
// strategy in the default chain.
func WithLegacyHeaders(tenantHeader, userHeader string) FactoryOption {
	return func(f *Factory) {
		for i, r := range f.resolvers {
			if _, ok := r.(*HeaderResolver); ok {
				f.resolvers[i] = NewHeaderResolver(tenantHeader, userHeader)
			}
		}
	}
}

// WithFactoryLogger sets the logger for credential warnings.
func WithFactoryLogger(log *slog.Logger) FactoryOption {
	return func(f *Factory) {
		if log != nil {
			f.log = log
		}
	}
}

// NewFactory builds a factory with the default chain: credential, principal,
// legacy headers. The mode defaults to lenient.
func NewFactory(verifier CredentialVerifier, opts ...FactoryOption) *Factory {
	f := &Factory{
		resolvers: []Resolver{
			NewCredentialResolver(verifier),
			NewPrincipalResolver(),
			NewHeaderResolver("", ""),
		},
		mode: ModeLenient,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Resolve walks the strategy chain and returns the first scope produced.
// Exhausting the chain yields Anonymous in lenient mode and
// ErrAuthenticationRequired in strict mode.
func (f *Factory) Resolve(r *http.Request) (Access, error) {
	for _, resolver := range f.resolvers {
		access, ok, err := resolver.Resolve(r)
		if err != nil {
			f.log.WarnContext(r.Context(), "credential verification failed",
				slog.String("component", "tenant"),
				slog.Any("error", err),
			)
			continue
		}
		if ok {
			return access, nil
		}
	}
	if f.mode == ModeStrict {
		return Access{}, ErrAuthenticationRequired
	}
	return Anonymous(), nil
}

// FromToken verifies a raw credential outside the HTTP path, for callers
// holding a token directly (websocket upgrades, job payloads).
func (f *Factory) FromToken(ctx context.Context, credential string) (Access, error) {
	for _, resolver := range f.resolvers {
		cr, ok := resolver.(*CredentialResolver)
		if !ok {
			continue
		}
		claims, err := cr.verifier.Verify(ctx, credential)
		if err != nil {
			return Access{}, err
		}
		return claims.Access(), nil
	}
	return Access{}, ErrInvalidCredential
}

// FromPrincipal maps an already-authenticated principal onto a scope without
// going through the chain.
func FromPrincipal(p Principal) Access {
	return p.Access()
}

// FromLegacyHeaders maps plain identification headers onto a scope using the
// default header names. ok is false when the tenant header is absent.
func FromLegacyHeaders(h http.Header) (Access, bool) {
	r := &http.Request{Header: h}
	access, ok, _ := NewHeaderResolver("", "").Resolve(r)
	return access, ok
}
