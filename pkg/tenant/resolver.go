package tenant

import (
	"net/http"
	"strings"
)

// Default header names for the deprecated header-based fallback.
const (
	DefaultTenantHeader = "X-Tenant-ID"
	DefaultUserHeader   = "X-User-ID"
)

// Resolver is one strategy for deriving a caller's access scope from an
// inbound request. A strategy that does not apply to the request returns
// ok=false with a nil error; a non-nil error means the strategy matched but
// the evidence was bad (typically a credential that failed verification).
type Resolver interface {
	Resolve(r *http.Request) (access Access, ok bool, err error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(r *http.Request) (Access, bool, error)

// Resolve calls the function.
func (f ResolverFunc) Resolve(r *http.Request) (Access, bool, error) {
	return f(r)
}

// CredentialResolver verifies a bearer credential from the Authorization
// header and maps its claims onto an Access. Requests without a bearer
// credential are declined; verification failures are errors.
type CredentialResolver struct {
	verifier CredentialVerifier
}

// NewCredentialResolver creates the credential strategy.
func NewCredentialResolver(verifier CredentialVerifier) *CredentialResolver {
	return &CredentialResolver{verifier: verifier}
}

// Resolve implements Resolver.
func (cr *CredentialResolver) Resolve(r *http.Request) (Access, bool, error) {
	credential := bearerToken(r)
	if credential == "" {
		return Access{}, false, nil
	}
	claims, err := cr.verifier.Verify(r.Context(), credential)
	if err != nil {
		return Access{}, false, err
	}
	return claims.Access(), true, nil
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	scheme, token, found := strings.Cut(auth, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Principal is an already-authenticated caller placed in the request context
// by upstream authentication middleware (sessions, OAuth callbacks). The
// principal strategy trusts it as-is; verification happened upstream.
type Principal struct {
	UserID         string
	TenantID       string
	PlatformAdmin  bool
	AllowedTenants []string
}

// Access maps the principal onto an access scope.
func (p Principal) Access() Access {
	if p.PlatformAdmin {
		return PlatformAdmin(p.UserID).InTenant(p.TenantID)
	}
	return NewAccess(p.UserID, p.TenantID, p.AllowedTenants...)
}

// PrincipalResolver reads a pre-populated Principal from the request
// context. Declines when no principal was set.
type PrincipalResolver struct{}

// NewPrincipalResolver creates the principal strategy.
func NewPrincipalResolver() *PrincipalResolver {
	return &PrincipalResolver{}
}

// Resolve implements Resolver.
func (*PrincipalResolver) Resolve(r *http.Request) (Access, bool, error) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		return Access{}, false, nil
	}
	return p.Access(), true, nil
}

// HeaderResolver reads tenant and user identifiers from plain headers.
// Deprecated transport kept for callers that predate signed credentials; the
// headers are trusted blindly, so terminate them at the edge proxy.
type HeaderResolver struct {
	tenantHeader string
	userHeader   string
}

// NewHeaderResolver creates the legacy header strategy. Empty names fall
// back to DefaultTenantHeader and DefaultUserHeader.
func NewHeaderResolver(tenantHeader, userHeader string) *HeaderResolver {
	if tenantHeader == "" {
		tenantHeader = DefaultTenantHeader
	}
	if userHeader == "" {
		userHeader = DefaultUserHeader
	}
	return &HeaderResolver{tenantHeader: tenantHeader, userHeader: userHeader}
}

// Resolve implements Resolver. Declines unless the tenant header is present.
func (hr *HeaderResolver) Resolve(r *http.Request) (Access, bool, error) {
	tenantID := strings.TrimSpace(r.Header.Get(hr.tenantHeader))
	if tenantID == "" {
		return Access{}, false, nil
	}
	userID := strings.TrimSpace(r.Header.Get(hr.userHeader))
	return NewAccess(userID, tenantID), true, nil
}
