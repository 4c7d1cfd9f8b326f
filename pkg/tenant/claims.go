package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RolePlatformAdmin is the platform_role claim value granting an
// unrestricted scope.
const RolePlatformAdmin = "platform_admin"

// Claims is the payload of a signed credential. PlatformRole and
// AllowedTenants extend the registered claims with the tenancy fields the
// resolver maps onto an Access.
type Claims struct {
	UserID         string   `json:"user_id"`
	TenantID       string   `json:"tenant_id,omitempty"`
	PlatformRole   string   `json:"platform_role,omitempty"`
	AllowedTenants []string `json:"allowed_tenants,omitempty"`
	jwt.RegisteredClaims
}

// Access maps the claims onto an access scope. Admin claims naming a tenant
// produce an admin scope acting within that tenant.
func (c Claims) Access() Access {
	if c.PlatformRole == RolePlatformAdmin {
		return PlatformAdmin(c.UserID).InTenant(c.TenantID)
	}
	return NewAccess(c.UserID, c.TenantID, c.AllowedTenants...)
}

// CredentialVerifier checks a signed credential and returns its claims.
// Implementations must reject tampered, expired and malformed tokens.
type CredentialVerifier interface {
	Verify(ctx context.Context, credential string) (Claims, error)
}

// Verifier is the HMAC-SHA256 CredentialVerifier. The signing key must be
// shared with whatever service issues the credentials.
type Verifier struct {
	signingKey []byte
	issuer     string
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithIssuer pins the expected iss claim. Tokens from other issuers are
// rejected.
func WithIssuer(issuer string) VerifierOption {
	return func(v *Verifier) { v.issuer = issuer }
}

// NewVerifier creates a Verifier from a shared signing key.
func NewVerifier(signingKey []byte, opts ...VerifierOption) (*Verifier, error) {
	if len(signingKey) == 0 {
		return nil, errors.New("tenant: empty signing key")
	}
	v := &Verifier{signingKey: signingKey}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify parses and validates the credential, returning its claims. All
// failures are reported as ErrInvalidCredential with the parser error
// joined for logs.
func (v *Verifier) Verify(_ context.Context, credential string) (Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(credential, &claims, func(t *jwt.Token) (any, error) {
		return v.signingKey, nil
	}, opts...)
	if err != nil {
		return Claims{}, errors.Join(ErrInvalidCredential, err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidCredential
	}
	return claims, nil
}

// Issue signs a credential for the given scope, valid for ttl. Services use
// it when minting session tokens; tests use it to fabricate callers.
func (v *Verifier) Issue(access Access, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:         access.UserID(),
		TenantID:       access.TenantID(),
		AllowedTenants: access.AllowedTenants(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   access.UserID(),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if access.IsPlatformAdmin() {
		claims.PlatformRole = RolePlatformAdmin
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.signingKey)
}
