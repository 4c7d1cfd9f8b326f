package tenant

import "errors"

var (
	// ErrInvalidCredential is returned when a signed credential is present
	// but fails verification (bad signature, expired, malformed claims).
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrAuthenticationRequired is returned by strict-mode resolution when
	// no strategy produced an access scope.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrNoAccessInContext is returned when an access scope is required but
	// absent from the context.
	ErrNoAccessInContext = errors.New("no access scope in context")

	// ErrTenantRequired is returned by guards protecting tenant-scoped
	// routes when the resolved scope carries no tenant.
	ErrTenantRequired = errors.New("tenant required")
)
