package tenant

import (
	"log/slog"
	"slices"
)

// Access is the resolved access scope of one caller: who they are, which
// tenant they act in, and which additional tenants they may reach. It is an
// immutable value object; constructors copy every slice in and getters copy
// out, so a resolved scope can never change under a request in flight.
type Access struct {
	userID         string
	tenantID       string
	platformAdmin  bool
	allowedTenants []string
}

// NewAccess builds the scope of a regular caller acting in tenantID.
// Additional tenant IDs grant cross-tenant read access (e.g. agency accounts
// managing several customer workspaces). Duplicates and the primary tenant
// are dropped from the extra list.
func NewAccess(userID, tenantID string, allowedTenants ...string) Access {
	extra := make([]string, 0, len(allowedTenants))
	for _, id := range allowedTenants {
		if id == "" || id == tenantID || slices.Contains(extra, id) {
			continue
		}
		extra = append(extra, id)
	}
	return Access{
		userID:         userID,
		tenantID:       tenantID,
		allowedTenants: extra,
	}
}

// PlatformAdmin builds an unrestricted scope for system operators and
// background jobs. No tenant filter is derived from it.
func PlatformAdmin(userID string) Access {
	return Access{
		userID:        userID,
		platformAdmin: true,
	}
}

// Anonymous builds the empty scope used when lenient resolution exhausts its
// chain. It carries no user, no tenant, and matches no tenant's data.
func Anonymous() Access {
	return Access{}
}

// InTenant returns a copy of the scope acting within tenantID. Platform
// admins use it to work inside a single tenant: reads stay unrestricted,
// writes stamp that tenant. An empty tenantID leaves the scope unchanged.
func (a Access) InTenant(tenantID string) Access {
	if tenantID != "" {
		a.tenantID = tenantID
	}
	return a
}

// UserID returns the caller's user identifier, empty for anonymous scopes.
func (a Access) UserID() string { return a.userID }

// TenantID returns the caller's primary tenant, empty for platform admins
// and anonymous scopes.
func (a Access) TenantID() string { return a.tenantID }

// IsPlatformAdmin reports whether the scope is exempt from tenant filtering.
func (a Access) IsPlatformAdmin() bool { return a.platformAdmin }

// IsAnonymous reports whether the scope identifies no caller at all.
func (a Access) IsAnonymous() bool {
	return a.userID == "" && a.tenantID == "" && !a.platformAdmin
}

// AllowedTenants returns a copy of the additional tenant IDs the caller may
// reach beyond the primary tenant.
func (a Access) AllowedTenants() []string {
	return slices.Clone(a.allowedTenants)
}

// CanAccess reports whether the scope covers tenantID. Platform admins cover
// every tenant; anonymous scopes cover none.
func (a Access) CanAccess(tenantID string) bool {
	if a.platformAdmin {
		return true
	}
	if tenantID == "" || a.tenantID == "" {
		return false
	}
	return tenantID == a.tenantID || slices.Contains(a.allowedTenants, tenantID)
}

// Filter is the storage-agnostic tenant constraint derived from a scope.
// Storage layers translate it into their native query shape: nothing for
// unrestricted scopes, an equality on a single ID, or a set-membership test
// over several.
type Filter struct {
	// Unrestricted means no tenant constraint applies at all.
	Unrestricted bool
	// TenantIDs is the union of tenants the caller may read. Empty only
	// when Unrestricted.
	TenantIDs []string
}

// TenantFilter derives the query constraint for this scope. Platform admins
// get an unrestricted filter. Everyone else gets the union of their primary
// tenant and allowed tenants; for anonymous scopes that union is the empty
// tenant ID, which matches no stored document.
func (a Access) TenantFilter() Filter {
	if a.platformAdmin {
		return Filter{Unrestricted: true}
	}
	ids := make([]string, 0, 1+len(a.allowedTenants))
	ids = append(ids, a.tenantID)
	ids = append(ids, a.allowedTenants...)
	return Filter{TenantIDs: ids}
}

// LogValue renders the scope as a structured group so loggers never print
// internals field by field.
func (a Access) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("user_id", a.userID),
		slog.String("tenant_id", a.tenantID),
	}
	if a.platformAdmin {
		attrs = append(attrs, slog.Bool("platform_admin", true))
	}
	return slog.GroupValue(attrs...)
}
