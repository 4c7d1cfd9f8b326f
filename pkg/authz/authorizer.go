package authz

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrymomot/tenantkit/pkg/apierror"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Authorizer answers permission checks against a fixed set of roles.
// All inherited permissions are flattened at construction, so checks are
// map lookups plus pattern matches with no locking; the Authorizer is
// immutable and safe for concurrent use.
type Authorizer struct {
	permissions map[string][]string
	names       []string
}

// NewAuthorizer loads roles from source and precomputes each role's full
// permission set. It fails on unnamed or duplicated roles, inheritance
// cycles, and chains deeper than the supported maximum. A role may
// inherit a name the source does not define; the unknown parent simply
// grants nothing, which lets one source revision reference roles that
// ship in the next.
func NewAuthorizer(ctx context.Context, source Source) (*Authorizer, error) {
	roles, err := source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("authz: load roles: %w", err)
	}

	byName := make(map[string]Role, len(roles))
	for _, role := range roles {
		if role.Name == "" {
			return nil, fmt.Errorf("%w: role with empty name", ErrInvalidSource)
		}
		if _, exists := byName[role.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate role %q", ErrInvalidSource, role.Name)
		}
		byName[role.Name] = role
	}

	permissions := make(map[string][]string, len(byName))
	names := make([]string, 0, len(byName))
	for name := range byName {
		perms, err := expandRole(name, byName, nil)
		if err != nil {
			return nil, err
		}
		permissions[name] = normalize(perms)
		names = append(names, name)
	}
	slices.Sort(names)

	return &Authorizer{permissions: permissions, names: names}, nil
}

// Can reports whether a caller holding the given role may exercise
// permission. Platform admins pass unconditionally. An unknown role is
// denied, so a stale or mistyped role name fails closed.
func (a *Authorizer) Can(access tenant.Access, role, permission string) error {
	if access.IsPlatformAdmin() {
		return nil
	}
	perms, ok := a.permissions[role]
	if !ok {
		return apierror.Authorization("unknown role").WithDetail("role", role)
	}
	if !hasPermission(perms, permission) {
		return apierror.Authorization("permission denied").
			WithDetail("role", role).
			WithDetail("permission", permission)
	}
	return nil
}

// CanAny reports whether the role holds at least one of the given
// permissions. An empty list always passes.
func (a *Authorizer) CanAny(access tenant.Access, role string, permissions ...string) error {
	if access.IsPlatformAdmin() || len(permissions) == 0 {
		return nil
	}
	perms, ok := a.permissions[role]
	if !ok {
		return apierror.Authorization("unknown role").WithDetail("role", role)
	}
	for _, p := range permissions {
		if hasPermission(perms, p) {
			return nil
		}
	}
	return apierror.Authorization("permission denied").
		WithDetail("role", role).
		WithDetail("permissions", permissions)
}

// CanAll reports whether the role holds every one of the given
// permissions. An empty list always passes.
func (a *Authorizer) CanAll(access tenant.Access, role string, permissions ...string) error {
	if access.IsPlatformAdmin() || len(permissions) == 0 {
		return nil
	}
	perms, ok := a.permissions[role]
	if !ok {
		return apierror.Authorization("unknown role").WithDetail("role", role)
	}
	for _, p := range permissions {
		if !hasPermission(perms, p) {
			return apierror.Authorization("permission denied").
				WithDetail("role", role).
				WithDetail("permission", p)
		}
	}
	return nil
}

// Roles returns every known role name, sorted.
func (a *Authorizer) Roles() []string {
	return slices.Clone(a.names)
}

// Permissions returns the flattened permission set of a role and whether
// the role exists.
func (a *Authorizer) Permissions(role string) ([]string, bool) {
	perms, ok := a.permissions[role]
	if !ok {
		return nil, false
	}
	return slices.Clone(perms), true
}

// RequireTenant reports whether the caller may act on tenantID. Platform
// admins may act on any tenant; everyone else is held to their primary
// tenant and allowed-tenants list.
func RequireTenant(access tenant.Access, tenantID string) error {
	if access.CanAccess(tenantID) {
		return nil
	}
	return apierror.Authorization("tenant access denied").WithDetail("tenant_id", tenantID)
}

// expandRole collects a role's permissions including everything it
// inherits. path carries the chain being expanded for cycle detection.
func expandRole(name string, roles map[string]Role, path []string) ([]string, error) {
	if slices.Contains(path, name) {
		return nil, fmt.Errorf("%w: %s", ErrCircularInheritance,
			strings.Join(append(path, name), " -> "))
	}
	if len(path) > maxInheritanceDepth {
		return nil, fmt.Errorf("%w: %q exceeds %d levels", ErrInheritanceTooDeep,
			path[0], maxInheritanceDepth)
	}

	role, ok := roles[name]
	if !ok {
		return nil, nil
	}

	perms := slices.Clone(role.Permissions)
	path = append(path, name)
	for _, parent := range role.Inherits {
		inherited, err := expandRole(parent, roles, path)
		if err != nil {
			return nil, err
		}
		perms = append(perms, inherited...)
	}
	return perms, nil
}
