// Package authz provides role-based permission checks layered on the
// caller's tenant access scope.
//
// Roles grant permission patterns ("projects:read", "projects:*", "*")
// and may inherit other roles. An Authorizer flattens the whole
// hierarchy once at construction, validating it for cycles and
// excessive depth, so per-request checks never walk the graph.
//
//	source := authz.NewMemorySource(
//		authz.Role{Name: "viewer", Permissions: []string{"projects:read"}},
//		authz.Role{Name: "editor", Permissions: []string{"projects:*"}, Inherits: []string{"viewer"}},
//	)
//	auth, err := authz.NewAuthorizer(ctx, source)
//	if err != nil {
//		return err
//	}
//	if err := auth.Can(access, membership.Role, "projects:write"); err != nil {
//		return err
//	}
//
// Platform admins pass every check unconditionally. The role itself is
// passed per call because a caller's role is tenant membership data the
// application owns; the access scope only states who the caller is and
// which tenants they may reach. RequireTenant covers the membership
// predicate on its own.
//
// Role definitions come from a Source: NewMemorySource for wiring roles
// in code, NewFileSource for a YAML file.
package authz
