// Package tenant resolves and carries the access scope of a caller in a
// multi-tenant system: who they are, which tenant they act in, and whether
// they are exempt from tenant filtering.
//
// # Architecture
//
// The package is built around three pieces:
//
//  1. Access - an immutable value object holding the resolved scope. Every
//     data-access layer derives its tenant constraint from
//     Access.TenantFilter, so queries cannot forget tenant scoping.
//  2. Resolvers - strategies that derive an Access from an inbound request:
//     a signed credential, a pre-authenticated principal, legacy headers.
//  3. Factory - tries the strategies in order, first success wins. What
//     happens when all decline is a deployment choice: lenient mode yields
//     an anonymous scope that matches no data, strict mode rejects the
//     request with ErrAuthenticationRequired.
//
// # Usage
//
//	verifier, err := tenant.NewVerifier([]byte(cfg.SigningKey))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	factory := tenant.NewFactory(verifier,
//	    tenant.WithMode(tenant.ModeStrict),
//	)
//
//	router.Use(tenant.Middleware(factory))
//
//	// In any handler or service:
//	access, ok := tenant.FromContext(r.Context())
//	if access.CanAccess(targetTenant) { ... }
//
// # Scope semantics
//
// Regular callers carry a primary tenant plus optional extra tenants they
// may read (agency accounts). Platform admins carry no tenant and derive an
// unrestricted filter. Anonymous scopes derive a filter over the empty
// tenant ID, which matches no stored data, so a forgotten credential can
// never widen access.
//
// Access is immutable. Changing scope mid-request (after a login completes)
// means resolving a new Access and rebuilding the request envelope, never
// mutating the existing value.
package tenant
