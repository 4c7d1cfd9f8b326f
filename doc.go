// Package tenantkit is a multi-tenant backend framework core. Its job is
// tenant isolation: resolve an authenticated caller's access scope once
// per request, carry it implicitly to every downstream call, enforce it
// at the query layer so no code path can read or write another tenant's
// data, and layer auditing, rate limiting and caching on top without
// weakening that guarantee under concurrent traffic.
//
// The subsystems live in pkg/ and are usable on their own:
//
//   - pkg/tenant: the immutable Access scope, credential verification and
//     the resolution fallback chain.
//   - pkg/requestctx: the per-request envelope and its context propagation.
//   - pkg/repository: tenant-enforced, soft-delete-aware generic CRUD.
//   - pkg/audit: best-effort append-only event trail with pluggable stores.
//   - pkg/ratelimit: multi-dimension token-bucket admission control.
//   - pkg/cache: two-tier tenant-namespaced cache-aside layer.
//   - pkg/authz: role and permission predicates over the access scope.
//
// Core wires them together with explicit dependency injection:
//
//	cfg, err := config.Load[tenantkit.Config]()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	core, err := tenantkit.New(ctx, cfg,
//		tenantkit.WithAuditStorage(auditStore),
//		tenantkit.WithCacheRemote(cache.NewRedisRemote(redisClient)),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer core.Close(context.Background())
//
//	r := chi.NewRouter()
//	r.Use(core.Middleware())
//
//	srv := httpserver.New(httpserver.WithLogger(core.Logger()))
//	if err := srv.Run(ctx, r); err != nil {
//		log.Fatal(err)
//	}
//
// Handlers below the middleware reach the caller's scope with
// tenant.FromContext and build repositories over their collections; every
// query those repositories issue is scoped to the caller's tenants.
package tenantkit
