// Package cache provides a tenant-aware, two-tier cache-aside layer: a
// bounded, TTL-aware LRU tier in process and an optional shared remote tier
// behind a circuit breaker.
//
// # Tiers
//
// The local tier is a generic LRU cache bounded by capacity. Entries carry
// an individual TTL and are dropped lazily on access plus by a background
// sweep. When the cache is full, inserting a new key evicts the least
// recently used entry.
//
// The remote tier is anything implementing Remote; RedisRemote is the
// provided implementation. Wrapping it in a BreakerRemote makes a failing
// backend degrade to fast local-only operation instead of adding a timeout
// to every request. Remote failures are logged and treated as misses, never
// returned to callers.
//
// # Tenant isolation
//
// The Manager qualifies every key with the caller's tenant namespace,
// resolved from the request context (or pinned with WithScope for
// background work):
//
//	t:{tenantID}:{key}   tenant-scoped entries
//	global:{key}         callers without a tenant
//
// Two tenants using the same logical key therefore hit different cache
// entries, in both tiers:
//
//	manager.Set(ctxTenantA, "dashboard", va, time.Minute)
//	manager.Get(ctxTenantB, "dashboard", &vb) // miss
//
// ClearTenant invalidates one tenant's namespace across both tiers.
//
// # Wiring
//
//	client, err := redis.Connect(ctx, redisCfg)
//	if err != nil { ... }
//	manager := cache.NewManager(10_000,
//		cache.WithRemote(cache.NewBreakerRemote(cache.NewRedisRemote(client))),
//		cache.WithDefaultTTL(5*time.Minute),
//	)
//	defer manager.Close()
//
// # Cache-aside helper
//
// Wrap turns any read function into a cached one:
//
//	loadUser := func(ctx context.Context, id string) (User, error) { ... }
//	cachedUser := cache.Wrap(manager, "user", loadUser, cache.WrapConfig[string]{
//		TTL: time.Minute,
//	})
//	u, err := cachedUser(ctx, "u_1") // first call loads, later calls hit
//
// Values cross the cache as JSON, so wrapped functions should return types
// that survive a JSON round trip.
package cache
