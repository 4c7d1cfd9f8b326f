// Package ratelimit provides token bucket rate limiting keyed by the
// caller's identity.
//
// A Limiter enforces up to three independent dimensions per endpoint:
// the tenant, the user, and the client IP. Dimensions without an
// identity to key on are skipped, so anonymous traffic is limited by
// IP while authenticated traffic is also held to per-user and
// per-tenant budgets.
//
//	store := ratelimit.NewMemoryStore()
//	defer store.Close()
//
//	limiter := ratelimit.NewLimiter(store, ratelimit.Limits{
//		Tenant: ratelimit.PerMinute(600),
//		User:   ratelimit.PerMinute(120),
//		IP:     ratelimit.PerSecond(10),
//	})
//
//	r.Use(ratelimit.Middleware(limiter))
//
// Buckets refill continuously: PerMinute(60) releases one token per
// second instead of sixty at once on a minute boundary. A denied
// request consumes nothing, and the result reports how long the caller
// must wait before the request would fit.
//
// The middleware reads tenant and user identity from the request
// context, resolves the client IP, and answers exhausted budgets with
// 429, a Retry-After header, and X-RateLimit-* headers describing the
// tightest dimension.
package ratelimit
