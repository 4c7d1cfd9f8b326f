// Package requestctx builds and propagates the per-request envelope: request
// identity (ID, start time, method, path, client IP, user agent, a header
// subset), the caller's resolved access scope, a logger bound with both, and
// a mutable scratch map for request-scoped values.
//
// The envelope is created exactly once per request by the Middleware and
// travels inside context.Context. Retrieval from any call depth goes through
// FromContext; because the carrier is the request's own context, two
// requests in flight on the same worker pool can never observe each other's
// envelope, no matter how execution interleaves across I/O waits.
//
// # Usage
//
//	factory := tenant.NewFactory(verifier)
//	router.Use(requestctx.Middleware(factory,
//	    requestctx.WithLogger(log),
//	    requestctx.WithSlowThreshold(2*time.Second),
//	))
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    rc := requestctx.MustFromContext(r.Context())
//	    rc.Logger().Info("working")
//	    rc.Set("cart_id", cartID)
//	}
//
// The middleware logs "request started" at ingress and exactly one of
// "request completed", "request error" (5xx) or "slow request" (duration
// above the threshold, default one second) at egress, always with status and
// duration.
//
// # Scope changes mid-request
//
// The envelope is frozen except for its scratch map. When authentication
// state changes while a request is being handled (a login endpoint
// completes), RefreshInContext rebuilds the envelope around the new scope
// while keeping the request ID, start time and scratch values, so log
// correlation survives the privilege change.
package requestctx
