package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// maxKeyLength bounds storage keys; longer composites are hashed so
// arbitrary endpoint patterns cannot blow up key size.
const maxKeyLength = 128

// Limits holds the per-dimension limits a Limiter enforces. A zero
// limit disables its dimension.
type Limits struct {
	Tenant Limit
	User   Limit
	IP     Limit
}

// Limiter enforces request limits across up to three dimensions of the
// caller's identity: the tenant, the user, and the client IP. Each
// dimension keeps an independent bucket per endpoint, so a burst
// against one route does not starve the rest of the API.
type Limiter struct {
	store  Store
	limits Limits
	log    *slog.Logger
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithLogger sets the logger used for store failure reporting.
func WithLogger(log *slog.Logger) LimiterOption {
	return func(l *Limiter) {
		if log != nil {
			l.log = log
		}
	}
}

// NewLimiter creates a limiter backed by the given store. Panics if
// store is nil, as no construction path should produce that.
func NewLimiter(store Store, limits Limits, opts ...LimiterOption) *Limiter {
	if store == nil {
		panic("ratelimit: store is required")
	}
	l := &Limiter{
		store:  store,
		limits: limits,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type dimension struct {
	name  string
	id    string
	limit Limit
}

func (d dimension) key(endpoint string) string {
	return bucketKey(d.name + ":" + d.id + ":" + endpoint)
}

// dimensions resolves which limits apply to a caller. Dimensions with a
// zero limit or no identity to key on are skipped, so an anonymous
// request is limited by IP alone and a platform operator without a
// tenant is limited by user and IP.
func (l *Limiter) dimensions(access tenant.Access, ip string) []dimension {
	dims := make([]dimension, 0, 3)
	if l.limits.Tenant.enabled() && access.TenantID() != "" {
		dims = append(dims, dimension{name: "tenant", id: access.TenantID(), limit: l.limits.Tenant})
	}
	if l.limits.User.enabled() && access.UserID() != "" {
		dims = append(dims, dimension{name: "user", id: access.UserID(), limit: l.limits.User})
	}
	if l.limits.IP.enabled() && ip != "" {
		dims = append(dims, dimension{name: "ip", id: ip, limit: l.limits.IP})
	}
	return dims
}

// Check consumes one token from every applicable dimension and reports
// whether the request may proceed. The first denied dimension wins;
// tokens already taken from dimensions checked before it are not
// returned. When every dimension allows, the result carries the state
// of the tightest one. Store failures skip their dimension so a broken
// backend degrades to letting traffic through rather than serving 429s.
func (l *Limiter) Check(ctx context.Context, access tenant.Access, ip, endpoint string) Result {
	dims := l.dimensions(access, ip)
	if len(dims) == 0 {
		return Result{Allowed: true}
	}

	var best Result
	have := false
	for _, d := range dims {
		res, err := l.store.Consume(ctx, d.key(endpoint), d.limit, 1)
		if err != nil {
			l.log.ErrorContext(ctx, "rate limit check failed, allowing request",
				slog.String("dimension", d.name), slog.Any("error", err))
			continue
		}
		res.Dimension = d.name
		if !res.Allowed {
			return res
		}
		if !have || res.Remaining < best.Remaining {
			best = res
			have = true
		}
	}
	if !have {
		return Result{Allowed: true}
	}
	return best
}

// Status reports the state of the tightest applicable dimension without
// consuming any tokens.
func (l *Limiter) Status(ctx context.Context, access tenant.Access, ip, endpoint string) Result {
	dims := l.dimensions(access, ip)

	var best Result
	have := false
	for _, d := range dims {
		res, err := l.store.Consume(ctx, d.key(endpoint), d.limit, 0)
		if err != nil {
			l.log.ErrorContext(ctx, "rate limit status failed",
				slog.String("dimension", d.name), slog.Any("error", err))
			continue
		}
		res.Dimension = d.name
		if !have || res.Remaining < best.Remaining {
			best = res
			have = true
		}
	}
	if !have {
		return Result{Allowed: true}
	}
	return best
}

// Reset clears the buckets for every dimension that applies to the
// caller and endpoint, restoring them to full capacity.
func (l *Limiter) Reset(ctx context.Context, access tenant.Access, ip, endpoint string) error {
	var errs []error
	for _, d := range l.dimensions(access, ip) {
		if err := l.store.Reset(ctx, d.key(endpoint)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// bucketKey hashes keys that exceed maxKeyLength. Short keys pass
// through unchanged to keep store contents readable.
func bucketKey(key string) string {
	if len(key) <= maxKeyLength {
		return key
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
