package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// WrapConfig controls how Wrap derives keys and stores results. The zero
// value keys by fmt.Sprint of the argument and uses the manager's default
// TTL.
type WrapConfig[A any] struct {
	// Key derives the cache key suffix from the call argument.
	Key func(arg A) string
	// TTL bounds the lifetime of cached results.
	TTL time.Duration
}

// Wrap returns a cached version of fn following the cache-aside pattern:
// check the cache, on a miss invoke fn and store its result under
// "name:key(arg)". Results are namespaced per tenant through the manager, so
// the same wrapped function serves all tenants without leaking values
// between them. Errors from fn are returned as-is and never cached.
func Wrap[A, T any](m *Manager, name string, fn func(ctx context.Context, arg A) (T, error), cfg WrapConfig[A]) func(ctx context.Context, arg A) (T, error) {
	keyFn := cfg.Key
	if keyFn == nil {
		keyFn = func(arg A) string { return fmt.Sprint(arg) }
	}
	return func(ctx context.Context, arg A) (T, error) {
		key := name + ":" + keyFn(arg)

		var cached T
		if m.Get(ctx, key, &cached) {
			return cached, nil
		}

		value, err := fn(ctx, arg)
		if err != nil {
			return value, err
		}
		if err := m.Set(ctx, key, value, cfg.TTL); err != nil {
			m.log.WarnContext(ctx, "cache store after miss failed",
				slog.String("key", key), slog.Any("error", err))
		}
		return value, nil
	}
}
