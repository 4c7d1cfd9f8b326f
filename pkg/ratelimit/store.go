package ratelimit

import "context"

// Store tracks token bucket state per key. Implementations must be safe
// for concurrent use.
type Store interface {
	// Consume refills the bucket for key according to limit, then
	// attempts to take cost tokens from it. A denied request does not
	// deduct tokens. Cost zero reports the bucket state without
	// consuming anything.
	Consume(ctx context.Context, key string, limit Limit, cost float64) (Result, error)

	// Reset discards the bucket for key, restoring it to full capacity
	// on the next consume.
	Reset(ctx context.Context, key string) error
}
