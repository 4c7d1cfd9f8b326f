package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Remote is the shared second cache tier. Implementations move bytes; the
// Manager owns serialization and key namespacing. A Remote handed to a
// Manager is owned by it and closed with it.
type Remote interface {
	// Get returns the stored value or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores the value. A positive ttl bounds its lifetime; zero or
	// negative stores without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Del removes the given keys. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error
	// DelPattern removes every key matching the glob pattern.
	DelPattern(ctx context.Context, pattern string) error
	Close() error
}

const scanBatchSize = 100

// RedisRemote implements Remote on a Redis client.
type RedisRemote struct {
	client *redis.Client
}

// NewRedisRemote wraps an established Redis client.
func NewRedisRemote(client *redis.Client) *RedisRemote {
	if client == nil {
		panic("cache: redis client cannot be nil")
	}
	return &RedisRemote{client: client}
}

// Get returns the stored value or ErrNotFound.
func (r *RedisRemote) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

// Set stores the value with the given lifetime.
func (r *RedisRemote) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Del removes the given keys.
func (r *RedisRemote) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// DelPattern removes every key matching the glob pattern. It scans rather
// than using KEYS so large keyspaces never block the server.
func (r *RedisRemote) DelPattern(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, scanBatchSize).Iterator()
	batch := make([]string, 0, scanBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatchSize {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return r.client.Del(ctx, batch...).Err()
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisRemote) Close() error {
	return r.client.Close()
}
