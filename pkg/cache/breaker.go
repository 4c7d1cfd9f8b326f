package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

type breakerSettings struct {
	log          *slog.Logger
	timeout      time.Duration
	minRequests  uint32
	failureRatio float64
}

// BreakerOption configures a BreakerRemote.
type BreakerOption func(*breakerSettings)

// WithBreakerLogger overrides the logger for state transitions.
func WithBreakerLogger(log *slog.Logger) BreakerOption {
	return func(s *breakerSettings) {
		if log != nil {
			s.log = log
		}
	}
}

// WithBreakerTimeout overrides how long the breaker stays open before
// probing the backend again. Default 30 seconds.
func WithBreakerTimeout(d time.Duration) BreakerOption {
	return func(s *breakerSettings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// BreakerRemote guards a remote tier with a circuit breaker. While the
// breaker is open every operation fails fast with ErrUnavailable, which the
// Manager treats as a miss, so a down backend costs one failed call per
// probe window instead of one per request. Misses are not failures and never
// trip the breaker.
type BreakerRemote struct {
	inner Remote
	cb    *gobreaker.CircuitBreaker[[]byte]
}

// NewBreakerRemote wraps a remote tier. The breaker opens after at least
// five calls in the window fail at a 60% ratio.
func NewBreakerRemote(inner Remote, opts ...BreakerOption) *BreakerRemote {
	if inner == nil {
		panic("cache: remote cannot be nil")
	}
	settings := breakerSettings{
		log:          slog.Default(),
		timeout:      30 * time.Second,
		minRequests:  5,
		failureRatio: 0.6,
	}
	for _, opt := range opts {
		opt(&settings)
	}
	log := settings.log

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "cache-remote",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     settings.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.minRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= settings.failureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("cache remote breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	return &BreakerRemote{inner: inner, cb: cb}
}

func (b *BreakerRemote) execute(op func() ([]byte, error)) ([]byte, error) {
	value, err := b.cb.Execute(op)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, err
	}
	return value, nil
}

// Get returns the stored value or ErrNotFound.
func (b *BreakerRemote) Get(ctx context.Context, key string) ([]byte, error) {
	var miss bool
	value, err := b.execute(func() ([]byte, error) {
		v, err := b.inner.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			miss = true
			return nil, nil
		}
		return v, err
	})
	if err != nil {
		return nil, err
	}
	if miss {
		return nil, ErrNotFound
	}
	return value, nil
}

// Set stores the value with the given lifetime.
func (b *BreakerRemote) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := b.execute(func() ([]byte, error) {
		return nil, b.inner.Set(ctx, key, value, ttl)
	})
	return err
}

// Del removes the given keys.
func (b *BreakerRemote) Del(ctx context.Context, keys ...string) error {
	_, err := b.execute(func() ([]byte, error) {
		return nil, b.inner.Del(ctx, keys...)
	})
	return err
}

// DelPattern removes every key matching the glob pattern.
func (b *BreakerRemote) DelPattern(ctx context.Context, pattern string) error {
	_, err := b.execute(func() ([]byte, error) {
		return nil, b.inner.DelPattern(ctx, pattern)
	})
	return err
}

// Close closes the wrapped remote. It bypasses the breaker.
func (b *BreakerRemote) Close() error {
	return b.inner.Close()
}
