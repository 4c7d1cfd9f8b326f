package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	defaultCleanupInterval = 5 * time.Minute
	defaultIdleTimeout     = time.Hour
)

type bucket struct {
	tokens     float64
	lastRefill time.Time
	lastAccess time.Time
}

// MemoryStore keeps token buckets in process memory. Buckets refill
// continuously, so a limit of 60 per minute releases one token per
// second rather than a full batch at interval boundaries. Idle buckets
// are purged by a background goroutine; call Close to stop it.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	clock        clock.Clock
	cleanupEvery time.Duration
	idleTimeout  time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithClock substitutes the time source, letting tests drive refill
// deterministically.
func WithClock(clk clock.Clock) MemoryStoreOption {
	return func(s *MemoryStore) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// WithCleanupInterval changes how often idle buckets are purged.
// A non-positive interval disables the cleanup goroutine.
func WithCleanupInterval(every time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.cleanupEvery = every
	}
}

// WithIdleTimeout changes how long a bucket may go untouched before the
// cleanup pass drops it.
func WithIdleTimeout(timeout time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if timeout > 0 {
			s.idleTimeout = timeout
		}
	}
}

// NewMemoryStore creates a store with the cleanup goroutine running.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		buckets:      make(map[string]*bucket),
		clock:        clock.New(),
		cleanupEvery: defaultCleanupInterval,
		idleTimeout:  defaultIdleTimeout,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cleanupEvery > 0 {
		go s.cleanupLoop(s.cleanupEvery)
	}
	return s
}

// Consume implements Store.
func (s *MemoryStore) Consume(_ context.Context, key string, limit Limit, cost float64) (Result, error) {
	if err := limit.validate(); err != nil {
		return Result{}, err
	}
	if cost < 0 {
		return Result{}, ErrInvalidCost
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{tokens: limit.Capacity, lastRefill: now}
		s.buckets[key] = b
	} else {
		elapsed := now.Sub(b.lastRefill)
		b.tokens = min(b.tokens+elapsed.Seconds()*limit.RefillPerSec, limit.Capacity)
		b.lastRefill = now
	}
	b.lastAccess = now

	res := Result{Limit: limit.Capacity}
	if b.tokens >= cost {
		b.tokens -= cost
		res.Allowed = true
	} else {
		res.RetryAfter = refillDuration(cost-b.tokens, limit.RefillPerSec)
	}
	res.Remaining = b.tokens
	res.ResetAt = now.Add(refillDuration(limit.Capacity-b.tokens, limit.RefillPerSec))
	return res, nil
}

// Reset implements Store.
func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
	return nil
}

// Len reports how many buckets are currently tracked.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (s *MemoryStore) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *MemoryStore) cleanupLoop(every time.Duration) {
	ticker := s.clock.Ticker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.purgeIdle()
		case <-s.done:
			return
		}
	}
}

func (s *MemoryStore) purgeIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.clock.Now().Add(-s.idleTimeout)
	for key, b := range s.buckets {
		if b.lastAccess.Before(cutoff) {
			delete(s.buckets, key)
		}
	}
}

// refillDuration reports how long it takes to accumulate the given
// number of tokens at the given rate.
func refillDuration(tokens, perSec float64) time.Duration {
	if tokens <= 0 {
		return 0
	}
	return time.Duration(tokens / perSec * float64(time.Second))
}
