package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type lruEntry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time // zero means the entry never expires
}

func (e *lruEntry[K, V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// LRUCache is a thread-safe, TTL-aware LRU cache.
// When the cache reaches its capacity, the least recently used item is
// evicted. Entries also expire individually by TTL regardless of recency:
// expired entries are dropped lazily on access and by a background sweep.
type LRUCache[K comparable, V any] struct {
	capacity int
	items    map[K]*list.Element
	eviction *list.List
	mu       sync.Mutex
	onEvict  func(key K, value V) // Callback for cleanup when items are evicted

	clock     clock.Clock
	done      chan struct{}
	closeOnce sync.Once
}

type lruSettings struct {
	clock      clock.Clock
	sweepEvery time.Duration
}

// LRUOption configures an LRUCache.
type LRUOption func(*lruSettings)

// WithLRUClock overrides the time source used for TTL bookkeeping.
func WithLRUClock(c clock.Clock) LRUOption {
	return func(s *lruSettings) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithSweepInterval overrides how often expired entries are swept out in the
// background. Zero or negative disables the sweep; entries then expire only
// lazily on access. Default one minute.
func WithSweepInterval(d time.Duration) LRUOption {
	return func(s *lruSettings) { s.sweepEvery = d }
}

// NewLRUCache creates a new LRU cache with the specified capacity.
// The capacity must be positive, otherwise it panics. Call Close when the
// cache is no longer needed to stop the background sweep.
func NewLRUCache[K comparable, V any](capacity int, opts ...LRUOption) *LRUCache[K, V] {
	if capacity <= 0 {
		panic("LRU cache capacity must be positive")
	}
	settings := lruSettings{
		clock:      clock.New(),
		sweepEvery: time.Minute,
	}
	for _, opt := range opts {
		opt(&settings)
	}
	c := &LRUCache[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element),
		eviction: list.New(),
		clock:    settings.clock,
		done:     make(chan struct{}),
	}
	if settings.sweepEvery > 0 {
		go c.sweep(settings.sweepEvery)
	}
	return c
}

// SetEvictCallback sets a callback function that is called when items are
// evicted, removed, or swept out after expiry. This is useful for cleanup
// operations like closing resources.
func (c *LRUCache[K, V]) SetEvictCallback(fn func(key K, value V)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get retrieves a value from the cache and marks it as recently used.
// Expired entries are removed on access and reported as misses.
// Returns the value and true if found, zero value and false otherwise.
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}
	entry := elem.Value.(*lruEntry[K, V])
	if entry.expired(c.clock.Now()) {
		c.removeElement(elem)
		return zero, false
	}
	c.eviction.MoveToFront(elem)
	return entry.value, true
}

// Put adds or updates a value in the cache. A positive ttl bounds the
// entry's lifetime; zero or negative means no expiry. If the cache is at
// capacity, the least recently used item is evicted.
// Returns the previous value if it existed, and a boolean indicating if it existed.
func (c *LRUCache[K, V]) Put(key K, value V, ttl time.Duration) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.clock.Now().Add(ttl)
	}

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		entry := elem.Value.(*lruEntry[K, V])
		oldValue := entry.value
		entry.value = value
		entry.expiresAt = expiresAt
		return oldValue, true
	}

	entry := &lruEntry[K, V]{key: key, value: value, expiresAt: expiresAt}
	elem := c.eviction.PushFront(entry)
	c.items[key] = elem

	if c.eviction.Len() > c.capacity {
		c.evictOldest()
	}

	var zero V
	return zero, false
}

// Remove removes an item from the cache.
// Returns the removed value and true if it existed, zero value and false otherwise.
func (c *LRUCache[K, V]) Remove(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
		entry := elem.Value.(*lruEntry[K, V])
		return entry.value, true
	}

	var zero V
	return zero, false
}

// Keys returns the keys of all live entries, most recently used first.
func (c *LRUCache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	keys := make([]K, 0, c.eviction.Len())
	for elem := c.eviction.Front(); elem != nil; elem = elem.Next() {
		entry := elem.Value.(*lruEntry[K, V])
		if entry.expired(now) {
			continue
		}
		keys = append(keys, entry.key)
	}
	return keys
}

func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eviction.Len()
}

// Clear removes all items from the cache.
// If an evict callback is set, it's called for each item.
func (c *LRUCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onEvict != nil {
		for _, elem := range c.items {
			entry := elem.Value.(*lruEntry[K, V])
			c.onEvict(entry.key, entry.value)
		}
	}

	c.items = make(map[K]*list.Element)
	c.eviction.Init()
}

// Close stops the background sweep. The cache remains usable afterwards;
// expired entries are then only dropped lazily on access.
func (c *LRUCache[K, V]) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *LRUCache[K, V]) sweep(every time.Duration) {
	ticker := c.clock.Ticker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *LRUCache[K, V]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	var expired []*list.Element
	for elem := c.eviction.Front(); elem != nil; elem = elem.Next() {
		if elem.Value.(*lruEntry[K, V]).expired(now) {
			expired = append(expired, elem)
		}
	}
	for _, elem := range expired {
		c.removeElement(elem)
	}
}

// Must be called with lock held.
func (c *LRUCache[K, V]) evictOldest() {
	elem := c.eviction.Back()
	if elem != nil {
		c.removeElement(elem)
	}
}

// Must be called with lock held.
func (c *LRUCache[K, V]) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	entry := elem.Value.(*lruEntry[K, V])
	delete(c.items, entry.key)

	if c.onEvict != nil {
		c.onEvict(entry.key, entry.value)
	}
}
