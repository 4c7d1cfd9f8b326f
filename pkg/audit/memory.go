package audit

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps events in memory. It backs tests and local development;
// it implements every optional storage capability.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Store appends one event.
func (s *MemoryStore) Store(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// StoreBatch appends events in order.
func (s *MemoryStore) StoreBatch(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

// Query returns matching events newest first.
func (s *MemoryStore) Query(_ context.Context, c Criteria) ([]Event, error) {
	s.mu.RLock()
	matched := make([]Event, 0)
	for _, e := range s.events {
		if matchCriteria(e, c) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(matched, func(a, b Event) int {
		return b.CreatedDate.Compare(a.CreatedDate)
	})

	if c.Cursor != "" {
		idx := slices.IndexFunc(matched, func(e Event) bool { return e.ID == c.Cursor })
		if idx < 0 {
			return nil, ErrCursorNotFound
		}
		matched = matched[idx+1:]
	}
	if c.Offset > 0 {
		if c.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[c.Offset:]
	}
	if c.Limit > 0 && c.Limit < len(matched) {
		matched = matched[:c.Limit]
	}
	return matched, nil
}

// Count returns the number of matching events.
func (s *MemoryStore) Count(_ context.Context, c Criteria) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, e := range s.events {
		if matchCriteria(e, c) {
			n++
		}
	}
	return n, nil
}

// Stats folds matching events into per-type counts.
func (s *MemoryStore) Stats(_ context.Context, c Criteria) (map[EventType]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := make(map[EventType]int64)
	for _, e := range s.events {
		if matchCriteria(e, c) {
			stats[e.Type]++
		}
	}
	return stats, nil
}

// DeleteBefore drops events older than the cutoff and reports how many.
func (s *MemoryStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.events[:0]
	var dropped int64
	for _, e := range s.events {
		if e.CreatedDate.Before(cutoff) {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return dropped, nil
}

// Len reports how many events the store holds.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func matchCriteria(e Event, c Criteria) bool {
	if len(c.TenantIDs) > 0 && !slices.Contains(c.TenantIDs, e.TenantID) {
		return false
	}
	if c.UserID != "" && e.UserID != c.UserID {
		return false
	}
	if len(c.Types) > 0 && !slices.Contains(c.Types, e.Type) {
		return false
	}
	if c.Resource != "" && e.Resource != c.Resource {
		return false
	}
	if c.ResourceID != "" && e.ResourceID != c.ResourceID {
		return false
	}
	if !c.From.IsZero() && e.CreatedDate.Before(c.From) {
		return false
	}
	if !c.To.IsZero() && !e.CreatedDate.Before(c.To) {
		return false
	}
	return true
}
