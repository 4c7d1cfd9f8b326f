package audit

import (
	"context"
	"slices"
	"time"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 1000
)

// Criteria narrows an audit query. Zero fields match everything; storages
// sort results newest first.
type Criteria struct {
	TenantIDs  []string
	UserID     string
	Types      []EventType
	Resource   string
	ResourceID string
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
	// Cursor is the ID of the last event of the previous page; results
	// strictly older than it are returned.
	Cursor string
}

func (c Criteria) normalized() Criteria {
	if c.Limit <= 0 {
		c.Limit = defaultQueryLimit
	}
	if c.Limit > maxQueryLimit {
		c.Limit = maxQueryLimit
	}
	return c
}

// Reader answers questions about the audit trail, constrained to the tenants
// the caller may see.
type Reader struct {
	storage Storage
}

// NewReader builds a Reader over storage.
func NewReader(storage Storage) *Reader {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	return &Reader{storage: storage}
}

// scoped clamps the criteria to the caller's tenants. Requested tenants
// outside the caller's reach are dropped; an empty intersection matches
// nothing rather than everything.
func scoped(access tenant.Access, c Criteria) Criteria {
	tf := access.TenantFilter()
	if tf.Unrestricted {
		return c
	}
	if len(c.TenantIDs) == 0 {
		c.TenantIDs = tf.TenantIDs
		return c
	}
	reachable := make([]string, 0, len(c.TenantIDs))
	for _, id := range c.TenantIDs {
		if slices.Contains(tf.TenantIDs, id) {
			reachable = append(reachable, id)
		}
	}
	if len(reachable) == 0 {
		reachable = []string{""}
	}
	c.TenantIDs = reachable
	return c
}

// Find returns events matching the criteria within the caller's scope.
func (r *Reader) Find(ctx context.Context, access tenant.Access, c Criteria) ([]Event, error) {
	return r.storage.Query(ctx, scoped(access, c.normalized()))
}

// FindWithCursor pages through events. It returns the next cursor, empty
// when the last page was reached.
func (r *Reader) FindWithCursor(ctx context.Context, access tenant.Access, c Criteria, cursor string) ([]Event, string, error) {
	c = c.normalized()
	c.Cursor = cursor
	c.Offset = 0

	events, err := r.storage.Query(ctx, scoped(access, c))
	if err != nil {
		return nil, "", err
	}
	next := ""
	if len(events) == c.Limit {
		next = events[len(events)-1].ID
	}
	return events, next, nil
}

// Count returns the number of events matching the criteria. Storages without
// native counting are queried and counted in memory.
func (r *Reader) Count(ctx context.Context, access tenant.Access, c Criteria) (int64, error) {
	c = scoped(access, c)
	if counter, ok := r.storage.(CountingStorage); ok {
		return counter.Count(ctx, c)
	}
	c.Limit = maxQueryLimit
	events, err := r.storage.Query(ctx, c)
	if err != nil {
		return 0, err
	}
	return int64(len(events)), nil
}

// History returns the change history of one resource, newest first.
func (r *Reader) History(ctx context.Context, access tenant.Access, resource, resourceID string) ([]Event, error) {
	return r.Find(ctx, access, Criteria{Resource: resource, ResourceID: resourceID})
}

// UserActivity returns everything a user did since the given time.
func (r *Reader) UserActivity(ctx context.Context, access tenant.Access, userID string, since time.Time) ([]Event, error) {
	return r.Find(ctx, access, Criteria{UserID: userID, From: since})
}

// TenantActivity returns everything that happened in the caller's primary
// tenant since the given time.
func (r *Reader) TenantActivity(ctx context.Context, access tenant.Access, since time.Time) ([]Event, error) {
	return r.Find(ctx, access, Criteria{TenantIDs: []string{access.TenantID()}, From: since})
}

// Stats aggregates event counts by type. Storages without native
// aggregation are queried and folded in memory.
func (r *Reader) Stats(ctx context.Context, access tenant.Access, c Criteria) (map[EventType]int64, error) {
	c = scoped(access, c)
	if agg, ok := r.storage.(StatsStorage); ok {
		return agg.Stats(ctx, c)
	}
	c.Limit = maxQueryLimit
	events, err := r.storage.Query(ctx, c)
	if err != nil {
		return nil, err
	}
	stats := make(map[EventType]int64)
	for _, e := range events {
		stats[e.Type]++
	}
	return stats, nil
}
