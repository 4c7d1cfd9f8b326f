package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Storage persists and retrieves audit events. MemoryStore, MongoStore,
// PostgresStore and OpenSearchStore implement it; AsyncWriter wraps any of
// them with buffered batching.
type Storage interface {
	Store(ctx context.Context, event Event) error
	Query(ctx context.Context, c Criteria) ([]Event, error)
}

// BatchStorage is implemented by storages with an efficient bulk write path.
type BatchStorage interface {
	StoreBatch(ctx context.Context, events []Event) error
}

// CountingStorage is implemented by storages with native counting. Reader
// falls back to loading and counting when it is absent.
type CountingStorage interface {
	Count(ctx context.Context, c Criteria) (int64, error)
}

// StatsStorage is implemented by storages that aggregate event counts
// natively.
type StatsStorage interface {
	Stats(ctx context.Context, c Criteria) (map[EventType]int64, error)
}

// RetentionStorage is implemented by storages that can drop events older
// than a cutoff.
type RetentionStorage interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ContextExtractor pulls one string out of a request context, reporting
// whether it was present.
type ContextExtractor func(context.Context) (string, bool)

// Trail records audit events best-effort: storage failures are logged and
// swallowed, never surfaced to the operation being audited. It satisfies the
// repository's Auditor interface.
type Trail struct {
	storage   Storage
	log       *slog.Logger
	clock     clock.Clock
	filter    *MetadataFilter
	requestID ContextExtractor
	ip        ContextExtractor
	userAgent ContextExtractor
}

// TrailOption configures a Trail.
type TrailOption func(*Trail)

// WithTrailLogger overrides the logger used for dropped-event reports.
func WithTrailLogger(log *slog.Logger) TrailOption {
	return func(t *Trail) {
		if log != nil {
			t.log = log
		}
	}
}

// WithTrailClock overrides the event timestamp source.
func WithTrailClock(c clock.Clock) TrailOption {
	return func(t *Trail) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithMetadataFilter scrubs event metadata before it is stored.
func WithMetadataFilter(f *MetadataFilter) TrailOption {
	return func(t *Trail) { t.filter = f }
}

// WithRequestIDExtractor populates RequestID from the context.
func WithRequestIDExtractor(fn ContextExtractor) TrailOption {
	return func(t *Trail) { t.requestID = fn }
}

// WithIPExtractor populates IP from the context.
func WithIPExtractor(fn ContextExtractor) TrailOption {
	return func(t *Trail) { t.ip = fn }
}

// WithUserAgentExtractor populates UserAgent from the context.
func WithUserAgentExtractor(fn ContextExtractor) TrailOption {
	return func(t *Trail) { t.userAgent = fn }
}

// NewTrail builds a Trail over storage.
func NewTrail(storage Storage, opts ...TrailOption) *Trail {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	t := &Trail{
		storage: storage,
		log:     slog.Default(),
		clock:   clock.New(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Log records an event of the given type for the caller's scope.
func (t *Trail) Log(ctx context.Context, access tenant.Access, typ EventType, resource, resourceID string, opts ...EventOption) {
	e := Event{
		Type:       typ,
		Resource:   resource,
		ResourceID: resourceID,
	}
	for _, opt := range opts {
		opt(&e)
	}
	t.record(ctx, access, e)
}

// LogCreate records a CREATE event with the created document's fields as the
// change set.
func (t *Trail) LogCreate(ctx context.Context, access tenant.Access, resource, resourceID string, doc any) {
	t.record(ctx, access, Event{
		Type:       EventCreate,
		Resource:   resource,
		ResourceID: resourceID,
		Changes:    Diff(nil, doc),
	})
}

// LogUpdate records an UPDATE event with the field-level changes between the
// two states.
func (t *Trail) LogUpdate(ctx context.Context, access tenant.Access, resource, resourceID string, before, after any) {
	t.record(ctx, access, Event{
		Type:       EventUpdate,
		Resource:   resource,
		ResourceID: resourceID,
		Changes:    Diff(before, after),
	})
}

// LogDelete records a soft delete.
func (t *Trail) LogDelete(ctx context.Context, access tenant.Access, resource, resourceID string) {
	t.record(ctx, access, Event{
		Type:       EventDelete,
		Resource:   resource,
		ResourceID: resourceID,
	})
}

// LogHardDelete records a permanent removal.
func (t *Trail) LogHardDelete(ctx context.Context, access tenant.Access, resource, resourceID string) {
	t.record(ctx, access, Event{
		Type:       EventHardDelete,
		Resource:   resource,
		ResourceID: resourceID,
	})
}

// LogPermissionDenied records a refused operation together with what was
// attempted.
func (t *Trail) LogPermissionDenied(ctx context.Context, access tenant.Access, resource, resourceID, action string) {
	t.record(ctx, access, Event{
		Type:       EventPermissionDenied,
		Resource:   resource,
		ResourceID: resourceID,
		Action:     action,
	})
}

// LogAuth records a LOGIN, LOGOUT or AUTH_FAILURE event.
func (t *Trail) LogAuth(ctx context.Context, access tenant.Access, typ EventType, opts ...EventOption) {
	e := Event{Type: typ}
	for _, opt := range opts {
		opt(&e)
	}
	t.record(ctx, access, e)
}

// LogExport records a DATA_EXPORT event for compliance reporting.
func (t *Trail) LogExport(ctx context.Context, access tenant.Access, resource string, opts ...EventOption) {
	e := Event{Type: EventDataExport, Resource: resource}
	for _, opt := range opts {
		opt(&e)
	}
	t.record(ctx, access, e)
}

func (t *Trail) record(ctx context.Context, access tenant.Access, e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.TenantID = access.TenantID()
	e.UserID = access.UserID()
	e.CreatedDate = t.clock.Now().UTC()

	if t.requestID != nil {
		if v, ok := t.requestID(ctx); ok {
			e.RequestID = v
		}
	}
	if t.ip != nil {
		if v, ok := t.ip(ctx); ok {
			e.IP = v
		}
	}
	if t.userAgent != nil {
		if v, ok := t.userAgent(ctx); ok {
			e.UserAgent = v
		}
	}
	if t.filter != nil && e.Metadata != nil {
		e.Metadata = t.filter.Filter(e.Metadata)
	}

	if err := e.Validate(); err != nil {
		t.log.ErrorContext(ctx, "audit event invalid",
			slog.String("event_type", string(e.Type)),
			slog.Any("error", err),
		)
		return
	}
	if err := t.storage.Store(ctx, e); err != nil {
		t.log.ErrorContext(ctx, "audit event dropped",
			slog.String("event_type", string(e.Type)),
			slog.String("resource", e.Resource),
			slog.String("resource_id", e.ResourceID),
			slog.Any("error", err),
		)
	}
}
