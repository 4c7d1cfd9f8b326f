package audit_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/audit"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

type failStore struct{ err error }

func (s failStore) Store(context.Context, audit.Event) error { return s.err }

func (s failStore) Query(context.Context, audit.Criteria) ([]audit.Event, error) {
	return nil, s.err
}

func allEvents(t *testing.T, store *audit.MemoryStore) []audit.Event {
	t.Helper()
	events, err := store.Query(context.Background(), audit.Criteria{})
	require.NoError(t, err)
	return events
}

func TestTrail_RecordsDataEvents(t *testing.T) {
	t.Parallel()

	member := tenant.NewAccess("user_1", "t_1")
	ctx := context.Background()

	t.Run("create carries scope stamps and changes", func(t *testing.T) {
		t.Parallel()

		clk := clock.NewMock()
		now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		clk.Set(now)

		store := audit.NewMemoryStore()
		trail := audit.NewTrail(store, audit.WithTrailClock(clk))

		trail.LogCreate(ctx, member, "projects", "p_1", account{Name: "acme", Plan: "free"})

		events := allEvents(t, store)
		require.Len(t, events, 1)
		e := events[0]
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, audit.EventCreate, e.Type)
		assert.Equal(t, "t_1", e.TenantID)
		assert.Equal(t, "user_1", e.UserID)
		assert.Equal(t, "projects", e.Resource)
		assert.Equal(t, "p_1", e.ResourceID)
		assert.True(t, e.CreatedDate.Equal(now))
		assert.Contains(t, e.Changes, "name")
	})

	t.Run("update carries the field diff", func(t *testing.T) {
		t.Parallel()

		store := audit.NewMemoryStore()
		trail := audit.NewTrail(store)

		trail.LogUpdate(ctx, member, "projects", "p_1",
			account{Plan: "free", LastUpdated: time.Unix(1, 0)},
			account{Plan: "pro", LastUpdated: time.Unix(2, 0)},
		)

		events := allEvents(t, store)
		require.Len(t, events, 1)
		require.Contains(t, events[0].Changes, "plan")
		assert.NotContains(t, events[0].Changes, "last_updated")
	})

	t.Run("denial records the attempted action", func(t *testing.T) {
		t.Parallel()

		store := audit.NewMemoryStore()
		trail := audit.NewTrail(store)

		trail.LogPermissionDenied(ctx, member, "projects", "p_1", "hard_delete")

		events := allEvents(t, store)
		require.Len(t, events, 1)
		assert.Equal(t, audit.EventPermissionDenied, events[0].Type)
		assert.Equal(t, "hard_delete", events[0].Action)
	})

	t.Run("delete and hard delete use distinct types", func(t *testing.T) {
		t.Parallel()

		store := audit.NewMemoryStore()
		trail := audit.NewTrail(store)

		trail.LogDelete(ctx, member, "projects", "p_1")
		trail.LogHardDelete(ctx, tenant.PlatformAdmin("admin_1"), "projects", "p_1")

		events := allEvents(t, store)
		require.Len(t, events, 2)
		types := []audit.EventType{events[0].Type, events[1].Type}
		assert.Contains(t, types, audit.EventDelete)
		assert.Contains(t, types, audit.EventHardDelete)
	})
}

func TestTrail_RecordsAuthEvents(t *testing.T) {
	t.Parallel()

	store := audit.NewMemoryStore()
	trail := audit.NewTrail(store)
	member := tenant.NewAccess("user_1", "t_1")

	trail.LogAuth(context.Background(), member, audit.EventLogin, audit.WithMetadata("method", "password"))
	trail.LogExport(context.Background(), member, "projects", audit.WithMetadata("format", "csv"))

	events := allEvents(t, store)
	require.Len(t, events, 2)

	var login, export audit.Event
	for _, e := range events {
		switch e.Type {
		case audit.EventLogin:
			login = e
		case audit.EventDataExport:
			export = e
		}
	}
	assert.Equal(t, "password", login.Metadata["method"])
	assert.Equal(t, "projects", export.Resource)
	assert.Equal(t, "csv", export.Metadata["format"])
}

func TestTrail_ContextEnrichment(t *testing.T) {
	t.Parallel()

	store := audit.NewMemoryStore()
	trail := audit.NewTrail(store,
		audit.WithRequestIDExtractor(func(context.Context) (string, bool) { return "req_9", true }),
		audit.WithIPExtractor(func(context.Context) (string, bool) { return "203.0.113.7", true }),
		audit.WithUserAgentExtractor(func(context.Context) (string, bool) { return "cli/1.0", true }),
	)

	trail.LogDelete(context.Background(), tenant.NewAccess("user_1", "t_1"), "projects", "p_1")

	events := allEvents(t, store)
	require.Len(t, events, 1)
	assert.Equal(t, "req_9", events[0].RequestID)
	assert.Equal(t, "203.0.113.7", events[0].IP)
	assert.Equal(t, "cli/1.0", events[0].UserAgent)
}

func TestTrail_FiltersMetadata(t *testing.T) {
	t.Parallel()

	store := audit.NewMemoryStore()
	trail := audit.NewTrail(store, audit.WithMetadataFilter(audit.NewMetadataFilter()))

	trail.LogAuth(context.Background(), tenant.NewAccess("user_1", "t_1"), audit.EventLogin,
		audit.WithMetadata("password", "hunter2"),
		audit.WithMetadata("plan", "pro"),
	)

	events := allEvents(t, store)
	require.Len(t, events, 1)
	assert.NotContains(t, events[0].Metadata, "password")
	assert.Equal(t, "pro", events[0].Metadata["plan"])
}

func TestTrail_StorageFailureNeverPropagates(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	trail := audit.NewTrail(failStore{err: errors.New("backend down")}, audit.WithTrailLogger(log))

	trail.LogCreate(context.Background(), tenant.NewAccess("user_1", "t_1"), "projects", "p_1", nil)

	assert.Contains(t, buf.String(), "audit event dropped")
	assert.Contains(t, buf.String(), "backend down")
}

func TestTrail_InvalidEventIsDropped(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	store := audit.NewMemoryStore()
	trail := audit.NewTrail(store, audit.WithTrailLogger(log))

	trail.Log(context.Background(), tenant.NewAccess("user_1", "t_1"), "", "projects", "p_1")

	assert.Equal(t, 0, store.Len())
	assert.Contains(t, buf.String(), "audit event invalid")
}
