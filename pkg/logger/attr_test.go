package logger_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

func TestError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Attr{}, logger.Error(nil))

	attr := logger.Error(errors.New("boom"))
	assert.Equal(t, "error", attr.Key)
}

func TestErrors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Attr{}, logger.Errors(nil, nil))

	attr := logger.Errors(errors.New("one"), nil, errors.New("two"))
	assert.Equal(t, "errors", attr.Key)
	assert.Len(t, attr.Value.Group(), 2)
}

func TestIdentifierAttrs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		attr slog.Attr
		key  string
		val  string
	}{
		{"request id", logger.RequestID("r-1"), "request_id", "r-1"},
		{"tenant id", logger.TenantID("t-1"), "tenant_id", "t-1"},
		{"user id", logger.UserID("u-1"), "user_id", "u-1"},
		{"role", logger.Role("admin"), "role", "admin"},
		{"component", logger.Component("cache"), "component", "cache"},
		{"event", logger.Event("evicted"), "event", "evicted"},
		{"event type", logger.EventType("CREATE"), "event_type", "CREATE"},
		{"resource", logger.Resource("projects"), "resource", "projects"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.key, tc.attr.Key)
			assert.Equal(t, tc.val, tc.attr.Value.String())
		})
	}
}

func TestEmptyIdentifiersProduceEmptyAttr(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Attr{}, logger.RequestID(""))
	assert.Equal(t, slog.Attr{}, logger.TenantID(""))
	assert.Equal(t, slog.Attr{}, logger.UserID(""))
	assert.Equal(t, slog.Attr{}, logger.Role(""))
}

func TestDuration(t *testing.T) {
	t.Parallel()

	attr := logger.Duration(1500 * time.Millisecond)
	assert.Equal(t, "duration", attr.Key)
	assert.Equal(t, 1500*time.Millisecond, attr.Value.Duration())
}

func TestGroup(t *testing.T) {
	t.Parallel()

	attr := logger.Group("req", slog.String("method", "GET"), slog.String("path", "/"))
	assert.Equal(t, "req", attr.Key)
	assert.Len(t, attr.Value.Group(), 2)
}
