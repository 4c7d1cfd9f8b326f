package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

const defaultTTL = 5 * time.Minute

// Manager is the two-tier cache-aside layer: a bounded in-process LRU in
// front of an optional shared remote tier. Every key is qualified by the
// caller's tenant namespace, so two tenants never observe each other's
// values even when they compute identical logical keys.
//
// The namespace comes from the ambient scope in the request context, or from
// a scope pinned with WithScope. Callers without a tenant, platform admins
// included, share the global namespace.
//
// Remote-tier failures are logged and surface as misses; no cache operation
// ever fails because the remote backend is down.
type Manager struct {
	local  *LRUCache[string, []byte]
	remote Remote
	ttl    time.Duration
	log    *slog.Logger
	scope  *tenant.Access
}

type managerSettings struct {
	remote Remote
	ttl    time.Duration
	log    *slog.Logger
	lru    []LRUOption
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerSettings)

// WithRemote attaches a shared second tier. The manager takes ownership and
// closes it on Close.
func WithRemote(remote Remote) ManagerOption {
	return func(s *managerSettings) { s.remote = remote }
}

// WithDefaultTTL overrides the entry lifetime used when Set is called with a
// non-positive ttl and when remote hits are promoted into the local tier.
// Default five minutes.
func WithDefaultTTL(d time.Duration) ManagerOption {
	return func(s *managerSettings) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithManagerLogger overrides the logger.
func WithManagerLogger(log *slog.Logger) ManagerOption {
	return func(s *managerSettings) {
		if log != nil {
			s.log = log
		}
	}
}

// WithLocalOptions passes options through to the local LRU tier.
func WithLocalOptions(opts ...LRUOption) ManagerOption {
	return func(s *managerSettings) { s.lru = append(s.lru, opts...) }
}

// NewManager builds a cache manager whose local tier holds at most capacity
// entries.
func NewManager(capacity int, opts ...ManagerOption) *Manager {
	settings := managerSettings{
		ttl: defaultTTL,
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(&settings)
	}
	return &Manager{
		local:  NewLRUCache[string, []byte](capacity, settings.lru...),
		remote: settings.remote,
		ttl:    settings.ttl,
		log:    settings.log,
	}
}

// WithScope returns a manager whose tenant namespace is pinned to the given
// scope instead of being read from the context. Both managers share the same
// tiers; use it for background work that runs outside a request.
func (m *Manager) WithScope(access tenant.Access) *Manager {
	clone := *m
	clone.scope = &access
	return &clone
}

func namespaceFor(access tenant.Access) string {
	if id := access.TenantID(); id != "" {
		return "t:" + id + ":"
	}
	return "global:"
}

func (m *Manager) namespacedKey(ctx context.Context, key string) string {
	if m.scope != nil {
		return namespaceFor(*m.scope) + key
	}
	access, _ := tenant.FromContext(ctx)
	return namespaceFor(access) + key
}

// Get looks the key up within the caller's namespace and unmarshals the
// cached value into dest, which must be a pointer. Local hits win; remote
// hits are promoted into the local tier. It reports whether dest was
// populated; a miss is never an error.
func (m *Manager) Get(ctx context.Context, key string, dest any) bool {
	nk := m.namespacedKey(ctx, key)

	if value, ok := m.local.Get(nk); ok {
		if err := json.Unmarshal(value, dest); err != nil {
			m.local.Remove(nk)
			m.log.WarnContext(ctx, "cache entry undecodable, dropped",
				slog.String("key", nk), slog.Any("error", err))
			return false
		}
		return true
	}

	if m.remote == nil {
		return false
	}
	value, err := m.remote.Get(ctx, nk)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.log.WarnContext(ctx, "cache remote get failed",
				slog.String("key", nk), slog.Any("error", err))
		}
		return false
	}
	if err := json.Unmarshal(value, dest); err != nil {
		m.log.WarnContext(ctx, "cache entry undecodable, dropped",
			slog.String("key", nk), slog.Any("error", err))
		return false
	}
	m.local.Put(nk, value, m.ttl)
	return true
}

// Set stores the value in both tiers within the caller's namespace. A
// non-positive ttl uses the manager default. Only marshaling can fail;
// remote write failures are logged and swallowed.
func (m *Manager) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal %q: %w", key, err)
	}
	if ttl <= 0 {
		ttl = m.ttl
	}

	nk := m.namespacedKey(ctx, key)
	m.local.Put(nk, encoded, ttl)
	if m.remote != nil {
		if err := m.remote.Set(ctx, nk, encoded, ttl); err != nil {
			m.log.WarnContext(ctx, "cache remote set failed",
				slog.String("key", nk), slog.Any("error", err))
		}
	}
	return nil
}

// Delete removes the keys from both tiers within the caller's namespace.
func (m *Manager) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	namespaced := make([]string, len(keys))
	for i, key := range keys {
		namespaced[i] = m.namespacedKey(ctx, key)
		m.local.Remove(namespaced[i])
	}
	if m.remote != nil {
		if err := m.remote.Del(ctx, namespaced...); err != nil {
			m.log.WarnContext(ctx, "cache remote delete failed",
				slog.Any("keys", namespaced), slog.Any("error", err))
		}
	}
}

// ClearTenant invalidates every entry in the given tenant's namespace across
// both tiers. An empty tenantID clears the global namespace.
func (m *Manager) ClearTenant(ctx context.Context, tenantID string) {
	prefix := "global:"
	if tenantID != "" {
		prefix = "t:" + tenantID + ":"
	}

	for _, key := range m.local.Keys() {
		if strings.HasPrefix(key, prefix) {
			m.local.Remove(key)
		}
	}
	if m.remote != nil {
		if err := m.remote.DelPattern(ctx, prefix+"*"); err != nil {
			m.log.WarnContext(ctx, "cache remote clear failed",
				slog.String("tenant_id", tenantID), slog.Any("error", err))
		}
	}
}

// Close stops the local tier's sweep and closes the remote tier.
func (m *Manager) Close() error {
	m.local.Close()
	if m.remote != nil {
		return m.remote.Close()
	}
	return nil
}
