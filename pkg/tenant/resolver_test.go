package tenant_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

func TestCredentialResolver(t *testing.T) {
	t.Parallel()

	v := newTestVerifier(t)
	resolver := tenant.NewCredentialResolver(v)

	t.Run("declines without authorization header", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		_, ok, err := resolver.Resolve(req)
		assert.False(t, ok)
		assert.NoError(t, err)
	})

	t.Run("declines non-bearer schemes", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		_, ok, err := resolver.Resolve(req)
		assert.False(t, ok)
		assert.NoError(t, err)
	})

	t.Run("resolves a valid credential", func(t *testing.T) {
		t.Parallel()

		token, err := v.Issue(tenant.NewAccess("u_1", "t_1"), time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		access, ok, err := resolver.Resolve(req)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "u_1", access.UserID())
		assert.Equal(t, "t_1", access.TenantID())
	})

	t.Run("case-insensitive bearer scheme", func(t *testing.T) {
		t.Parallel()

		token, err := v.Issue(tenant.NewAccess("u_1", "t_1"), time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer "+token)

		_, ok, err := resolver.Resolve(req)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("errors on a bad credential", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tampered.token.here")

		_, ok, err := resolver.Resolve(req)
		assert.False(t, ok)
		assert.ErrorIs(t, err, tenant.ErrInvalidCredential)
	})
}

func TestPrincipalResolver(t *testing.T) {
	t.Parallel()

	resolver := tenant.NewPrincipalResolver()

	t.Run("declines without principal", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		_, ok, err := resolver.Resolve(req)
		assert.False(t, ok)
		assert.NoError(t, err)
	})

	t.Run("resolves a regular principal", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := tenant.WithPrincipal(req.Context(), tenant.Principal{
			UserID:         "u_2",
			TenantID:       "t_2",
			AllowedTenants: []string{"t_3"},
		})

		access, ok, err := resolver.Resolve(req.WithContext(ctx))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "u_2", access.UserID())
		assert.Equal(t, "t_2", access.TenantID())
		assert.Equal(t, []string{"t_3"}, access.AllowedTenants())
	})

	t.Run("resolves an admin principal", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := tenant.WithPrincipal(req.Context(), tenant.Principal{
			UserID:        "admin_1",
			PlatformAdmin: true,
		})

		access, ok, err := resolver.Resolve(req.WithContext(ctx))
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, access.IsPlatformAdmin())
	})
}

func TestHeaderResolver(t *testing.T) {
	t.Parallel()

	t.Run("declines without tenant header", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewHeaderResolver("", "")
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(tenant.DefaultUserHeader, "u_1")

		_, ok, err := resolver.Resolve(req)
		assert.False(t, ok)
		assert.NoError(t, err)
	})

	t.Run("maps default headers", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewHeaderResolver("", "")
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(tenant.DefaultTenantHeader, "t_1")
		req.Header.Set(tenant.DefaultUserHeader, "u_1")

		access, ok, err := resolver.Resolve(req)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "t_1", access.TenantID())
		assert.Equal(t, "u_1", access.UserID())
	})

	t.Run("custom header names", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewHeaderResolver("X-Org", "X-Member")
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Org", "t_9")
		req.Header.Set("X-Member", "u_9")

		access, ok, err := resolver.Resolve(req)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "t_9", access.TenantID())
		assert.Equal(t, "u_9", access.UserID())
	})

	t.Run("blank tenant header declines", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewHeaderResolver("", "")
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(tenant.DefaultTenantHeader, "   ")

		_, ok, _ := resolver.Resolve(req)
		assert.False(t, ok)
	})
}

func TestResolverFunc(t *testing.T) {
	t.Parallel()

	called := false
	resolver := tenant.ResolverFunc(func(r *http.Request) (tenant.Access, bool, error) {
		called = true
		return tenant.NewAccess("u", "t"), true, nil
	})

	access, ok, err := resolver.Resolve(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, called)
	assert.Equal(t, "t", access.TenantID())
}
