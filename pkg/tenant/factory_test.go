package tenant_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

func TestFactory_Resolve(t *testing.T) {
	t.Parallel()

	v := newTestVerifier(t)

	t.Run("credential wins over legacy headers", func(t *testing.T) {
		t.Parallel()

		token, err := v.Issue(tenant.NewAccess("cred_user", "cred_tenant"), time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(tenant.DefaultTenantHeader, "header_tenant")
		req.Header.Set(tenant.DefaultUserHeader, "header_user")

		access, err := tenant.NewFactory(v).Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, "cred_user", access.UserID())
		assert.Equal(t, "cred_tenant", access.TenantID())
	})

	t.Run("principal wins over legacy headers", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(tenant.DefaultTenantHeader, "header_tenant")
		ctx := tenant.WithPrincipal(req.Context(), tenant.Principal{
			UserID:   "principal_user",
			TenantID: "principal_tenant",
		})

		access, err := tenant.NewFactory(v).Resolve(req.WithContext(ctx))
		require.NoError(t, err)
		assert.Equal(t, "principal_tenant", access.TenantID())
	})

	t.Run("bad credential falls through to headers", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := slog.New(slog.NewTextHandler(&buf, nil))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bad.token.value")
		req.Header.Set(tenant.DefaultTenantHeader, "t_fallback")
		req.Header.Set(tenant.DefaultUserHeader, "u_fallback")

		factory := tenant.NewFactory(v, tenant.WithFactoryLogger(log))
		access, err := factory.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, "t_fallback", access.TenantID())
		assert.Contains(t, buf.String(), "credential verification failed")
	})

	t.Run("lenient mode resolves to anonymous", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		access, err := tenant.NewFactory(v).Resolve(req)
		require.NoError(t, err)
		assert.True(t, access.IsAnonymous())
	})

	t.Run("strict mode rejects unresolved requests", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		factory := tenant.NewFactory(v, tenant.WithMode(tenant.ModeStrict))

		_, err := factory.Resolve(req)
		assert.ErrorIs(t, err, tenant.ErrAuthenticationRequired)
	})

	t.Run("strict mode still resolves valid requests", func(t *testing.T) {
		t.Parallel()

		token, err := v.Issue(tenant.NewAccess("u_1", "t_1"), time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		factory := tenant.NewFactory(v, tenant.WithMode(tenant.ModeStrict))
		access, err := factory.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, "t_1", access.TenantID())
	})

	t.Run("custom resolver chain", func(t *testing.T) {
		t.Parallel()

		fixed := tenant.ResolverFunc(func(r *http.Request) (tenant.Access, bool, error) {
			return tenant.NewAccess("fixed_user", "fixed_tenant"), true, nil
		})

		factory := tenant.NewFactory(v, tenant.WithResolvers(fixed))
		access, err := factory.Resolve(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Equal(t, "fixed_tenant", access.TenantID())
	})

	t.Run("custom legacy header names", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Org-ID", "t_org")

		factory := tenant.NewFactory(v, tenant.WithLegacyHeaders("X-Org-ID", "X-Member-ID"))
		access, err := factory.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, "t_org", access.TenantID())
	})
}

func TestFactory_FromToken(t *testing.T) {
	t.Parallel()

	v := newTestVerifier(t)

	t.Run("verifies a raw credential", func(t *testing.T) {
		t.Parallel()

		token, err := v.Issue(tenant.NewAccess("u_1", "t_1"), time.Minute)
		require.NoError(t, err)

		access, err := tenant.NewFactory(v).FromToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "t_1", access.TenantID())
	})

	t.Run("rejects a bad credential", func(t *testing.T) {
		t.Parallel()

		_, err := tenant.NewFactory(v).FromToken(context.Background(), "junk")
		assert.ErrorIs(t, err, tenant.ErrInvalidCredential)
	})
}

func TestFromPrincipal(t *testing.T) {
	t.Parallel()

	access := tenant.FromPrincipal(tenant.Principal{UserID: "u", TenantID: "t"})
	assert.Equal(t, "t", access.TenantID())

	admin := tenant.FromPrincipal(tenant.Principal{UserID: "a", PlatformAdmin: true})
	assert.True(t, admin.IsPlatformAdmin())
}

func TestFromLegacyHeaders(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Set(tenant.DefaultTenantHeader, "t_1")
	h.Set(tenant.DefaultUserHeader, "u_1")

	access, ok := tenant.FromLegacyHeaders(h)
	require.True(t, ok)
	assert.Equal(t, "t_1", access.TenantID())

	_, ok = tenant.FromLegacyHeaders(http.Header{})
	assert.False(t, ok)
}
