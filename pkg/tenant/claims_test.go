package tenant_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

const testSigningKey = "test-signing-key-at-least-32-bytes!!"

func newTestVerifier(t *testing.T, opts ...tenant.VerifierOption) *tenant.Verifier {
	t.Helper()
	v, err := tenant.NewVerifier([]byte(testSigningKey), opts...)
	require.NoError(t, err)
	return v
}

func TestNewVerifier(t *testing.T) {
	t.Parallel()

	t.Run("rejects empty key", func(t *testing.T) {
		t.Parallel()

		_, err := tenant.NewVerifier(nil)
		assert.Error(t, err)
	})
}

func TestVerifier_RoundTrip(t *testing.T) {
	t.Parallel()

	t.Run("regular scope survives issue and verify", func(t *testing.T) {
		t.Parallel()

		v := newTestVerifier(t)
		token, err := v.Issue(tenant.NewAccess("u_1", "t_1", "t_2"), time.Minute)
		require.NoError(t, err)

		claims, err := v.Verify(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "u_1", claims.UserID)
		assert.Equal(t, "t_1", claims.TenantID)
		assert.Equal(t, []string{"t_2"}, claims.AllowedTenants)

		access := claims.Access()
		assert.Equal(t, "u_1", access.UserID())
		assert.Equal(t, "t_1", access.TenantID())
		assert.False(t, access.IsPlatformAdmin())
	})

	t.Run("platform admin scope carries the role claim", func(t *testing.T) {
		t.Parallel()

		v := newTestVerifier(t)
		token, err := v.Issue(tenant.PlatformAdmin("admin_1"), time.Minute)
		require.NoError(t, err)

		claims, err := v.Verify(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, tenant.RolePlatformAdmin, claims.PlatformRole)
		assert.True(t, claims.Access().IsPlatformAdmin())
	})
}

func TestVerifier_Verify(t *testing.T) {
	t.Parallel()

	t.Run("rejects garbage", func(t *testing.T) {
		t.Parallel()

		v := newTestVerifier(t)
		_, err := v.Verify(context.Background(), "not-a-token")
		assert.ErrorIs(t, err, tenant.ErrInvalidCredential)
	})

	t.Run("rejects a token signed with another key", func(t *testing.T) {
		t.Parallel()

		other, err := tenant.NewVerifier([]byte("another-key-also-32-bytes-long!!!"))
		require.NoError(t, err)
		token, err := other.Issue(tenant.NewAccess("u_1", "t_1"), time.Minute)
		require.NoError(t, err)

		v := newTestVerifier(t)
		_, err = v.Verify(context.Background(), token)
		assert.ErrorIs(t, err, tenant.ErrInvalidCredential)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		t.Parallel()

		v := newTestVerifier(t)
		token, err := v.Issue(tenant.NewAccess("u_1", "t_1"), -time.Minute)
		require.NoError(t, err)

		_, err = v.Verify(context.Background(), token)
		assert.ErrorIs(t, err, tenant.ErrInvalidCredential)
	})

	t.Run("rejects the none algorithm", func(t *testing.T) {
		t.Parallel()

		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, tenant.Claims{
			UserID:   "u_1",
			TenantID: "t_1",
		})
		token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		v := newTestVerifier(t)
		_, err = v.Verify(context.Background(), token)
		assert.ErrorIs(t, err, tenant.ErrInvalidCredential)
	})

	t.Run("pins the issuer when configured", func(t *testing.T) {
		t.Parallel()

		issuing, err := tenant.NewVerifier([]byte(testSigningKey), tenant.WithIssuer("auth.example.com"))
		require.NoError(t, err)
		token, err := issuing.Issue(tenant.NewAccess("u_1", "t_1"), time.Minute)
		require.NoError(t, err)

		checking := newTestVerifier(t, tenant.WithIssuer("auth.example.com"))
		_, err = checking.Verify(context.Background(), token)
		assert.NoError(t, err)

		wrongIssuer := newTestVerifier(t, tenant.WithIssuer("other.example.com"))
		_, err = wrongIssuer.Verify(context.Background(), token)
		assert.ErrorIs(t, err, tenant.ErrInvalidCredential)
	})
}
