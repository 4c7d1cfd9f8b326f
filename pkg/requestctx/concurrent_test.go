package requestctx_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/requestctx"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// headerResolver resolves a distinct scope per request so concurrent
// requests carry different tenants through the same middleware instance.
type headerResolver struct{}

func (headerResolver) Resolve(r *http.Request) (tenant.Access, error) {
	id := r.Header.Get("X-Test-Tenant")
	return tenant.NewAccess("user-"+id, id), nil
}

func TestConcurrentRequestIsolation(t *testing.T) {
	t.Parallel()

	const workers = 64

	handler := requestctx.Middleware(headerResolver{})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			want := r.Header.Get("X-Test-Tenant")

			rc := requestctx.MustFromContext(r.Context())
			first := rc.Access().TenantID()

			// Yield so other in-flight requests interleave, then re-read
			// the ambient scope: it must still be this request's own.
			time.Sleep(time.Millisecond)

			again := requestctx.MustFromContext(r.Context())
			if first != want || again.Access().TenantID() != want || again.ID() != rc.ID() {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}

			scope := tenant.MustFromContext(r.Context())
			if scope.TenantID() != want {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}),
	)

	var wg sync.WaitGroup
	failures := make(chan string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			tenantID := fmt.Sprintf("tenant-%d", n)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Test-Tenant", tenantID)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusNoContent {
				failures <- tenantID
			}
		}(i)
	}

	wg.Wait()
	close(failures)

	for leaked := range failures {
		t.Errorf("request for %s observed another request's context", leaked)
	}
}

func TestConcurrentScratchAccess(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rc := requestctx.New(req, tenant.NewAccess("u", "t"))

	const writers = 32
	var wg sync.WaitGroup

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n)
			rc.Set(key, n)
			v, ok := rc.Get(key)
			assert.True(t, ok)
			assert.Equal(t, n, v)
		}(i)
	}

	wg.Wait()

	for i := 0; i < writers; i++ {
		v, ok := rc.Get(fmt.Sprintf("key-%d", i))
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}
