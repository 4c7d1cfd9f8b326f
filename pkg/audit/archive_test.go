package audit_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/audit"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	return keys
}

func TestArchiver_Run(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)
	clk := clock.NewMock()
	clk.Set(now)

	store := audit.NewMemoryStore()
	seed := []audit.Event{
		{ID: "old_1", Type: audit.EventCreate, TenantID: "t_1", CreatedDate: now.Add(-100 * 24 * time.Hour)},
		{ID: "old_2", Type: audit.EventUpdate, TenantID: "t_1", CreatedDate: now.Add(-91 * 24 * time.Hour)},
		{ID: "fresh", Type: audit.EventCreate, TenantID: "t_1", CreatedDate: now.Add(-time.Hour)},
	}
	require.NoError(t, store.StoreBatch(context.Background(), seed))

	bucket := newFakeS3()
	arch := audit.NewArchiver(store, bucket, "acme-audit", audit.WithArchiverClock(clk))

	pruned, err := arch.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, pruned)
	assert.Equal(t, 1, store.Len())

	keys := bucket.keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "audit/"), "key %q", keys[0])
	assert.True(t, strings.HasSuffix(keys[0], ".ndjson"), "key %q", keys[0])

	var archived []audit.Event
	scanner := bufio.NewScanner(bytes.NewReader(bucket.objects[keys[0]]))
	for scanner.Scan() {
		var e audit.Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		archived = append(archived, e)
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{"old_2", "old_1"}, eventIDs(archived))
}

func TestArchiver_RunNothingExpired(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock()
	clk.Set(time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC))

	store := audit.NewMemoryStore()
	require.NoError(t, store.Store(context.Background(), audit.Event{
		ID: "fresh", Type: audit.EventCreate, CreatedDate: clk.Now().Add(-time.Hour),
	}))

	bucket := newFakeS3()
	arch := audit.NewArchiver(store, bucket, "acme-audit", audit.WithArchiverClock(clk))

	pruned, err := arch.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, pruned)
	assert.Equal(t, 1, store.Len())
	assert.Empty(t, bucket.keys())
}

func TestArchiver_ShortRetentionAndBatching(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)
	clk := clock.NewMock()
	clk.Set(now)

	store := audit.NewMemoryStore()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Store(context.Background(), audit.Event{
			ID:          string(rune('a' + i)),
			Type:        audit.EventCreate,
			CreatedDate: now.Add(-48*time.Hour - time.Duration(i)*time.Minute),
		}))
	}

	bucket := newFakeS3()
	arch := audit.NewArchiver(store, bucket, "acme-audit",
		audit.WithArchiverClock(clk),
		audit.WithRetention(24*time.Hour),
		audit.WithArchiveBatchSize(2),
	)

	pruned, err := arch.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5, pruned)
	assert.Zero(t, store.Len())
	assert.Len(t, bucket.keys(), 3)
}
