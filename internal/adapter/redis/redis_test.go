package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/census-map-service/internal/domain"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNewClient_BadURL(t *testing.T) {
	_, err := NewClient(context.Background(), "not-a-url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis url")
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewClient(context.Background(), "redis://"+addr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis")
}

func TestQueue_RoundTripFIFO(t *testing.T) {
	_, client := newTestClient(t)
	q := NewQueue(client, "census")
	ctx := context.Background()

	at := time.Date(2024, 3, 5, 9, 30, 0, 0, domain.Eastern)
	require.NoError(t, q.Enqueue(ctx, domain.RenderJob{ID: "a", State: "Texas", Variable: "totalPopulation", RequestedAt: at}))
	require.NoError(t, q.Enqueue(ctx, domain.RenderJob{ID: "b", State: "Ohio", Variable: "popPctChange", RequestedAt: at}))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", first.ID)
	assert.True(t, at.Equal(first.RequestedAt))
	assert.Equal(t, "state-Texas_var-totalPopulation_timestamp-03-05-2024.html", first.ArtifactName())

	second, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", second.ID)
}

func TestQueue_KeyIsNamespaced(t *testing.T) {
	mr, client := newTestClient(t)
	q := NewQueue(client, "maps")
	require.NoError(t, q.Enqueue(context.Background(), domain.RenderJob{ID: "a"}))

	assert.True(t, mr.Exists("census-map:queue:maps"))
}

func TestQueue_DequeueStopsOnCancel(t *testing.T) {
	_, client := newTestClient(t)
	q := NewQueue(client, "census")
	q.pollTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_DequeueRejectsGarbage(t *testing.T) {
	mr, client := newTestClient(t)
	q := NewQueue(client, "census")
	_, err := mr.Lpush("census-map:queue:census", "not json")
	require.NoError(t, err)

	_, err = q.Dequeue(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode job")
}

func TestQueue_CheckReadiness(t *testing.T) {
	mr, client := newTestClient(t)
	q := NewQueue(client, "census")
	require.NoError(t, q.CheckReadiness(context.Background()))

	mr.Close()
	assert.Error(t, q.CheckReadiness(context.Background()))
}

func newTestStore(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *StatusStore) {
	t.Helper()
	mr, client := newTestClient(t)
	return mr, NewStatusStore(client, ttl, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStatusStore_UpsertAndGet(t *testing.T) {
	_, s := newTestStore(t, time.Hour)
	ctx := context.Background()
	now := time.Date(2024, 3, 5, 14, 30, 0, 123, time.UTC)

	want := domain.JobStatus{
		JobID:        "j1",
		State:        "Texas",
		Variable:     "totalPopulation",
		Status:       domain.StatusSucceeded,
		ArtifactName: "state-Texas_var-totalPopulation_timestamp-03-05-2024.html",
		UpdatedAt:    now,
	}
	require.NoError(t, s.Upsert(ctx, want))

	got, err := s.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStatusStore_ClearsErrorFields(t *testing.T) {
	_, s := newTestStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, domain.JobStatus{
		JobID: "j1", Status: domain.StatusFailed, ErrorCode: "upstream_error", ErrorMessage: "status 503",
	}))
	require.NoError(t, s.Upsert(ctx, domain.JobStatus{JobID: "j1", Status: domain.StatusRunning}))

	got, err := s.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, got.Status)
	assert.Empty(t, got.ErrorCode)
	assert.Empty(t, got.ErrorMessage)
}

func TestStatusStore_Expires(t *testing.T) {
	mr, s := newTestStore(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, domain.JobStatus{JobID: "j1", Status: domain.StatusQueued}))

	assert.Equal(t, time.Minute, mr.TTL("census-map:job:j1"))
	mr.FastForward(2 * time.Minute)

	_, err := s.Get(ctx, "j1")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestStatusStore_NotFound(t *testing.T) {
	_, s := newTestStore(t, time.Hour)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}
