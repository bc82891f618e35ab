package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func TestMemory_SetGet(t *testing.T) {
	m := NewMemory(time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "p:1", item{ID: "1", Title: "Runner"}, 0))

	var got item
	found, err := m.Get(ctx, "p:1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Runner", got.Title)

	found, err = m.Get(ctx, "p:2", &got)
	require.NoError(t, err)
	assert.False(t, found)

	assert.Equal(t, Stats{Hits: 1, Misses: 1, Sets: 1}, m.Stats())
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", item{ID: "1"}, 10*time.Second))

	now = now.Add(9 * time.Second)
	var got item
	found, _ := m.Get(ctx, "k", &got)
	assert.True(t, found)

	now = now.Add(time.Second)
	found, _ = m.Get(ctx, "k", &got)
	assert.False(t, found)
	assert.Equal(t, 0, m.Len())
}

func TestMemory_Delete(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", item{ID: "1"}, 0))
	require.NoError(t, m.Delete(ctx, "k"))

	var got item
	found, err := m.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

// setupTestRedis returns a Redis cache or skips when no server is reachable.
func setupTestRedis(t *testing.T, prefix string) *Redis {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", addr, err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})
	return NewRedis(client, prefix, time.Minute)
}

func TestRedis_SetGetDelete(t *testing.T) {
	r := setupTestRedis(t, "sparks-test:")
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "p:1", item{ID: "1", Title: "Runner"}, 0))

	var got item
	found, err := r.Get(ctx, "p:1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Runner", got.Title)

	require.NoError(t, r.Delete(ctx, "p:1"))
	found, err = r.Get(ctx, "p:1", &got)
	require.NoError(t, err)
	assert.False(t, found)

	stats := r.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}
