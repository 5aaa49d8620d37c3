package cache

import (
	"context"
	"testing"
	"time"

	"admin-dashboard/backend/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func TestLRU(t *testing.T) {
	ctx := context.Background()
	c := NewLRU[entry](2, time.Minute)

	c.Set(ctx, "a", entry{ID: 1, Name: "alice"})
	c.Set(ctx, "b", entry{ID: 2, Name: "bob"})

	got, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "alice", got.Name)

	// "b" is now least recently used and falls out.
	c.Set(ctx, "c", entry{ID: 3, Name: "carol"})
	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())

	c.Delete(ctx, "a")
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok)
}

func TestLRUExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewLRU[entry](10, 20*time.Millisecond)
	c.Set(ctx, "a", entry{ID: 1})

	assert.Eventually(t, func() bool {
		_, ok := c.Get(ctx, "a")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	c := NewRedis[entry](client, "user:", time.Minute, logger.Discard())

	_, ok := c.Get(ctx, "1")
	assert.False(t, ok)

	c.Set(ctx, "1", entry{ID: 1, Name: "alice"})
	assert.True(t, mr.Exists("user:1"))

	got, ok := c.Get(ctx, "1")
	require.True(t, ok)
	assert.Equal(t, entry{ID: 1, Name: "alice"}, got)

	mr.FastForward(2 * time.Minute)
	_, ok = c.Get(ctx, "1")
	assert.False(t, ok)

	c.Set(ctx, "2", entry{ID: 2})
	c.Delete(ctx, "2")
	assert.False(t, mr.Exists("user:2"))
}

func TestRedisBackendDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	c := NewRedis[entry](client, "user:", time.Minute, logger.Discard())
	_, ok := c.Get(context.Background(), "1")
	assert.False(t, ok)
}
