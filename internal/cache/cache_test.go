package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	a := Key("generation", "blog", "write about go")
	assert.True(t, strings.HasPrefix(a, "generation:"))
	assert.Equal(t, a, Key("generation", "blog", "write about go"))
	assert.NotContains(t, a, "write about go")

	// part boundaries are significant
	assert.NotEqual(t, Key("ns", "ab", "c"), Key("ns", "a", "bc"))
	assert.NotEqual(t, Key("ns", "x"), Key("other", "x"))
}

func TestLRUCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c, err := NewLRUCache(8)
	require.NoError(t, err)
	c.WithClock(func() time.Time { return now })

	require.NoError(t, c.Set(ctx, "short", []byte("a"), time.Minute))
	require.NoError(t, c.Set(ctx, "forever", []byte("b"), 0))

	v, hit, err := c.Get(ctx, "short")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("a"), v)

	now = now.Add(time.Minute)
	_, hit, err = c.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, hit)

	v, hit, err = c.Get(ctx, "forever")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("b"), v)
}

func TestLRUCache_CopiesValue(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRUCache(8)
	require.NoError(t, err)

	buf := []byte("original")
	require.NoError(t, c.Set(ctx, "k", buf, 0))
	copy(buf, "mutated!")

	v, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "original", string(v))
}

func TestLRUCache_Evicts(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRUCache(2)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	_, hit, _ := c.Get(ctx, "a")
	assert.False(t, hit)
	_, hit, _ = c.Get(ctx, "c")
	assert.True(t, hit)
}

func TestNewLRUCache_InvalidSize(t *testing.T) {
	_, err := NewLRUCache(0)
	assert.Error(t, err)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := NewRedisCache(client)

	_, hit, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "k", []byte(`{"success":true}`), time.Minute))
	v, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.JSONEq(t, `{"success":true}`, string(v))

	mr.FastForward(time.Minute)
	_, hit, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCache_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, _, err := NewRedisCache(client).Get(context.Background(), "k")
	assert.Error(t, err)
}
