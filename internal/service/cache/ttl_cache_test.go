package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetBytes(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.SetBytes(ctx, "b", []byte("2"), 0))

	b, ok, err := c.GetBytes(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", string(b))

	now = now.Add(2 * time.Minute)
	_, ok, _ = c.GetBytes(ctx, "a")
	assert.False(t, ok)

	_, ok, _ = c.GetBytes(ctx, "b")
	assert.True(t, ok, "zero ttl never expires")
}

func TestTTLCacheSweepAndCopy(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c := NewTTLCache()
	c.now = func() time.Time { return now }

	buf := []byte("abc")
	_ = c.SetBytes(ctx, "k", buf, time.Second)
	buf[0] = 'x'
	got, _, _ := c.GetBytes(ctx, "k")
	assert.Equal(t, "abc", string(got))

	now = now.Add(time.Hour)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 0, c.Len())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "magi:tool:get_stock_price:AAPL", Key("tool", "get_stock_price", "AAPL"))
	assert.Equal(t, "magi", Key())
}
