package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axservices/credibility-engine/internal/config"
)

func newTestCache(t *testing.T) *ScoreCache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewFromClient(rdb)
}

func TestScoreRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_, ok := c.GetScore(ctx, "p1")
	assert.False(t, ok)

	c.SetScore(ctx, "p1", 72)
	score, ok := c.GetScore(ctx, "p1")
	require.True(t, ok)
	assert.Equal(t, 72, score)

	// Overwrite updates both the key and the rank.
	c.SetScore(ctx, "p1", 55)
	score, _ = c.GetScore(ctx, "p1")
	assert.Equal(t, 55, score)
}

func TestTopOrdering(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	c.SetScore(ctx, "low", 20)
	c.SetScore(ctx, "high", 90)
	c.SetScore(ctx, "mid", 50)

	top, err := c.Top(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, Entry{ProviderID: "high", Score: 90}, top[0])
	assert.Equal(t, Entry{ProviderID: "mid", Score: 50}, top[1])

	// Non-positive limit falls back to the default window.
	top, err = c.Top(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, top, 3)
}

func TestRemove(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	c.SetScore(ctx, "p1", 40)
	c.Remove(ctx, "p1")

	_, ok := c.GetScore(ctx, "p1")
	assert.False(t, ok)

	top, err := c.Top(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestNilCacheIsInert(t *testing.T) {
	var c *ScoreCache
	ctx := context.Background()

	c.SetScore(ctx, "p1", 10)
	_, ok := c.GetScore(ctx, "p1")
	assert.False(t, ok)

	top, err := c.Top(ctx, 5)
	assert.NoError(t, err)
	assert.Nil(t, top)

	c.Remove(ctx, "p1")
	assert.NoError(t, c.Close())
}

func TestNewWithoutAddrDisablesCache(t *testing.T) {
	assert.Nil(t, New(config.CacheConfig{}))
	assert.NotNil(t, New(config.CacheConfig{Addr: "localhost:6379"}))
}
