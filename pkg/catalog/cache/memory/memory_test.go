package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetRoundTrip(t *testing.T) {
	cache := New()
	ctx := context.Background()

	type payload struct {
		Title string   `json:"title"`
		Tags  []string `json:"tags"`
	}

	err := cache.Set(ctx, "content:1", payload{Title: "Episode", Tags: []string{"history"}}, time.Minute)
	require.NoError(t, err)

	var got payload
	hit, err := cache.Get(ctx, "content:1", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Episode", got.Title)
	assert.Equal(t, []string{"history"}, got.Tags)

	hit, err = cache.Get(ctx, "content:2", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestEntriesExpire(t *testing.T) {
	now := time.Now()
	cache := NewWithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "content:1", "v", time.Minute))
	require.NoError(t, cache.Set(ctx, "content:2", "v", 0)) // no expiry

	var s string
	hit, err := cache.Get(ctx, "content:1", &s)
	require.NoError(t, err)
	assert.True(t, hit)

	now = now.Add(2 * time.Minute)

	hit, err = cache.Get(ctx, "content:1", &s)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, cache.Contains("content:1"))

	hit, err = cache.Get(ctx, "content:2", &s)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestDelete(t *testing.T) {
	cache := New()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "content:1", "v", time.Minute))

	removed, err := cache.Delete(ctx, "content:1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = cache.Delete(ctx, "content:1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDeleteByPrefix(t *testing.T) {
	cache := New()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "disc:content:1", "v", time.Minute))
	require.NoError(t, cache.Set(ctx, "disc:content:2", "v", time.Minute))
	require.NoError(t, cache.Set(ctx, "content:1", "v", time.Minute))

	removed, err := cache.DeleteByPrefix(ctx, "disc:")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, cache.Len())
	assert.True(t, cache.Contains("content:1"))
}
