package discovery_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-catalog/pkg/catalog"
	cachememory "github.com/tendant/content-catalog/pkg/catalog/cache/memory"
	"github.com/tendant/content-catalog/pkg/catalog/discovery"
	"github.com/tendant/content-catalog/pkg/catalog/indexer"
	repomemory "github.com/tendant/content-catalog/pkg/catalog/repo/memory"
	searchmemory "github.com/tendant/content-catalog/pkg/catalog/search/memory"
)

type discoveryEnv struct {
	svc      catalog.Service
	disc     *discovery.Service
	index    *searchmemory.Index
	pipeline *indexer.Pipeline
	cache    *cachememory.Cache
}

func newDiscoveryEnv(t *testing.T) *discoveryEnv {
	t.Helper()

	repo := repomemory.New()
	cache := cachememory.New()
	index := searchmemory.New()

	pipeline, err := indexer.New(repo, index)
	require.NoError(t, err)

	svc, err := catalog.New(
		catalog.WithRepository(repo),
		catalog.WithCache(cache),
		catalog.WithQueue(pipeline),
	)
	require.NoError(t, err)

	reader := discovery.NewCachedReader(svc, cache)
	disc, err := discovery.NewService(index, reader)
	require.NoError(t, err)

	return &discoveryEnv{svc: svc, disc: disc, index: index, pipeline: pipeline, cache: cache}
}

func (e *discoveryEnv) publish(t *testing.T, title string, pub time.Time, categories ...string) *catalog.ContentDetail {
	t.Helper()
	detail, err := e.svc.CreateContent(context.Background(), catalog.CreateContentRequest{
		Title:           title,
		Status:          catalog.ContentStatusPublished,
		PublicationDate: &pub,
		Categories:      categories,
	})
	require.NoError(t, err)
	return detail
}

func TestBrowsePreservesRankOrder(t *testing.T) {
	env := newDiscoveryEnv(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	oldest := env.publish(t, "Oldest episode", base)
	middle := env.publish(t, "Middle episode", base.AddDate(0, 1, 0))
	newest := env.publish(t, "Newest episode", base.AddDate(0, 2, 0))
	env.pipeline.RunPending(ctx)

	total, results, err := env.disc.Browse(ctx, catalog.SearchQuery{Query: "episode"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, results, 3)
	assert.Equal(t, newest.ID, results[0].ID)
	assert.Equal(t, middle.ID, results[1].ID)
	assert.Equal(t, oldest.ID, results[2].ID)
}

func TestBrowseDropsDanglingIDs(t *testing.T) {
	env := newDiscoveryEnv(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	keep := env.publish(t, "Kept episode", base)
	doomed := env.publish(t, "Doomed episode", base.AddDate(0, 1, 0))
	env.pipeline.RunPending(ctx)

	// Delete the row but hold back its index delete job: the index now holds
	// a dangling reference.
	removed, err := env.svc.DeleteContent(ctx, doomed.ID)
	require.NoError(t, err)
	require.True(t, removed)

	total, results, err := env.disc.Browse(ctx, catalog.SearchQuery{Query: "episode"})
	require.NoError(t, err)
	// Total still counts the tombstone; the hydrated list silently drops it.
	assert.Equal(t, 2, total)
	require.Len(t, results, 1)
	assert.Equal(t, keep.ID, results[0].ID)

	// Once the delete job runs the counts converge again.
	env.pipeline.RunPending(ctx)
	total, results, err = env.disc.Browse(ctx, catalog.SearchQuery{Query: "episode"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, results, 1)
}

func TestBrowseFilters(t *testing.T) {
	env := newDiscoveryEnv(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	history := env.publish(t, "History special", base, "history")
	env.publish(t, "Science special", base.AddDate(0, 1, 0), "science")
	env.pipeline.RunPending(ctx)

	total, results, err := env.disc.Browse(ctx, catalog.SearchQuery{Category: "history"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, results, 1)
	assert.Equal(t, history.ID, results[0].ID)
	assert.Equal(t, []string{"history"}, results[0].Categories)
}

func TestContentDetailByIDUsesDiscoveryKeys(t *testing.T) {
	env := newDiscoveryEnv(t)
	ctx := context.Background()

	detail := env.publish(t, "Episode", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	got, err := env.disc.ContentDetailByID(ctx, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, detail.ID, got.ID)

	// The hydrator keeps its own shared-cache copy under the disc: prefix.
	assert.True(t, env.cache.Contains(catalog.DiscoveryContentKey(detail.ID)))

	_, err = env.disc.ContentDetailByID(ctx, uuid.New())
	assert.ErrorIs(t, err, catalog.ErrContentNotFound)
}
