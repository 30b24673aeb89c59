package indexer_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-catalog/pkg/catalog"
	"github.com/tendant/content-catalog/pkg/catalog/indexer"
	repomemory "github.com/tendant/content-catalog/pkg/catalog/repo/memory"
	searchmemory "github.com/tendant/content-catalog/pkg/catalog/search/memory"
)

func seedContent(t *testing.T, repo *repomemory.Repository, title string) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	content := &catalog.Content{
		ID:        uuid.New(),
		Title:     title,
		Status:    catalog.ContentStatusPublished,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.CreateContent(context.Background(), content))
	return content.ID
}

func TestUpsertJobReadsCurrentStoreState(t *testing.T) {
	repo := repomemory.New()
	index := searchmemory.New()
	pipeline, err := indexer.New(repo, index)
	require.NoError(t, err)
	ctx := context.Background()

	id := seedContent(t, repo, "Before rename")
	require.NoError(t, pipeline.Enqueue(ctx, catalog.Job{Kind: catalog.JobUpsert, ContentID: id}))

	// Mutate after enqueue: the job must index what the store says now.
	content, err := repo.GetContent(ctx, id)
	require.NoError(t, err)
	content.Title = "After rename"
	require.NoError(t, repo.UpdateContent(ctx, content))

	require.Equal(t, 1, pipeline.RunPending(ctx))
	doc, ok := index.Document(id)
	require.True(t, ok)
	assert.Equal(t, "After rename", doc.Title)
}

func TestUpsertJobForDeletedContentIsNoOp(t *testing.T) {
	repo := repomemory.New()
	index := searchmemory.New()
	pipeline, err := indexer.New(repo, index)
	require.NoError(t, err)
	ctx := context.Background()

	id := seedContent(t, repo, "Short lived")
	require.NoError(t, pipeline.Enqueue(ctx, catalog.Job{Kind: catalog.JobUpsert, ContentID: id}))

	removed, err := repo.DeleteContent(ctx, id)
	require.NoError(t, err)
	require.True(t, removed)

	// The row vanished between enqueue and execution; nothing gets indexed.
	require.Equal(t, 1, pipeline.RunPending(ctx))
	assert.Equal(t, 0, index.Len())
}

func TestDeleteJobToleratesAbsentDocument(t *testing.T) {
	repo := repomemory.New()
	index := searchmemory.New()
	pipeline, err := indexer.New(repo, index, indexer.WithBackoff(time.Millisecond))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, pipeline.Enqueue(ctx, catalog.Job{Kind: catalog.JobDelete, ContentID: uuid.New()}))
	assert.Equal(t, 1, pipeline.RunPending(ctx))
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	repo := repomemory.New()
	index := searchmemory.New()
	pipeline, err := indexer.New(repo, index, indexer.WithQueueSize(2))
	require.NoError(t, err)
	ctx := context.Background()

	job := catalog.Job{Kind: catalog.JobDelete, ContentID: uuid.New()}
	require.NoError(t, pipeline.Enqueue(ctx, job))
	require.NoError(t, pipeline.Enqueue(ctx, job))

	// Third enqueue finds the queue full and must not block.
	err = pipeline.Enqueue(ctx, job)
	assert.ErrorIs(t, err, catalog.ErrQueueFull)
	assert.Equal(t, 2, pipeline.QueueDepth())
}

func TestWorkersDrainQueue(t *testing.T) {
	repo := repomemory.New()
	index := searchmemory.New()
	pipeline, err := indexer.New(repo, index, indexer.WithWorkers(3))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	pipeline.Start(ctx)

	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = seedContent(t, repo, "Episode")
		require.NoError(t, pipeline.Enqueue(ctx, catalog.Job{Kind: catalog.JobUpsert, ContentID: ids[i]}))
	}

	require.Eventually(t, func() bool {
		return index.Len() == len(ids)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	pipeline.Wait()
}

func TestJobWithMediaIndexesMediaType(t *testing.T) {
	repo := repomemory.New()
	index := searchmemory.New()
	pipeline, err := indexer.New(repo, index)
	require.NoError(t, err)
	ctx := context.Background()

	id := seedContent(t, repo, "Episode with media")
	now := time.Now().UTC()
	require.NoError(t, repo.SetMedia(ctx, &catalog.Media{
		ID:          uuid.New(),
		ContentID:   id,
		MediaType:   catalog.MediaTypeAudio,
		Source:      catalog.MediaSourceExternal,
		Provider:    catalog.MediaProviderYouTube,
		ExternalURL: "https://youtube.com/watch?v=abc",
		CreatedAt:   now,
		UpdatedAt:   now,
	}))

	require.NoError(t, pipeline.Enqueue(ctx, catalog.Job{Kind: catalog.JobUpsert, ContentID: id}))
	require.Equal(t, 1, pipeline.RunPending(ctx))

	doc, ok := index.Document(id)
	require.True(t, ok)
	assert.Equal(t, string(catalog.MediaTypeAudio), doc.MediaType)
}
