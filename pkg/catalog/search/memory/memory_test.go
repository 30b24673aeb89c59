package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-catalog/pkg/catalog"
)

func doc(title string, pub *time.Time, categories ...string) catalog.SearchDocument {
	now := time.Now().UTC()
	return catalog.SearchDocument{
		ID:              uuid.New(),
		Title:           title,
		Categories:      categories,
		Language:        "en",
		Status:          string(catalog.ContentStatusPublished),
		PublicationDate: pub,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestSearchOrdering(t *testing.T) {
	index := New()
	ctx := context.Background()

	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	undated := doc("Undated", nil)
	oldest := doc("Oldest", &early)
	newest := doc("Newest", &late)
	for _, d := range []catalog.SearchDocument{undated, oldest, newest} {
		require.NoError(t, index.Upsert(ctx, d))
	}

	total, ids, err := index.Search(ctx, catalog.SearchQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	// Dated documents first, newest publication on top, undated last.
	require.Equal(t, []uuid.UUID{newest.ID, oldest.ID, undated.ID}, ids)
}

func TestSearchFilters(t *testing.T) {
	index := New()
	ctx := context.Background()

	pub := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	history := doc("History special", &pub, "history")
	science := doc("Science special", &pub, "science")
	require.NoError(t, index.Upsert(ctx, history))
	require.NoError(t, index.Upsert(ctx, science))

	total, ids, err := index.Search(ctx, catalog.SearchQuery{Category: "history"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Equal(t, []uuid.UUID{history.ID}, ids)

	total, ids, err = index.Search(ctx, catalog.SearchQuery{Query: "science"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Equal(t, []uuid.UUID{science.ID}, ids)

	from := pub.AddDate(0, 1, 0)
	total, _, err = index.Search(ctx, catalog.SearchQuery{DateFrom: &from})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestSearchPagination(t *testing.T) {
	index := New()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ordered []uuid.UUID
	for i := 0; i < 5; i++ {
		pub := base.AddDate(0, 0, i)
		d := doc("Episode", &pub)
		require.NoError(t, index.Upsert(ctx, d))
		// Newest first in the expected ordering.
		ordered = append([]uuid.UUID{d.ID}, ordered...)
	}

	total, ids, err := index.Search(ctx, catalog.SearchQuery{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Equal(t, ordered[1:3], ids)

	// Offset past the end keeps the total but returns nothing.
	total, ids, err = index.Search(ctx, catalog.SearchQuery{Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, ids)
}

func TestDeleteAbsentIsSuccess(t *testing.T) {
	index := New()
	ctx := context.Background()

	d := doc("Episode", nil)
	require.NoError(t, index.Upsert(ctx, d))
	require.NoError(t, index.Delete(ctx, d.ID))
	require.NoError(t, index.Delete(ctx, d.ID))
	assert.Equal(t, 0, index.Len())
}
