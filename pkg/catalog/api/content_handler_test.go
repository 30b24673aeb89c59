package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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

// setupRouterTest wires the full router on in-memory components.
func setupRouterTest(t *testing.T) (http.Handler, catalog.Service, *indexer.Pipeline) {
	t.Helper()

	repo := repomemory.New()
	cache := cachememory.New()
	index := searchmemory.New()

	pipeline, err := indexer.New(repo, index)
	require.NoError(t, err)

	service, err := catalog.New(
		catalog.WithRepository(repo),
		catalog.WithCache(cache),
		catalog.WithQueue(pipeline),
	)
	require.NoError(t, err)

	reader := discovery.NewCachedReader(service, cache)
	disc, err := discovery.NewService(index, reader)
	require.NoError(t, err)

	return NewRouter(service, disc), service, pipeline
}

func doJSON(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestContentHandler_CreateContent_Success(t *testing.T) {
	router, _, _ := setupRouterTest(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/contents", CreateContentRequest{
		Title:       "Episode 1",
		Description: "A documentary about ancient Rome",
		Language:    "en",
		Status:      "published",
		Categories:  []string{"documentary", "history"},
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp catalog.ContentDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEqual(t, uuid.Nil, resp.ID)
	assert.Equal(t, "Episode 1", resp.Title)
	assert.Equal(t, catalog.ContentStatusPublished, resp.Status)
	assert.Equal(t, []string{"documentary", "history"}, resp.Categories)
}

func TestContentHandler_CreateContent_MissingTitle(t *testing.T) {
	router, _, _ := setupRouterTest(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/contents", CreateContentRequest{
		Description: "no title",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContentHandler_GetContent(t *testing.T) {
	router, service, _ := setupRouterTest(t)

	created, err := service.CreateContent(context.Background(), catalog.CreateContentRequest{Title: "Episode 1"})
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodGet, "/api/v1/contents/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp catalog.ContentDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, created.ID, resp.ID)

	w = doJSON(t, router, http.MethodGet, "/api/v1/contents/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/contents/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContentHandler_UpdateContent_Partial(t *testing.T) {
	router, service, _ := setupRouterTest(t)

	created, err := service.CreateContent(context.Background(), catalog.CreateContentRequest{
		Title:       "Original",
		Description: "Keep me",
		Categories:  []string{"news"},
	})
	require.NoError(t, err)

	// Raw JSON so absent fields stay absent.
	w := doJSON(t, router, http.MethodPatch, "/api/v1/contents/"+created.ID.String(),
		map[string]any{"title": "Renamed"})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp catalog.ContentDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Renamed", resp.Title)
	assert.Equal(t, "Keep me", resp.Description)
	assert.Equal(t, []string{"news"}, resp.Categories)

	// "categories": [] clears the join set.
	w = doJSON(t, router, http.MethodPatch, "/api/v1/contents/"+created.ID.String(),
		map[string]any{"categories": []string{}})
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{}, resp.Categories)
}

func TestContentHandler_UpdateContent_PublicationDateNull(t *testing.T) {
	router, service, _ := setupRouterTest(t)

	pub := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	created, err := service.CreateContent(context.Background(), catalog.CreateContentRequest{
		Title:           "Dated episode",
		PublicationDate: &pub,
	})
	require.NoError(t, err)
	target := "/api/v1/contents/" + created.ID.String()

	// A body without the field leaves the stored date alone.
	w := doJSON(t, router, http.MethodPatch, target, map[string]any{"title": "Renamed"})
	assert.Equal(t, http.StatusOK, w.Code)
	var resp catalog.ContentDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.PublicationDate)

	// An explicit null clears it.
	w = doJSON(t, router, http.MethodPatch, target, map[string]any{"publication_date": nil})
	assert.Equal(t, http.StatusOK, w.Code)
	resp = catalog.ContentDetail{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp.PublicationDate)
}

func TestContentHandler_FieldBounds(t *testing.T) {
	router, service, _ := setupRouterTest(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/contents", CreateContentRequest{
		Title:    "Episode 1",
		Duration: -5,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	created, err := service.CreateContent(context.Background(), catalog.CreateContentRequest{Title: "Episode 1"})
	require.NoError(t, err)

	w = doJSON(t, router, http.MethodPatch, "/api/v1/contents/"+created.ID.String(),
		map[string]any{"duration": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContentHandler_DeleteContent(t *testing.T) {
	router, service, _ := setupRouterTest(t)

	created, err := service.CreateContent(context.Background(), catalog.CreateContentRequest{Title: "Doomed"})
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodDelete, "/api/v1/contents/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/contents/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContentHandler_ListContent(t *testing.T) {
	router, service, _ := setupRouterTest(t)
	ctx := context.Background()

	_, err := service.CreateContent(ctx, catalog.CreateContentRequest{
		Title: "Published piece", Status: catalog.ContentStatusPublished,
	})
	require.NoError(t, err)
	_, err = service.CreateContent(ctx, catalog.CreateContentRequest{Title: "Draft piece"})
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodGet, "/api/v1/contents?status=published", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp []catalog.ContentDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "Published piece", resp[0].Title)
}

func TestContentHandler_MediaLifecycle(t *testing.T) {
	router, service, _ := setupRouterTest(t)

	created, err := service.CreateContent(context.Background(), catalog.CreateContentRequest{Title: "Episode 1"})
	require.NoError(t, err)
	base := "/api/v1/contents/" + created.ID.String() + "/media"

	// Invalid combination is rejected before touching the store.
	w := doJSON(t, router, http.MethodPut, base, SetMediaRequest{
		MediaType: "video",
		Source:    "upload",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPut, base, SetMediaRequest{
		MediaType:   "video",
		Source:      "external",
		Provider:    "youtube",
		ExternalURL: "https://youtube.com/watch?v=abc",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var media catalog.Media
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &media))
	assert.Equal(t, created.ID, media.ContentID)
	assert.Equal(t, catalog.MediaProviderYouTube, media.Provider)

	w = doJSON(t, router, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDiscoveryHandler_Browse(t *testing.T) {
	router, service, pipeline := setupRouterTest(t)
	ctx := context.Background()

	pub := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	created, err := service.CreateContent(ctx, catalog.CreateContentRequest{
		Title:           "Episode 1",
		Status:          catalog.ContentStatusPublished,
		PublicationDate: &pub,
		Categories:      []string{"history"},
	})
	require.NoError(t, err)

	// The index lags until the pipeline runs.
	w := doJSON(t, router, http.MethodGet, "/api/v1/discovery/browse?query=episode", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var resp BrowseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Total)
	assert.Empty(t, resp.Results)

	pipeline.RunPending(ctx)

	w = doJSON(t, router, http.MethodGet, "/api/v1/discovery/browse?query=episode&category=history", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, created.ID, resp.Results[0].ID)
}

func TestDiscoveryHandler_GetContentDetail(t *testing.T) {
	router, service, _ := setupRouterTest(t)

	created, err := service.CreateContent(context.Background(), catalog.CreateContentRequest{Title: "Episode 1"})
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodGet, "/api/v1/discovery/contents/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/discovery/contents/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
