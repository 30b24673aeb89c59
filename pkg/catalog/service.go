package catalog

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Service is the single authority for item-level cache coherence around the
// content aggregate (content + its media record + its category set). Every
// mutation commits to the store first, then refreshes or evicts the affected
// cache keys before returning, then enqueues an index-sync job without
// waiting for it. Readers therefore see their own writes immediately while
// the search index catches up asynchronously.
type Service interface {
	// Content operations
	CreateContent(ctx context.Context, req CreateContentRequest) (*ContentDetail, error)
	GetContent(ctx context.Context, id uuid.UUID) (*ContentDetail, error)
	UpdateContent(ctx context.Context, id uuid.UUID, req UpdateContentRequest) (*ContentDetail, error)
	DeleteContent(ctx context.Context, id uuid.UUID) (bool, error)

	// ListContent always bypasses the cache and queries the store. List
	// invalidation patterns are error-prone; list reads pay full store cost
	// every time instead.
	ListContent(ctx context.Context, filters ListContentFilters) ([]*ContentDetail, error)

	// Media operations (1:1 sub-resource of a content)
	SetMedia(ctx context.Context, contentID uuid.UUID, req SetMediaRequest) (*Media, error)
	GetMedia(ctx context.Context, contentID uuid.UUID) (*Media, error)
	DeleteMedia(ctx context.Context, contentID uuid.UUID) (bool, error)

	// UploadMediaFile stores the bytes in the configured blob store and
	// attaches them as an uploaded media record, following the same
	// cache/index protocol as SetMedia.
	UploadMediaFile(ctx context.Context, contentID uuid.UUID, filename string, mediaType MediaType, r io.Reader) (*Media, error)
}
