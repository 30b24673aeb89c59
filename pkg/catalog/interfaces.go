package catalog

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for content aggregate persistence. It is
// the source of truth; cache and index are projections of it.
type Repository interface {
	// Content operations
	CreateContent(ctx context.Context, content *Content) error
	GetContent(ctx context.Context, id uuid.UUID) (*Content, error)
	UpdateContent(ctx context.Context, content *Content) error
	DeleteContent(ctx context.Context, id uuid.UUID) (bool, error)
	ListContent(ctx context.Context, filters ListContentFilters) ([]*Content, error)

	// Category operations. EnsureCategories creates any missing names and
	// returns the full managed set; a concurrent-create unique violation is
	// resolved internally by re-reading. ReplaceContentCategories swaps the
	// join set atomically (delete-then-insert in one transaction).
	EnsureCategories(ctx context.Context, names []string) ([]*Category, error)
	ReplaceContentCategories(ctx context.Context, contentID uuid.UUID, categoryIDs []uuid.UUID) error
	ListContentCategories(ctx context.Context, contentID uuid.UUID) ([]*Category, error)

	// Media operations (1:1 with content)
	SetMedia(ctx context.Context, media *Media) error
	GetMediaByContentID(ctx context.Context, contentID uuid.UUID) (*Media, error)
	GetMediaByContentIDs(ctx context.Context, contentIDs []uuid.UUID) (map[uuid.UUID]*Media, error)
	DeleteMediaByContentID(ctx context.Context, contentID uuid.UUID) (bool, error)
}

// Cache is the minimal key/value contract the orchestrator needs. Adapters
// own JSON encoding so callers store structured values without
// double-encoding. Get reports a miss as (false, nil), never an error.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)

	// DeleteByPrefix removes every key with the given prefix using
	// incremental scanning; implementations must not block the whole
	// keyspace. Returns the number of keys removed.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
}

// SearchIndex is the opaque ranked-ID search service. Delete of an absent
// document is success, not failure.
type SearchIndex interface {
	Upsert(ctx context.Context, doc SearchDocument) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, q SearchQuery) (total int, ids []uuid.UUID, err error)
}

// BlobStore holds uploaded media files. Keys are opaque paths chosen by the
// service; the stored key ends up in Media.MediaFile.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// JobQueue accepts index-sync jobs. Enqueue is best-effort fire-and-forget:
// at-least-once delivery, no ordering guarantee, and the caller never waits
// for job completion.
type JobQueue interface {
	Enqueue(ctx context.Context, job Job) error
}
