package catalog

import (
	"time"

	"github.com/google/uuid"
)

// ContentStatus is the domain type for content lifecycle states.
type ContentStatus string

// Content status constants (typed).
const (
	ContentStatusDraft     ContentStatus = "draft"
	ContentStatusPublished ContentStatus = "published"
)

// MediaType is the domain type for a media record's kind.
type MediaType string

const (
	MediaTypeAudio MediaType = "audio"
	MediaTypeVideo MediaType = "video"
)

// MediaSource says where the media bytes live: our own storage or an
// external provider URL.
type MediaSource string

const (
	MediaSourceUpload   MediaSource = "upload"
	MediaSourceExternal MediaSource = "external"
)

// MediaProvider identifies who produced externally hosted media.
type MediaProvider string

const (
	MediaProviderTeam    MediaProvider = "team"
	MediaProviderYouTube MediaProvider = "youtube"
)

// Content is a catalog entry (episode, documentary, article...). Categories
// is populated by the repository from the join table; it is not a column.
type Content struct {
	ID              uuid.UUID     `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description,omitempty"`
	Language        string        `json:"language,omitempty"`
	Duration        int           `json:"duration,omitempty"`
	PublicationDate *time.Time    `json:"publication_date,omitempty"`
	Status          ContentStatus `json:"status"`
	Categories      []string      `json:"categories"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Media is the single media record attached to a content (1:1, enforced by a
// unique constraint on content_id). Exactly one of MediaFile/ExternalURL is
// set, matching Source; the database does not enforce this, the service does.
type Media struct {
	ID          uuid.UUID     `json:"id"`
	ContentID   uuid.UUID     `json:"content_id"`
	MediaType   MediaType     `json:"media_type"`
	Source      MediaSource   `json:"source"`
	Provider    MediaProvider `json:"provider"`
	MediaFile   string        `json:"media_file,omitempty"`
	ExternalURL string        `json:"external_url,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Category is an ensure-or-create tag. Categories with zero contents are
// kept around; there is no orphan cleanup.
type Category struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// ContentDetail is the hydrated content+media DTO served from the cache and
// returned by every read and mutation. It is the unit stored under the
// content:{id} cache key.
type ContentDetail struct {
	ID              uuid.UUID     `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description,omitempty"`
	Language        string        `json:"language,omitempty"`
	Duration        int           `json:"duration,omitempty"`
	PublicationDate *time.Time    `json:"publication_date,omitempty"`
	Status          ContentStatus `json:"status"`
	Categories      []string      `json:"categories"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	Media           *Media        `json:"media,omitempty"`
}

// SearchDocument is the denormalized projection of a content aggregate kept
// in the search index. It is rebuilt wholesale on every sync, never patched.
type SearchDocument struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Categories      []string   `json:"categories"`
	Language        string     `json:"language,omitempty"`
	MediaType       string     `json:"media_type,omitempty"`
	Status          string     `json:"status"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ListContentFilters narrows ListContent results. Zero values mean "no
// filter". Query is a substring match over title and description; the rest
// are exact matches. Results are ordered by publication_date descending
// (nulls last), then created_at descending.
type ListContentFilters struct {
	Query    string
	Language string
	Status   ContentStatus
	Category string
	Limit    int
	Offset   int
}

// SearchQuery is the request shape for the opaque search service.
type SearchQuery struct {
	Query     string
	MediaType string
	Category  string
	Language  string
	Status    string
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
	Offset    int
}

// JobKind discriminates index-sync jobs.
type JobKind string

const (
	JobUpsert JobKind = "upsert"
	JobDelete JobKind = "delete"
)

// Job is an index-sync work item. It carries only the content id: upsert
// workers re-read the current store state so a stale enqueue can never
// publish a stale document.
type Job struct {
	Kind      JobKind   `json:"kind"`
	ContentID uuid.UUID `json:"content_id"`
}
