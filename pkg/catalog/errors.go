package catalog

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrContentNotFound indicates a content was not found
	ErrContentNotFound = errors.New("content not found")

	// ErrMediaNotFound indicates a content has no media record
	ErrMediaNotFound = errors.New("media not found")

	// ErrCategoryConflict indicates a concurrent insert raced on a unique
	// category name; callers retry by re-reading
	ErrCategoryConflict = errors.New("category name conflict")

	// ErrInvalidMedia indicates the media_file/external_url pairing does not
	// match the declared source
	ErrInvalidMedia = errors.New("media source and location do not match")

	// ErrInvalidContent indicates a content request violates a field bound
	ErrInvalidContent = errors.New("invalid content")

	// ErrQueueFull indicates the index-sync queue rejected a job
	ErrQueueFull = errors.New("index sync queue full")
)

// ContentError represents an error related to content operations
type ContentError struct {
	ContentID uuid.UUID
	Op        string
	Err       error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("content operation %s failed for content %s: %v", e.Op, e.ContentID, e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

// CacheError represents an error from the cache layer. The orchestrator
// absorbs these on the mutation path; they only propagate from direct cache
// administration calls.
type CacheError struct {
	Key string
	Op  string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// IndexError represents an error from the search index adapter.
type IndexError struct {
	DocID uuid.UUID
	Op    string
	Err   error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index operation %s failed for document %s: %v", e.Op, e.DocID, e.Err)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}
