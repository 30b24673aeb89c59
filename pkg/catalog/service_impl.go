package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultCacheTTL = 2 * time.Minute

// service implements the Service interface
type service struct {
	repository Repository
	cache      Cache
	queue      JobQueue
	blobs      BlobStore
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the primary store gateway for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithCache sets the item cache for the service
func WithCache(cache Cache) Option {
	return func(s *service) {
		s.cache = cache
	}
}

// WithQueue sets the index-sync job queue
func WithQueue(queue JobQueue) Option {
	return func(s *service) {
		s.queue = queue
	}
}

// WithBlobStore sets the media file store
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobs = store
	}
}

// WithCacheTTL overrides the TTL applied to item cache entries
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *service) {
		s.cacheTTL = ttl
	}
}

// WithLogger sets the logger used for absorbed cache/queue failures
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options. A repository
// and a cache are required; queue and blob store are optional (a missing
// queue simply means no index sync happens).
func New(options ...Option) (Service, error) {
	s := &service{
		cacheTTL: defaultCacheTTL,
		logger:   slog.Default(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.cache == nil {
		return nil, fmt.Errorf("cache is required")
	}

	return s, nil
}

// Content operations

func (s *service) CreateContent(ctx context.Context, req CreateContentRequest) (*ContentDetail, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	status := req.Status
	if status == "" {
		status = ContentStatusDraft
	}
	content := &Content{
		ID:              uuid.New(),
		Title:           req.Title,
		Description:     req.Description,
		Language:        req.Language,
		Duration:        req.Duration,
		PublicationDate: req.PublicationDate,
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repository.CreateContent(ctx, content); err != nil {
		return nil, &ContentError{ContentID: content.ID, Op: "create", Err: err}
	}

	names, err := s.linkCategories(ctx, content.ID, req.Categories)
	if err != nil {
		return nil, &ContentError{ContentID: content.ID, Op: "create", Err: err}
	}
	content.Categories = names

	// Media is absent on creation unless supplied through SetMedia; read it
	// back anyway so the DTO always mirrors the store.
	media, err := s.mediaOrNil(ctx, content.ID)
	if err != nil {
		return nil, &ContentError{ContentID: content.ID, Op: "create", Err: err}
	}

	dto := buildDetail(content, media)
	s.refreshItemCache(ctx, dto)
	s.enqueue(ctx, Job{Kind: JobUpsert, ContentID: content.ID})

	return dto, nil
}

func (s *service) GetContent(ctx context.Context, id uuid.UUID) (*ContentDetail, error) {
	key := ContentKey(id)

	var cached ContentDetail
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		// Cache trouble degrades to store-only behaviour.
		s.logger.Warn("cache read failed, falling through to store", "key", key, "error", err)
	}
	if hit {
		return &cached, nil
	}

	content, err := s.repository.GetContent(ctx, id)
	if err != nil {
		// Negative results are never cached: repeated misses re-hit the store.
		return nil, err
	}
	media, err := s.mediaOrNil(ctx, id)
	if err != nil {
		return nil, err
	}

	dto := buildDetail(content, media)
	s.refreshItemCache(ctx, dto)
	return dto, nil
}

func (s *service) UpdateContent(ctx context.Context, id uuid.UUID, req UpdateContentRequest) (*ContentDetail, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	content, err := s.repository.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		content.Title = *req.Title
	}
	if req.Description != nil {
		content.Description = *req.Description
	}
	if req.Language != nil {
		content.Language = *req.Language
	}
	if req.Duration != nil {
		content.Duration = *req.Duration
	}
	if req.PublicationDate.Set {
		// Provided-and-null clears the stored date.
		content.PublicationDate = req.PublicationDate.Value
	}
	if req.Status != nil {
		content.Status = *req.Status
	}
	content.UpdatedAt = time.Now().UTC()

	if err := s.repository.UpdateContent(ctx, content); err != nil {
		return nil, &ContentError{ContentID: id, Op: "update", Err: err}
	}

	if req.Categories != nil {
		// Explicitly provided, possibly empty: full replace of the join set.
		names, err := s.linkCategories(ctx, id, *req.Categories)
		if err != nil {
			return nil, &ContentError{ContentID: id, Op: "update", Err: err}
		}
		content.Categories = names
	}

	media, err := s.mediaOrNil(ctx, id)
	if err != nil {
		return nil, &ContentError{ContentID: id, Op: "update", Err: err}
	}

	dto := buildDetail(content, media)
	s.cacheSet(ctx, ContentKey(id), dto)
	if media != nil {
		s.cacheSet(ctx, MediaKey(id), media)
	} else {
		// The key must not serve stale data whether or not media ever existed.
		s.cacheDelete(ctx, MediaKey(id))
	}
	s.enqueue(ctx, Job{Kind: JobUpsert, ContentID: id})

	return dto, nil
}

func (s *service) DeleteContent(ctx context.Context, id uuid.UUID) (bool, error) {
	removed, err := s.repository.DeleteContent(ctx, id)
	if err != nil {
		return false, &ContentError{ContentID: id, Op: "delete", Err: err}
	}
	if !removed {
		return false, nil
	}

	s.cacheDelete(ctx, ContentKey(id))
	s.cacheDelete(ctx, MediaKey(id))
	s.enqueue(ctx, Job{Kind: JobDelete, ContentID: id})

	return true, nil
}

func (s *service) ListContent(ctx context.Context, filters ListContentFilters) ([]*ContentDetail, error) {
	if filters.Limit <= 0 {
		filters.Limit = 50
	}

	contents, err := s.repository.ListContent(ctx, filters)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(contents))
	for _, c := range contents {
		ids = append(ids, c.ID)
	}
	mediaByContent, err := s.repository.GetMediaByContentIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	details := make([]*ContentDetail, 0, len(contents))
	for _, c := range contents {
		details = append(details, buildDetail(c, mediaByContent[c.ID]))
	}
	return details, nil
}

// Media operations

func (s *service) SetMedia(ctx context.Context, contentID uuid.UUID, req SetMediaRequest) (*Media, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repository.GetContent(ctx, contentID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	provider := req.Provider
	if provider == "" {
		provider = MediaProviderTeam
	}
	media := &Media{
		ID:          uuid.New(),
		ContentID:   contentID,
		MediaType:   req.MediaType,
		Source:      req.Source,
		Provider:    provider,
		MediaFile:   req.MediaFile,
		ExternalURL: req.ExternalURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	// SetMedia upserts on content_id; an existing record keeps its id and
	// created_at, reflected back into media.
	if err := s.repository.SetMedia(ctx, media); err != nil {
		return nil, &ContentError{ContentID: contentID, Op: "set media", Err: err}
	}

	s.cacheSet(ctx, MediaKey(contentID), media)
	s.refreshContentKey(ctx, contentID)
	s.enqueue(ctx, Job{Kind: JobUpsert, ContentID: contentID})

	return media, nil
}

func (s *service) GetMedia(ctx context.Context, contentID uuid.UUID) (*Media, error) {
	key := MediaKey(contentID)

	var cached Media
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("cache read failed, falling through to store", "key", key, "error", err)
	}
	if hit {
		return &cached, nil
	}

	media, err := s.repository.GetMediaByContentID(ctx, contentID)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, media)
	return media, nil
}

func (s *service) DeleteMedia(ctx context.Context, contentID uuid.UUID) (bool, error) {
	removed, err := s.repository.DeleteMediaByContentID(ctx, contentID)
	if err != nil {
		return false, &ContentError{ContentID: contentID, Op: "delete media", Err: err}
	}
	if !removed {
		return false, nil
	}

	s.cacheDelete(ctx, MediaKey(contentID))
	s.refreshContentKey(ctx, contentID)
	s.enqueue(ctx, Job{Kind: JobUpsert, ContentID: contentID})

	return true, nil
}

func (s *service) UploadMediaFile(ctx context.Context, contentID uuid.UUID, filename string, mediaType MediaType, r io.Reader) (*Media, error) {
	if s.blobs == nil {
		return nil, fmt.Errorf("no blob store configured")
	}
	if _, err := s.repository.GetContent(ctx, contentID); err != nil {
		return nil, err
	}

	key := path.Join("media", contentID.String(), path.Base(filename))
	if err := s.blobs.Put(ctx, key, r); err != nil {
		return nil, &ContentError{ContentID: contentID, Op: "upload media", Err: err}
	}

	return s.SetMedia(ctx, contentID, SetMediaRequest{
		MediaType: mediaType,
		Source:    MediaSourceUpload,
		Provider:  MediaProviderTeam,
		MediaFile: key,
	})
}

// internal helpers

// linkCategories normalizes names, ensures they exist (creating missing
// ones) and replaces the content's join set. Returns the normalized names.
func (s *service) linkCategories(ctx context.Context, contentID uuid.UUID, names []string) ([]string, error) {
	normalized := normalizeCategoryNames(names)

	cats, err := s.repository.EnsureCategories(ctx, normalized)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(cats))
	linked := make([]string, 0, len(cats))
	for _, c := range cats {
		ids = append(ids, c.ID)
		linked = append(linked, c.Name)
	}
	if err := s.repository.ReplaceContentCategories(ctx, contentID, ids); err != nil {
		return nil, err
	}
	return linked, nil
}

func normalizeCategoryNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func (s *service) mediaOrNil(ctx context.Context, contentID uuid.UUID) (*Media, error) {
	media, err := s.repository.GetMediaByContentID(ctx, contentID)
	if errors.Is(err, ErrMediaNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return media, nil
}

// refreshItemCache writes both item keys for a freshly built DTO.
func (s *service) refreshItemCache(ctx context.Context, dto *ContentDetail) {
	s.cacheSet(ctx, ContentKey(dto.ID), dto)
	if dto.Media != nil {
		s.cacheSet(ctx, MediaKey(dto.ID), dto.Media)
	}
}

// refreshContentKey rebuilds the content:{id} DTO from the store after a
// media-only mutation so the embedded media never goes stale.
func (s *service) refreshContentKey(ctx context.Context, contentID uuid.UUID) {
	content, err := s.repository.GetContent(ctx, contentID)
	if errors.Is(err, ErrContentNotFound) {
		s.cacheDelete(ctx, ContentKey(contentID))
		return
	}
	if err != nil {
		s.logger.Warn("content cache refresh skipped", "content_id", contentID, "error", err)
		return
	}
	media, err := s.mediaOrNil(ctx, contentID)
	if err != nil {
		s.logger.Warn("content cache refresh skipped", "content_id", contentID, "error", err)
		return
	}
	s.cacheSet(ctx, ContentKey(contentID), buildDetail(content, media))
}

// cacheSet absorbs cache failures: the store commit is the point of no
// return for a mutation, so a flaky cache only costs a future read-through.
func (s *service) cacheSet(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

func (s *service) cacheDelete(ctx context.Context, key string) {
	if _, err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("cache delete failed", "key", key, "error", err)
	}
}

// enqueue hands an index-sync job to the queue without waiting. A full or
// unavailable queue never fails a mutation that already committed.
func (s *service) enqueue(ctx context.Context, job Job) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.logger.Warn("index sync job dropped", "kind", job.Kind, "content_id", job.ContentID, "error", err)
	}
}

func buildDetail(content *Content, media *Media) *ContentDetail {
	categories := content.Categories
	if categories == nil {
		categories = []string{}
	}
	return &ContentDetail{
		ID:              content.ID,
		Title:           content.Title,
		Description:     content.Description,
		Language:        content.Language,
		Duration:        content.Duration,
		PublicationDate: content.PublicationDate,
		Status:          content.Status,
		Categories:      categories,
		CreatedAt:       content.CreatedAt,
		UpdatedAt:       content.UpdatedAt,
		Media:           media,
	}
}
