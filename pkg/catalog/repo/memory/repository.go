package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/content-catalog/pkg/catalog"
)

// Repository implements catalog.Repository using in-memory storage. It is
// used by tests and by memory mode in the server config.
type Repository struct {
	mu              sync.RWMutex
	contents        map[uuid.UUID]*catalog.Content
	mediaByContent  map[uuid.UUID]*catalog.Media
	categories      map[uuid.UUID]*catalog.Category
	categoryByName  map[string]uuid.UUID
	linksByContent  map[uuid.UUID][]uuid.UUID // content_id -> []category_id
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		contents:       make(map[uuid.UUID]*catalog.Content),
		mediaByContent: make(map[uuid.UUID]*catalog.Media),
		categories:     make(map[uuid.UUID]*catalog.Category),
		categoryByName: make(map[string]uuid.UUID),
		linksByContent: make(map[uuid.UUID][]uuid.UUID),
	}
}

// Content operations

func (r *Repository) CreateContent(ctx context.Context, content *catalog.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy to avoid external modifications
	contentCopy := *content
	contentCopy.Categories = nil
	r.contents[content.ID] = &contentCopy

	return nil
}

func (r *Repository) GetContent(ctx context.Context, id uuid.UUID) (*catalog.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	content, exists := r.contents[id]
	if !exists {
		return nil, catalog.ErrContentNotFound
	}

	contentCopy := *content
	contentCopy.Categories = r.categoryNamesLocked(id)
	return &contentCopy, nil
}

func (r *Repository) UpdateContent(ctx context.Context, content *catalog.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contents[content.ID]; !exists {
		return catalog.ErrContentNotFound
	}

	contentCopy := *content
	contentCopy.Categories = nil
	r.contents[content.ID] = &contentCopy

	return nil
}

func (r *Repository) DeleteContent(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contents[id]; !exists {
		return false, nil
	}

	// Cascade: media and category links go with the content row.
	delete(r.contents, id)
	delete(r.mediaByContent, id)
	delete(r.linksByContent, id)
	return true, nil
}

func (r *Repository) ListContent(ctx context.Context, filters catalog.ListContentFilters) ([]*catalog.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*catalog.Content
	for _, content := range r.contents {
		if !r.matchesLocked(content, filters) {
			continue
		}
		contentCopy := *content
		contentCopy.Categories = r.categoryNamesLocked(content.ID)
		result = append(result, &contentCopy)
	}

	// publication_date descending with nulls last, then created_at descending
	sort.Slice(result, func(i, j int) bool {
		pi, pj := result[i].PublicationDate, result[j].PublicationDate
		switch {
		case pi == nil && pj != nil:
			return false
		case pi != nil && pj == nil:
			return true
		case pi != nil && pj != nil && !pi.Equal(*pj):
			return pi.After(*pj)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(result) {
			return nil, nil
		}
		result = result[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(result) {
		result = result[:filters.Limit]
	}
	return result, nil
}

func (r *Repository) matchesLocked(content *catalog.Content, filters catalog.ListContentFilters) bool {
	if q := strings.ToLower(filters.Query); q != "" {
		if !strings.Contains(strings.ToLower(content.Title), q) &&
			!strings.Contains(strings.ToLower(content.Description), q) {
			return false
		}
	}
	if filters.Language != "" && content.Language != filters.Language {
		return false
	}
	if filters.Status != "" && content.Status != filters.Status {
		return false
	}
	if filters.Category != "" {
		found := false
		for _, name := range r.categoryNamesLocked(content.ID) {
			if name == filters.Category {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Category operations

func (r *Repository) EnsureCategories(ctx context.Context, names []string) ([]*catalog.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*catalog.Category, 0, len(names))
	for _, name := range names {
		id, exists := r.categoryByName[name]
		if !exists {
			id = uuid.New()
			r.categories[id] = &catalog.Category{ID: id, Name: name}
			r.categoryByName[name] = id
		}
		categoryCopy := *r.categories[id]
		result = append(result, &categoryCopy)
	}
	return result, nil
}

func (r *Repository) ReplaceContentCategories(ctx context.Context, contentID uuid.UUID, categoryIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contents[contentID]; !exists {
		return catalog.ErrContentNotFound
	}

	// Full replace, deduplicated, preserving given order.
	seen := make(map[uuid.UUID]struct{}, len(categoryIDs))
	links := make([]uuid.UUID, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		links = append(links, id)
	}
	r.linksByContent[contentID] = links
	return nil
}

func (r *Repository) ListContentCategories(ctx context.Context, contentID uuid.UUID) ([]*catalog.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*catalog.Category
	for _, id := range r.linksByContent[contentID] {
		if c, ok := r.categories[id]; ok {
			categoryCopy := *c
			result = append(result, &categoryCopy)
		}
	}
	return result, nil
}

func (r *Repository) categoryNamesLocked(contentID uuid.UUID) []string {
	names := make([]string, 0, len(r.linksByContent[contentID]))
	for _, id := range r.linksByContent[contentID] {
		if c, ok := r.categories[id]; ok {
			names = append(names, c.Name)
		}
	}
	return names
}

// CategoryCount reports the number of known categories. Test helper for
// ensure-or-create idempotence checks.
func (r *Repository) CategoryCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.categories)
}

// Media operations

func (r *Repository) SetMedia(ctx context.Context, media *catalog.Media) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contents[media.ContentID]; !exists {
		return catalog.ErrContentNotFound
	}

	// Upsert on content_id: an existing record keeps its identity.
	if existing, ok := r.mediaByContent[media.ContentID]; ok {
		media.ID = existing.ID
		media.CreatedAt = existing.CreatedAt
	}
	mediaCopy := *media
	r.mediaByContent[media.ContentID] = &mediaCopy
	return nil
}

func (r *Repository) GetMediaByContentID(ctx context.Context, contentID uuid.UUID) (*catalog.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	media, exists := r.mediaByContent[contentID]
	if !exists {
		return nil, catalog.ErrMediaNotFound
	}
	mediaCopy := *media
	return &mediaCopy, nil
}

func (r *Repository) GetMediaByContentIDs(ctx context.Context, contentIDs []uuid.UUID) (map[uuid.UUID]*catalog.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[uuid.UUID]*catalog.Media, len(contentIDs))
	for _, id := range contentIDs {
		if media, ok := r.mediaByContent[id]; ok {
			mediaCopy := *media
			result[id] = &mediaCopy
		}
	}
	return result, nil
}

func (r *Repository) DeleteMediaByContentID(ctx context.Context, contentID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.mediaByContent[contentID]; !exists {
		return false, nil
	}
	delete(r.mediaByContent, contentID)
	return true, nil
}
