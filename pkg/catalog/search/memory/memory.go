package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/content-catalog/pkg/catalog"
)

// Index implements catalog.SearchIndex in memory. Ranking is the same
// deterministic ordering the store uses (publication_date descending, nulls
// last, then created_at descending) so tests can assert exact id lists.
type Index struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]catalog.SearchDocument
}

// New creates a new in-memory search index
func New() *Index {
	return &Index{docs: make(map[uuid.UUID]catalog.SearchDocument)}
}

func (i *Index) Upsert(ctx context.Context, doc catalog.SearchDocument) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.docs[doc.ID] = doc
	return nil
}

// Delete removes the document. An already-absent document is success.
func (i *Index) Delete(ctx context.Context, id uuid.UUID) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.docs, id)
	return nil
}

func (i *Index) Search(ctx context.Context, q catalog.SearchQuery) (int, []uuid.UUID, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var matched []catalog.SearchDocument
	for _, doc := range i.docs {
		if matches(doc, q) {
			matched = append(matched, doc)
		}
	}

	sort.Slice(matched, func(a, b int) bool {
		pa, pb := matched[a].PublicationDate, matched[b].PublicationDate
		switch {
		case pa == nil && pb != nil:
			return false
		case pa != nil && pb == nil:
			return true
		case pa != nil && pb != nil && !pa.Equal(*pb):
			return pa.After(*pb)
		}
		return matched[a].CreatedAt.After(matched[b].CreatedAt)
	})

	total := len(matched)
	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return total, nil, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}

	ids := make([]uuid.UUID, 0, len(matched))
	for _, doc := range matched {
		ids = append(ids, doc.ID)
	}
	return total, ids, nil
}

func matches(doc catalog.SearchDocument, q catalog.SearchQuery) bool {
	if term := strings.ToLower(q.Query); term != "" {
		if !strings.Contains(strings.ToLower(doc.Title), term) &&
			!strings.Contains(strings.ToLower(doc.Description), term) {
			return false
		}
	}
	if q.MediaType != "" && doc.MediaType != q.MediaType {
		return false
	}
	if q.Language != "" && doc.Language != q.Language {
		return false
	}
	if q.Status != "" && doc.Status != q.Status {
		return false
	}
	if q.Category != "" {
		found := false
		for _, c := range doc.Categories {
			if c == q.Category {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.DateFrom != nil && (doc.PublicationDate == nil || doc.PublicationDate.Before(*q.DateFrom)) {
		return false
	}
	if q.DateTo != nil && (doc.PublicationDate == nil || doc.PublicationDate.After(*q.DateTo)) {
		return false
	}
	return true
}

// Document returns the stored document for id. Test helper.
func (i *Index) Document(id uuid.UUID) (catalog.SearchDocument, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	doc, ok := i.docs[id]
	return doc, ok
}

// Len reports the number of stored documents. Test helper.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.docs)
}
