// Package discovery is the read-model side of the catalog: it queries the
// search service for ranked ids and re-hydrates them through the CMS read
// path. The search index lags the store by design, so hydration is also the
// tombstone filter: ids whose rows are gone simply vanish from results.
package discovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tendant/content-catalog/pkg/catalog"
	"golang.org/x/sync/errgroup"
)

// Service hydrates ranked search results into full DTOs.
type Service struct {
	search catalog.SearchIndex
	reader ContentReader
}

// NewService builds a discovery service. The reader is normally a
// CachedReader wrapped around the catalog service.
func NewService(search catalog.SearchIndex, reader ContentReader) (*Service, error) {
	if search == nil {
		return nil, fmt.Errorf("search index is required")
	}
	if reader == nil {
		return nil, fmt.Errorf("content reader is required")
	}
	return &Service{search: search, reader: reader}, nil
}

// Browse runs the query against the search service and resolves each ranked
// id concurrently, preserving rank order. Ids that no longer resolve are
// dropped, never replaced with placeholders, so the returned slice may be
// shorter than the hit list. The returned total is the index's count and may
// overcount by the number of dropped tombstones.
func (s *Service) Browse(ctx context.Context, q catalog.SearchQuery) (int, []*catalog.ContentDetail, error) {
	total, ids, err := s.search.Search(ctx, q)
	if err != nil {
		return 0, nil, err
	}

	resolved := make([]*catalog.ContentDetail, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			detail, err := s.reader.GetContent(gctx, id)
			if errors.Is(err, catalog.ErrContentNotFound) {
				// Dangling index reference: the row is gone but its delete
				// job has not reached the index yet.
				return nil
			}
			if err != nil {
				return err
			}
			resolved[i] = detail
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, nil, err
	}

	out := make([]*catalog.ContentDetail, 0, len(resolved))
	for _, detail := range resolved {
		if detail != nil {
			out = append(out, detail)
		}
	}
	return total, out, nil
}

// ContentDetailByID resolves a single id through the discovery cache layer.
func (s *Service) ContentDetailByID(ctx context.Context, id uuid.UUID) (*catalog.ContentDetail, error) {
	return s.reader.GetContent(ctx, id)
}
