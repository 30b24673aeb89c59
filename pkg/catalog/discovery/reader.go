package discovery

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/content-catalog/pkg/catalog"
	"github.com/viccon/sturdyc"
)

const (
	defaultTTL           = 30 * time.Second
	localCacheCapacity   = 10000
	localCacheShards     = 64
	localEvictPercentage = 10
)

// ContentReader resolves ids into hydrated DTOs. catalog.Service satisfies
// it, so discovery rides the CMS read path without owning a store gateway.
type ContentReader interface {
	GetContent(ctx context.Context, id uuid.UUID) (*catalog.ContentDetail, error)
	GetMedia(ctx context.Context, contentID uuid.UUID) (*catalog.Media, error)
}

// CachedReader decorates a ContentReader with the discovery cache layer:
// disc:-prefixed keys in the shared cache plus an in-process sturdyc client
// with a short TTL. Discovery traffic is hot and bursty; the local layer
// soaks up stampedes on trending ids while the disc: keys keep discovery
// entries apart from the CMS item keys.
type CachedReader struct {
	inner ContentReader
	cache catalog.Cache
	ttl   time.Duration
	local *sturdyc.Client[*catalog.ContentDetail]
}

// ReaderOption configures a CachedReader.
type ReaderOption func(*CachedReader)

// WithTTL sets the TTL used for both cache layers.
func WithTTL(ttl time.Duration) ReaderOption {
	return func(r *CachedReader) {
		r.ttl = ttl
	}
}

// NewCachedReader builds the decorator around an inner reader and the shared
// cache client.
func NewCachedReader(inner ContentReader, cache catalog.Cache, opts ...ReaderOption) *CachedReader {
	r := &CachedReader{
		inner: inner,
		cache: cache,
		ttl:   defaultTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.local = sturdyc.New[*catalog.ContentDetail](
		localCacheCapacity, localCacheShards, r.ttl, localEvictPercentage)
	return r
}

// GetContent resolves id through local layer, shared disc: key, then the
// inner reader. Absent ids are never cached: a dangling index reference must
// resolve again as soon as the id reappears.
func (r *CachedReader) GetContent(ctx context.Context, id uuid.UUID) (*catalog.ContentDetail, error) {
	key := catalog.DiscoveryContentKey(id)
	detail, err := r.local.GetOrFetch(ctx, key, func(ctx context.Context) (*catalog.ContentDetail, error) {
		var cached catalog.ContentDetail
		hit, err := r.cache.Get(ctx, key, &cached)
		if err == nil && hit {
			return &cached, nil
		}

		obj, err := r.inner.GetContent(ctx, id)
		if err != nil {
			if errors.Is(err, catalog.ErrContentNotFound) {
				return nil, sturdyc.ErrNotFound
			}
			return nil, err
		}
		// Shared-cache failures only cost the next process a re-read.
		_ = r.cache.Set(ctx, key, obj, r.ttl)
		return obj, nil
	})
	if err != nil {
		if errors.Is(err, sturdyc.ErrNotFound) || errors.Is(err, sturdyc.ErrMissingRecord) {
			return nil, catalog.ErrContentNotFound
		}
		return nil, err
	}
	return detail, nil
}

// GetMedia resolves the media DTO through the shared disc:media:{id} key.
func (r *CachedReader) GetMedia(ctx context.Context, contentID uuid.UUID) (*catalog.Media, error) {
	key := catalog.DiscoveryMediaKey(contentID)

	var cached catalog.Media
	hit, err := r.cache.Get(ctx, key, &cached)
	if err == nil && hit {
		return &cached, nil
	}

	media, err := r.inner.GetMedia(ctx, contentID)
	if err != nil {
		return nil, err
	}
	_ = r.cache.Set(ctx, key, media, r.ttl)
	return media, nil
}
