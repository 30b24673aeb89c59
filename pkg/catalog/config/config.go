// Package config loads server settings from the environment and assembles
// the catalog components: store gateway, cache, search index, blob store,
// index-sync pipeline, catalog service and discovery service. URL schemes
// pick implementations, so a bare environment runs everything in memory.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/content-catalog/pkg/catalog"
	blobfs "github.com/tendant/content-catalog/pkg/catalog/blob/fs"
	blobmemory "github.com/tendant/content-catalog/pkg/catalog/blob/memory"
	blobs3 "github.com/tendant/content-catalog/pkg/catalog/blob/s3"
	cachememory "github.com/tendant/content-catalog/pkg/catalog/cache/memory"
	cacheredis "github.com/tendant/content-catalog/pkg/catalog/cache/redis"
	"github.com/tendant/content-catalog/pkg/catalog/discovery"
	"github.com/tendant/content-catalog/pkg/catalog/indexer"
	repomemory "github.com/tendant/content-catalog/pkg/catalog/repo/memory"
	repopg "github.com/tendant/content-catalog/pkg/catalog/repo/postgres"
	searchmemory "github.com/tendant/content-catalog/pkg/catalog/search/memory"
	searchos "github.com/tendant/content-catalog/pkg/catalog/search/opensearch"
)

// Config is the environment-driven server configuration.
//
//	DATABASE_URL  "memory" or postgres://...
//	REDIS_URL     "memory" or redis://...
//	SEARCH_URL    "memory" or http(s)://opensearch:9200
//	STORAGE_URL   memory:// | file:///path | s3://bucket?region=...
type Config struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	DatabaseURL string `env:"DATABASE_URL" env-default:"memory"`

	RedisURL string        `env:"REDIS_URL" env-default:"memory"`
	CacheTTL time.Duration `env:"CACHE_TTL" env-default:"2m"`

	SearchURL      string `env:"SEARCH_URL" env-default:"memory"`
	SearchIndex    string `env:"SEARCH_INDEX" env-default:"contents"`
	SearchUsername string `env:"SEARCH_USERNAME"`
	SearchPassword string `env:"SEARCH_PASSWORD"`

	StorageURL string `env:"STORAGE_URL" env-default:"memory://"`

	DiscoveryCacheTTL time.Duration `env:"DISCOVERY_CACHE_TTL" env-default:"30s"`

	SyncWorkers   int `env:"SYNC_WORKERS" env-default:"2"`
	SyncQueueSize int `env:"SYNC_QUEUE_SIZE" env-default:"1024"`
	SyncAttempts  int `env:"SYNC_ATTEMPTS" env-default:"3"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.DatabaseURL != "memory" &&
		!strings.HasPrefix(c.DatabaseURL, "postgres://") &&
		!strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		return fmt.Errorf("unsupported DATABASE_URL %q (use 'memory' or postgres://...)", c.DatabaseURL)
	}
	if c.RedisURL != "memory" && !strings.HasPrefix(c.RedisURL, "redis://") &&
		!strings.HasPrefix(c.RedisURL, "rediss://") {
		return fmt.Errorf("unsupported REDIS_URL %q (use 'memory' or redis://...)", c.RedisURL)
	}
	if c.SyncQueueSize <= 0 {
		return errors.New("sync queue size must be positive")
	}
	if c.SyncWorkers <= 0 {
		return errors.New("sync worker count must be positive")
	}
	return nil
}

// Components holds everything the composition root needs.
type Components struct {
	Catalog   catalog.Service
	Discovery *discovery.Service
	Pipeline  *indexer.Pipeline
	Cache     catalog.Cache
	Search    catalog.SearchIndex

	closers []func()
}

// Close releases pools and clients in reverse construction order.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// Build wires the components according to the configuration. In postgres
// mode the index-sync workers get their own connection pool: jobs must never
// share a session with the request path.
func (c *Config) Build(ctx context.Context) (*Components, error) {
	comps := &Components{}

	requestRepo, workerRepo, err := c.buildRepositories(ctx, comps)
	if err != nil {
		comps.Close()
		return nil, err
	}

	cache, err := c.buildCache(ctx, comps)
	if err != nil {
		comps.Close()
		return nil, err
	}
	comps.Cache = cache

	search, err := c.buildSearch(ctx)
	if err != nil {
		comps.Close()
		return nil, err
	}
	comps.Search = search

	blobs, err := c.buildBlobStore(ctx)
	if err != nil {
		comps.Close()
		return nil, err
	}

	pipeline, err := indexer.New(workerRepo, search,
		indexer.WithQueueSize(c.SyncQueueSize),
		indexer.WithWorkers(c.SyncWorkers),
		indexer.WithAttempts(c.SyncAttempts),
	)
	if err != nil {
		comps.Close()
		return nil, err
	}
	comps.Pipeline = pipeline

	svc, err := catalog.New(
		catalog.WithRepository(requestRepo),
		catalog.WithCache(cache),
		catalog.WithQueue(pipeline),
		catalog.WithBlobStore(blobs),
		catalog.WithCacheTTL(c.CacheTTL),
	)
	if err != nil {
		comps.Close()
		return nil, err
	}
	comps.Catalog = svc

	reader := discovery.NewCachedReader(svc, cache, discovery.WithTTL(c.DiscoveryCacheTTL))
	disc, err := discovery.NewService(search, reader)
	if err != nil {
		comps.Close()
		return nil, err
	}
	comps.Discovery = disc

	return comps, nil
}

func (c *Config) buildRepositories(ctx context.Context, comps *Components) (catalog.Repository, catalog.Repository, error) {
	if c.DatabaseURL == "memory" {
		repo := repomemory.New()
		return repo, repo, nil
	}

	requestPool, err := pgxpool.New(ctx, c.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	comps.closers = append(comps.closers, requestPool.Close)

	workerPool, err := pgxpool.New(ctx, c.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres (sync workers): %w", err)
	}
	comps.closers = append(comps.closers, workerPool.Close)

	return repopg.NewWithPool(requestPool), repopg.NewWithPool(workerPool), nil
}

func (c *Config) buildCache(ctx context.Context, comps *Components) (catalog.Cache, error) {
	if c.RedisURL == "memory" {
		return cachememory.New(), nil
	}
	cache, err := cacheredis.New(ctx, c.RedisURL)
	if err != nil {
		return nil, err
	}
	comps.closers = append(comps.closers, func() { cache.Close() })
	return cache, nil
}

func (c *Config) buildSearch(ctx context.Context) (catalog.SearchIndex, error) {
	if c.SearchURL == "memory" {
		return searchmemory.New(), nil
	}
	idx, err := searchos.New(ctx, searchos.Config{
		Addresses: []string{c.SearchURL},
		Username:  c.SearchUsername,
		Password:  c.SearchPassword,
		IndexName: c.SearchIndex,
	})
	if err != nil {
		return nil, err
	}
	if err := idx.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (c *Config) buildBlobStore(ctx context.Context) (catalog.BlobStore, error) {
	u, err := url.Parse(c.StorageURL)
	if err != nil {
		return nil, fmt.Errorf("parse STORAGE_URL: %w", err)
	}
	switch u.Scheme {
	case "", "memory":
		return blobmemory.New(), nil
	case "file":
		return blobfs.New(u.Path)
	case "s3":
		q := u.Query()
		return blobs3.New(ctx, blobs3.Config{
			Bucket:          u.Host,
			Region:          q.Get("region"),
			Endpoint:        q.Get("endpoint"),
			AccessKeyID:     q.Get("access_key_id"),
			SecretAccessKey: q.Get("secret_access_key"),
			UsePathStyle:    q.Get("path_style") == "true",
		})
	default:
		return nil, fmt.Errorf("unsupported STORAGE_URL scheme %q", u.Scheme)
	}
}
