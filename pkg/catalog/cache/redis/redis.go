package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultOpTimeout = 500 * time.Millisecond
	scanBatchSize    = 200
)

// Cache implements catalog.Cache on a shared Redis client. The client
// multiplexes all operations over its internal pool; one Cache instance is
// meant to live for the whole process.
//
// Every operation runs under its own short timeout, separate from whatever
// deadline the request carries. A slow cache degrades to a miss (read) or a
// no-op (write) at the orchestrator instead of stalling the request on the
// store's budget.
type Cache struct {
	client    *redis.Client
	opTimeout time.Duration
}

// Option configures the Cache.
type Option func(*Cache)

// WithOpTimeout overrides the per-operation timeout.
func WithOpTimeout(d time.Duration) Option {
	return func(c *Cache) {
		c.opTimeout = d
	}
}

// New connects to Redis and pings it once. An unreachable backing store at
// startup is a configuration error, so this fails fast rather than letting
// the process limp along cacheless.
func New(ctx context.Context, url string, opts ...Option) (*Cache, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)

	c := &Cache{client: client, opTimeout: defaultOpTimeout}
	for _, opt := range opts {
		opt(c)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis not reachable at %s: %w", url, err)
	}
	return c, nil
}

// NewFromClient wraps an existing client (tests, shared composition roots).
func NewFromClient(client *redis.Client, opts ...Option) *Cache {
	c := &Cache{client: client, opTimeout: defaultOpTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opTimeout)
}

func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) (bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	n, err := c.client.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteByPrefix removes matching keys through cursor-based SCAN so Redis is
// never blocked on a full keyspace sweep. Prefix deletes are rare
// (administrative invalidation), so a longer budget than the per-op timeout
// is acceptable here.
func (c *Cache) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	removed := 0
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", scanBatchSize).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}
