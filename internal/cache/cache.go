// Package cache provides a two-level read-through cache for retrieved
// message payloads: an in-process LRU (L1) in front of an optional
// Redis layer (L2), so repeated reads of hot ids skip the durable
// backend and, for multi-process deployments, skip a network round
// trip too.
package cache

import (
	"context"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"github.com/msgstore/msgstore/internal/core"
)

// Entry is a cached retrieval: the wire header plus payload bytes, as
// ingest.Writer.Get would have rebuilt them for an inline response.
type Entry struct {
	Header string
	Body   []byte
}

// Cache fronts message reads with an LRU layer and, if configured, a
// shared Redis layer. Streaming (file-backed) retrievals are never
// cached — only small inline payloads belong here.
type Cache struct {
	l1     *lru.Cache[core.Id, Entry]
	l2     *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// Config selects the cache's capacity and optional Redis layer.
type Config struct {
	L1Capacity int
	TTL        time.Duration
	Redis      *redis.Client
}

// New builds a Cache. Redis may be nil, in which case only the L1 LRU
// is used.
func New(cfg Config, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	capacity := cfg.L1Capacity
	if capacity <= 0 {
		capacity = 1024
	}
	l1, err := lru.New[core.Id, Entry](capacity)
	if err != nil {
		return nil, err
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{l1: l1, l2: cfg.Redis, ttl: ttl, logger: logger}, nil
}

func redisKey(id core.Id) string {
	return "msgstore:cache:" + id.String()
}

// Get returns a cached entry for id, checking L1 then L2.
func (c *Cache) Get(ctx context.Context, id core.Id) (Entry, bool) {
	if entry, ok := c.l1.Get(id); ok {
		return entry, true
	}
	if c.l2 == nil {
		return Entry{}, false
	}
	raw, err := c.l2.HGetAll(ctx, redisKey(id)).Result()
	if err != nil || len(raw) == 0 {
		return Entry{}, false
	}
	entry := Entry{Header: raw["header"], Body: []byte(raw["body"])}
	c.l1.Add(id, entry)
	return entry, true
}

// Put stores an entry in both cache levels.
func (c *Cache) Put(ctx context.Context, id core.Id, entry Entry) {
	c.l1.Add(id, entry)
	if c.l2 == nil {
		return
	}
	key := redisKey(id)
	pipe := c.l2.TxPipeline()
	pipe.HSet(ctx, key, "header", entry.Header, "body", entry.Body)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("cache: failed to populate L2", "id", id.String(), "error", err)
	}
}

// Invalidate removes id from both cache levels, called whenever the
// engine evicts or deletes a message so stale payloads are never served.
func (c *Cache) Invalidate(ctx context.Context, id core.Id) {
	c.l1.Remove(id)
	if c.l2 == nil {
		return
	}
	if err := c.l2.Del(ctx, redisKey(id)).Err(); err != nil {
		c.logger.Warn("cache: failed to invalidate L2", "id", id.String(), "error", err)
	}
}

// Len reports the L1 entry count, for diagnostics.
func (c *Cache) Len() int {
	return c.l1.Len()
}
