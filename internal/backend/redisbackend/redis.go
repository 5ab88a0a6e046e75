// Package redisbackend implements the durable-backend contract (C4) on
// top of Redis, storing payloads and byte sizes as two hashes keyed by id
// string, adapted from the teacher's infrastructure/cache Redis client
// setup (connect-time Ping, pool sizing, structured logging).
package redisbackend

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/msgstore/msgstore/internal/backend"
	"github.com/msgstore/msgstore/internal/core"
)

const (
	msgsHashKey  = "msgstore:msgs"
	sizesHashKey = "msgstore:sizes"
)

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// Backend is a Redis-backed implementation of backend.Backend.
type Backend struct {
	client *redis.Client
	logger *slog.Logger
}

// New connects to Redis at cfg.Addr and verifies the connection with Ping.
func New(cfg Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, &backend.Error{Kind: backend.KindCouldNotAdd, Backend: "redis", Cause: fmt.Errorf("connect: %w", err)}
	}
	logger.Info("redis backend connected", "addr", cfg.Addr, "db", cfg.DB)
	return &Backend{client: client, logger: logger}, nil
}

// NewWithClient wraps an existing redis.Client, letting tests inject a
// miniredis-backed client without a real server.
func NewWithClient(client *redis.Client, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{client: client, logger: logger}
}

func (b *Backend) Add(ctx context.Context, id core.Id, bytes []byte, byteSize uint64) error {
	key := id.String()
	pipe := b.client.TxPipeline()
	pipe.HSet(ctx, msgsHashKey, key, bytes)
	pipe.HSet(ctx, sizesHashKey, key, byteSize)
	if _, err := pipe.Exec(ctx); err != nil {
		return &backend.Error{Kind: backend.KindCouldNotAdd, Backend: "redis", Id: key, Cause: err}
	}
	return nil
}

func (b *Backend) Get(ctx context.Context, id core.Id) ([]byte, error) {
	key := id.String()
	val, err := b.client.HGet(ctx, msgsHashKey, key).Bytes()
	if err == redis.Nil {
		return nil, &backend.Error{Kind: backend.KindMsgNotFound, Backend: "redis", Id: key}
	}
	if err != nil {
		return nil, &backend.Error{Kind: backend.KindCouldNotGet, Backend: "redis", Id: key, Cause: err}
	}
	return val, nil
}

func (b *Backend) Del(ctx context.Context, id core.Id) error {
	key := id.String()
	pipe := b.client.TxPipeline()
	pipe.HDel(ctx, msgsHashKey, key)
	pipe.HDel(ctx, sizesHashKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return &backend.Error{Kind: backend.KindCouldNotDelete, Backend: "redis", Id: key, Cause: err}
	}
	return nil
}

func (b *Backend) Fetch(ctx context.Context) ([]backend.Record, error) {
	sizes, err := b.client.HGetAll(ctx, sizesHashKey).Result()
	if err != nil {
		return nil, &backend.Error{Kind: backend.KindCouldNotFetch, Backend: "redis", Cause: err}
	}
	out := make([]backend.Record, 0, len(sizes))
	for idStr, sizeStr := range sizes {
		id, err := core.ParseId(idStr)
		if err != nil {
			b.logger.Warn("skipping unparseable id during fetch", "id", idStr, "error", err)
			continue
		}
		size, err := strconv.ParseUint(sizeStr, 10, 64)
		if err != nil {
			b.logger.Warn("skipping unparseable size during fetch", "id", idStr, "error", err)
			continue
		}
		out = append(out, backend.Record{Id: id, ByteSize: size})
	}
	return out, nil
}

func (b *Backend) Close() error {
	return b.client.Close()
}
