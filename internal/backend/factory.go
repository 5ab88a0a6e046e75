package backend

import (
	"context"
	"log/slog"

	"github.com/msgstore/msgstore/internal/backend/memorybackend"
	"github.com/msgstore/msgstore/internal/backend/postgresbackend"
	"github.com/msgstore/msgstore/internal/backend/redisbackend"
	"github.com/msgstore/msgstore/internal/backend/sqlitebackend"
)

// Options gathers the backend-specific settings a config string might
// need; only the fields relevant to the selected database are read.
type Options struct {
	Database     string // "mem", "sqlite", "redis", "postgres"
	SQLitePath   string
	RedisAddr    string
	RedisPassword string
	RedisDB      int
	PostgresDSN  string
}

// New selects and constructs a backend plugin by config string, mirroring
// the teacher's profile-based storage factory: log, construct, and return
// the plugin's construction error as is (each plugin's *Error names its
// backend). An unrecognized database string yields *ErrUnknownBackend.
func New(ctx context.Context, opts Options, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("initializing backend", "database", opts.Database)

	switch opts.Database {
	case "", "mem", "memory":
		return memorybackend.New(), nil
	case "sqlite":
		return sqlitebackend.Open(opts.SQLitePath, logger)
	case "redis":
		return redisbackend.New(redisbackend.Config{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			PoolSize: 10,
		}, logger)
	case "postgres":
		return postgresbackend.Open(ctx, postgresbackend.Config{DSN: opts.PostgresDSN}, logger)
	default:
		return nil, &ErrUnknownBackend{Name: opts.Database}
	}
}
