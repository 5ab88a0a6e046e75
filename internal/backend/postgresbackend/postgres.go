// Package postgresbackend implements the durable-backend contract (C4) on
// top of PostgreSQL, adapted from the teacher's internal/database/postgres
// connection-pool conventions: a pgxpool.Pool built from a DSN, a startup
// Ping, and structured connect logging.
package postgresbackend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/msgstore/msgstore/internal/backend"
	"github.com/msgstore/msgstore/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	payload BYTEA NOT NULL,
	byte_size BIGINT NOT NULL
);
`

// Config holds Postgres connection settings.
type Config struct {
	DSN      string
	MaxConns int32
}

// Backend is a Postgres-backed implementation of backend.Backend.
type Backend struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects to Postgres using cfg.DSN and ensures the messages table
// exists.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, &backend.Error{Kind: backend.KindCouldNotAdd, Backend: "postgres", Cause: fmt.Errorf("parse dsn: %w", err)}
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, &backend.Error{Kind: backend.KindCouldNotAdd, Backend: "postgres", Cause: fmt.Errorf("new pool: %w", err)}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &backend.Error{Kind: backend.KindCouldNotAdd, Backend: "postgres", Cause: fmt.Errorf("ping: %w", err)}
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, &backend.Error{Kind: backend.KindCouldNotAdd, Backend: "postgres", Cause: fmt.Errorf("init schema: %w", err)}
	}

	logger.Info("postgres backend connected", "max_conns", poolConfig.MaxConns)
	return &Backend{pool: pool, logger: logger}, nil
}

func (b *Backend) Add(ctx context.Context, id core.Id, bytes []byte, byteSize uint64) error {
	_, err := b.pool.Exec(ctx,
		`INSERT INTO messages(id, payload, byte_size) VALUES($1, $2, $3)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, byte_size = excluded.byte_size`,
		id.String(), bytes, int64(byteSize),
	)
	if err != nil {
		return &backend.Error{Kind: backend.KindCouldNotAdd, Backend: "postgres", Id: id.String(), Cause: err}
	}
	return nil
}

func (b *Backend) Get(ctx context.Context, id core.Id) ([]byte, error) {
	var payload []byte
	err := b.pool.QueryRow(ctx, `SELECT payload FROM messages WHERE id = $1`, id.String()).Scan(&payload)
	if err != nil {
		if isNoRows(err) {
			return nil, &backend.Error{Kind: backend.KindMsgNotFound, Backend: "postgres", Id: id.String()}
		}
		return nil, &backend.Error{Kind: backend.KindCouldNotGet, Backend: "postgres", Id: id.String(), Cause: err}
	}
	return payload, nil
}

func (b *Backend) Del(ctx context.Context, id core.Id) error {
	if _, err := b.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id.String()); err != nil {
		return &backend.Error{Kind: backend.KindCouldNotDelete, Backend: "postgres", Id: id.String(), Cause: err}
	}
	return nil
}

func (b *Backend) Fetch(ctx context.Context) ([]backend.Record, error) {
	rows, err := b.pool.Query(ctx, `SELECT id, byte_size FROM messages`)
	if err != nil {
		return nil, &backend.Error{Kind: backend.KindCouldNotFetch, Backend: "postgres", Cause: err}
	}
	defer rows.Close()

	var out []backend.Record
	for rows.Next() {
		var idStr string
		var size int64
		if err := rows.Scan(&idStr, &size); err != nil {
			return nil, &backend.Error{Kind: backend.KindCouldNotFetch, Backend: "postgres", Cause: err}
		}
		id, err := core.ParseId(idStr)
		if err != nil {
			b.logger.Warn("skipping unparseable id during fetch", "id", idStr, "error", err)
			continue
		}
		out = append(out, backend.Record{Id: id, ByteSize: uint64(size)})
	}
	return out, rows.Err()
}

func (b *Backend) Close() error {
	b.pool.Close()
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
