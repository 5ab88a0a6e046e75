// Package sqlitebackend implements the durable-backend contract (C4) on
// top of a single SQLite table, using the pure-Go modernc.org/sqlite
// driver (no cgo). It mirrors the teacher's SQLite storage adapter: WAL
// mode for concurrent reads during writes, and a file created with
// restrictive permissions.
package sqlitebackend

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/msgstore/msgstore/internal/backend"
	"github.com/msgstore/msgstore/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	payload BLOB NOT NULL,
	byte_size INTEGER NOT NULL
);
`

// Backend is a SQLite-backed implementation of backend.Backend.
type Backend struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates the database file (if absent) at path with mode 0600,
// enables WAL mode, and ensures the messages table exists.
func Open(path string, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, &backend.Error{Kind: backend.KindCouldNotAdd, Backend: "sqlite", Cause: fmt.Errorf("create dir: %w", err)}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &backend.Error{Kind: backend.KindCouldNotAdd, Backend: "sqlite", Cause: err}
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, &backend.Error{Kind: backend.KindCouldNotAdd, Backend: "sqlite", Cause: fmt.Errorf("enable wal: %w", err)}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &backend.Error{Kind: backend.KindCouldNotAdd, Backend: "sqlite", Cause: fmt.Errorf("init schema: %w", err)}
	}
	_ = os.Chmod(path, 0o600)

	logger.Info("sqlite backend opened", "path", path)
	return &Backend{db: db, logger: logger}, nil
}

func (b *Backend) Add(ctx context.Context, id core.Id, bytes []byte, byteSize uint64) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO messages(id, payload, byte_size) VALUES(?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload=excluded.payload, byte_size=excluded.byte_size`,
		id.String(), bytes, byteSize,
	)
	if err != nil {
		return &backend.Error{Kind: backend.KindCouldNotAdd, Backend: "sqlite", Id: id.String(), Cause: err}
	}
	return nil
}

func (b *Backend) Get(ctx context.Context, id core.Id) ([]byte, error) {
	var payload []byte
	err := b.db.QueryRowContext(ctx, `SELECT payload FROM messages WHERE id = ?`, id.String()).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, &backend.Error{Kind: backend.KindMsgNotFound, Backend: "sqlite", Id: id.String()}
	}
	if err != nil {
		return nil, &backend.Error{Kind: backend.KindCouldNotGet, Backend: "sqlite", Id: id.String(), Cause: err}
	}
	return payload, nil
}

func (b *Backend) Del(ctx context.Context, id core.Id) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id.String()); err != nil {
		return &backend.Error{Kind: backend.KindCouldNotDelete, Backend: "sqlite", Id: id.String(), Cause: err}
	}
	return nil
}

func (b *Backend) Fetch(ctx context.Context) ([]backend.Record, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT id, byte_size FROM messages`)
	if err != nil {
		return nil, &backend.Error{Kind: backend.KindCouldNotFetch, Backend: "sqlite", Cause: err}
	}
	defer rows.Close()

	var out []backend.Record
	for rows.Next() {
		var idStr string
		var size uint64
		if err := rows.Scan(&idStr, &size); err != nil {
			return nil, &backend.Error{Kind: backend.KindCouldNotFetch, Backend: "sqlite", Cause: err}
		}
		id, err := core.ParseId(idStr)
		if err != nil {
			b.logger.Warn("skipping unparseable id during fetch", "id", idStr, "error", err)
			continue
		}
		out = append(out, backend.Record{Id: id, ByteSize: size})
	}
	return out, rows.Err()
}

func (b *Backend) Close() error {
	return b.db.Close()
}
