// Package backend defines the durable-backend contract (C4): an opaque
// key/value store holding id -> payload and id -> byte size, enumerable
// once at startup to replay into the engine. Concrete plugins (memory,
// sqlite, redis, postgres) live in this package's subdirectories and are
// selected by a config string via New.
package backend

import (
	"context"
	"fmt"

	"github.com/msgstore/msgstore/internal/core"
)

// Record is one enumerated entry returned by Fetch: an id and the byte
// size recorded for it, used once at startup to replay backend contents
// into the engine.
type Record struct {
	Id       core.Id
	ByteSize uint64
}

// Backend is the four-operation durable-backend contract. Implementations
// must be safe for concurrent use; Get and Del may be invoked concurrently
// with Add, and the engine lock never extends into backend calls.
type Backend interface {
	// Add idempotently stores bytes and byteSize under id.
	Add(ctx context.Context, id core.Id, bytes []byte, byteSize uint64) error
	// Get fetches the payload stored under id.
	Get(ctx context.Context, id core.Id) ([]byte, error)
	// Del idempotently removes both cells stored under id.
	Del(ctx context.Context, id core.Id) error
	// Fetch enumerates every stored entry, for replay at startup.
	Fetch(ctx context.Context) ([]Record, error)
	// Close releases any resources (connections, file handles) the
	// backend holds.
	Close() error
}

// Kind classifies a backend error the way internal/core.Kind does for the
// engine, so callers can branch without string matching.
type Kind string

const (
	KindCouldNotAdd      Kind = "could_not_add_msg"
	KindCouldNotGet      Kind = "could_not_get_msg"
	KindCouldNotDelete   Kind = "could_not_delete_msg"
	KindCouldNotFetch    Kind = "could_not_fetch_data"
	KindMsgNotFound      Kind = "msg_not_found"
)

// Error is the backend package's tagged error type.
type Error struct {
	Kind    Kind
	Backend string
	Id      string
	Cause   error
}

func (e *Error) Error() string {
	if e.Id != "" {
		return fmt.Sprintf("backend(%s): %s: id=%s: %v", e.Backend, e.Kind, e.Id, e.Cause)
	}
	return fmt.Sprintf("backend(%s): %s: %v", e.Backend, e.Kind, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsNotFound reports whether err is a backend miss.
func IsNotFound(err error) bool {
	be, ok := err.(*Error)
	return ok && be.Kind == KindMsgNotFound
}

// ErrUnknownBackend is returned by New when the configured database
// string names no registered plugin.
type ErrUnknownBackend struct {
	Name string
}

func (e *ErrUnknownBackend) Error() string {
	return fmt.Sprintf("backend: unknown database %q", e.Name)
}
