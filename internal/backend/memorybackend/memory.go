// Package memorybackend implements the durable-backend contract (C4) as a
// plain in-memory map. It holds nothing across restarts: Fetch enumerates
// only what this instance has stored, which is nothing at process start, so
// a store wired to it starts cold every time. Useful as the default backend
// and in tests.
package memorybackend

import (
	"context"
	"sync"

	"github.com/msgstore/msgstore/internal/backend"
	"github.com/msgstore/msgstore/internal/core"
)

// Backend is a map-backed implementation of backend.Backend.
type Backend struct {
	mu    sync.RWMutex
	msgs  map[core.Id][]byte
	sizes map[core.Id]uint64
}

// New returns an empty memory backend.
func New() *Backend {
	return &Backend{
		msgs:  make(map[core.Id][]byte),
		sizes: make(map[core.Id]uint64),
	}
}

func (b *Backend) Add(_ context.Context, id core.Id, bytes []byte, byteSize uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(bytes))
	copy(cp, bytes)
	b.msgs[id] = cp
	b.sizes[id] = byteSize
	return nil
}

func (b *Backend) Get(_ context.Context, id core.Id) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bytes, ok := b.msgs[id]
	if !ok {
		return nil, &backend.Error{Kind: backend.KindMsgNotFound, Backend: "mem", Id: id.String()}
	}
	cp := make([]byte, len(bytes))
	copy(cp, bytes)
	return cp, nil
}

func (b *Backend) Del(_ context.Context, id core.Id) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.msgs, id)
	delete(b.sizes, id)
	return nil
}

func (b *Backend) Fetch(_ context.Context) ([]backend.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]backend.Record, 0, len(b.sizes))
	for id, size := range b.sizes {
		out = append(out, backend.Record{Id: id, ByteSize: size})
	}
	return out, nil
}

func (b *Backend) Close() error {
	return nil
}
