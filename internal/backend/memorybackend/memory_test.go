package memorybackend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msgstore/msgstore/internal/backend"
	"github.com/msgstore/msgstore/internal/core"
)

func TestMemoryBackendAddGetRoundTrip(t *testing.T) {
	b := New()
	ctx := context.Background()
	id := core.Id{Priority: 1, Timestamp: 1, Sequence: 1, Node: 0}

	require.NoError(t, b.Add(ctx, id, []byte("hello"), 5))

	got, err := b.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestMemoryBackendGetMissingIsNotFound(t *testing.T) {
	b := New()
	_, err := b.Get(context.Background(), core.Id{Priority: 1})
	require.Error(t, err)
	assert.True(t, backend.IsNotFound(err))
}

func TestMemoryBackendDelIsIdempotent(t *testing.T) {
	b := New()
	ctx := context.Background()
	id := core.Id{Priority: 1, Timestamp: 1, Sequence: 1, Node: 0}
	require.NoError(t, b.Add(ctx, id, []byte("x"), 1))

	require.NoError(t, b.Del(ctx, id))
	require.NoError(t, b.Del(ctx, id))

	_, err := b.Get(ctx, id)
	assert.True(t, backend.IsNotFound(err))
}

func TestMemoryBackendFetchEnumeratesAll(t *testing.T) {
	b := New()
	ctx := context.Background()
	a := core.Id{Priority: 1, Timestamp: 1, Sequence: 1, Node: 0}
	c := core.Id{Priority: 2, Timestamp: 2, Sequence: 1, Node: 0}
	require.NoError(t, b.Add(ctx, a, []byte("a"), 1))
	require.NoError(t, b.Add(ctx, c, []byte("c"), 1))

	records, err := b.Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestMemoryBackendAddCopiesInputBytes(t *testing.T) {
	b := New()
	ctx := context.Background()
	id := core.Id{Priority: 1}
	payload := []byte("mutable")
	require.NoError(t, b.Add(ctx, id, payload, uint64(len(payload))))

	payload[0] = 'X'
	got, err := b.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("mutable"), got)
}
