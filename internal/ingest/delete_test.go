package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterDeleteRemovesFromEngineAndBackend(t *testing.T) {
	w := newTestWriter(t, false)
	id, err := w.Add(context.Background(), strings.NewReader("priority=1?hello"))
	require.NoError(t, err)

	require.NoError(t, w.Delete(context.Background(), id))

	_, err = w.Backend.Get(context.Background(), id)
	assert.Error(t, err)
	assert.Equal(t, uint64(1), w.Stats.Snapshot().Deleted)
}

func TestWriterDeleteGroupCountsOnceRegardlessOfSize(t *testing.T) {
	w := newTestWriter(t, false)
	_, err := w.Add(context.Background(), strings.NewReader("priority=1?a"))
	require.NoError(t, err)
	_, err = w.Add(context.Background(), strings.NewReader("priority=1?b"))
	require.NoError(t, err)

	require.NoError(t, w.DeleteGroup(context.Background(), 1))
	assert.Equal(t, uint64(1), w.Stats.Snapshot().Deleted)
}

func TestWriterDeleteGroupOnEmptyGroupDoesNotCount(t *testing.T) {
	w := newTestWriter(t, false)
	require.NoError(t, w.DeleteGroup(context.Background(), 7))
	assert.Equal(t, uint64(0), w.Stats.Snapshot().Deleted)
}

func TestWriterReplayRebuildsEngineFromBackend(t *testing.T) {
	w := newTestWriter(t, false)
	id, err := w.Add(context.Background(), strings.NewReader("priority=1?hello"))
	require.NoError(t, err)

	fresh := newTestWriter(t, false)
	fresh.Backend = w.Backend
	require.NoError(t, fresh.Replay(context.Background()))

	resolved, ok := fresh.Store.Get(&id, nil, false)
	require.True(t, ok)
	assert.Equal(t, id, resolved)
}
