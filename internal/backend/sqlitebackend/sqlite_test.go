package sqlitebackend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msgstore/msgstore/internal/backend"
	"github.com/msgstore/msgstore/internal/core"
)

func openTestBackend(t *testing.T) *Backend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "msgstore.db")
	b, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestSqliteBackendAddGetRoundTrip(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()
	id := core.Id{Priority: 1, Timestamp: 1, Sequence: 1, Node: 0}

	require.NoError(t, b.Add(ctx, id, []byte("hello"), 5))

	got, err := b.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestSqliteBackendAddUpsertsExistingId(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()
	id := core.Id{Priority: 1, Timestamp: 1, Sequence: 1, Node: 0}

	require.NoError(t, b.Add(ctx, id, []byte("first"), 5))
	require.NoError(t, b.Add(ctx, id, []byte("second"), 6))

	got, err := b.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestSqliteBackendGetMissingIsNotFound(t *testing.T) {
	b := openTestBackend(t)
	_, err := b.Get(context.Background(), core.Id{Priority: 9})
	require.Error(t, err)
	assert.True(t, backend.IsNotFound(err))
}

func TestSqliteBackendDelRemovesRow(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()
	id := core.Id{Priority: 1, Timestamp: 1, Sequence: 1, Node: 0}
	require.NoError(t, b.Add(ctx, id, []byte("x"), 1))
	require.NoError(t, b.Del(ctx, id))

	_, err := b.Get(ctx, id)
	assert.True(t, backend.IsNotFound(err))
}

func TestSqliteBackendFetchSkipsUnparseableIds(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	_, err := b.db.ExecContext(ctx,
		`INSERT INTO messages(id, payload, byte_size) VALUES(?, ?, ?)`,
		"not-a-valid-id", []byte("x"), 1,
	)
	require.NoError(t, err)

	good := core.Id{Priority: 1, Timestamp: 1, Sequence: 1, Node: 0}
	require.NoError(t, b.Add(ctx, good, []byte("y"), 1))

	records, err := b.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, good, records[0].Id)
}
