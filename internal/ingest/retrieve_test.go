package ingest

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msgstore/msgstore/internal/core"
)

func TestWriterGetInlineByIdReturnsHeaderAndBody(t *testing.T) {
	w := newTestWriter(t, false)
	id, err := w.Add(context.Background(), strings.NewReader("priority=1?hello"))
	require.NoError(t, err)

	result, err := w.Get(context.Background(), &id, nil, false)
	require.NoError(t, err)
	defer result.Body.Close()

	assert.False(t, result.Streaming)
	assert.Equal(t, "uuid="+id.String()+"?", result.Header)

	body, err := io.ReadAll(result.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestWriterGetUnknownIdReturnsNotFound(t *testing.T) {
	w := newTestWriter(t, false)
	missing := core.Id{Priority: 99, Timestamp: 1, Sequence: 1, Node: 0}

	_, err := w.Get(context.Background(), &missing, nil, false)
	require.Error(t, err)
	var ierr *Error
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, KindNotFound, ierr.Kind)
}

func TestWriterGetStreamsFromFileStore(t *testing.T) {
	w := newTestWriter(t, true)
	id, err := w.Add(context.Background(), strings.NewReader("priority=1&saveToFile=true&bytesizeOverride=5?hello"))
	require.NoError(t, err)

	result, err := w.Get(context.Background(), &id, nil, false)
	require.NoError(t, err)
	defer result.Body.Close()

	assert.True(t, result.Streaming)
	body, err := io.ReadAll(result.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestCopyChunkedCopiesEntireStream(t *testing.T) {
	var dst strings.Builder
	n, err := CopyChunked(&dst, strings.NewReader("some body content"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("some body content")), n)
	assert.Equal(t, "some body content", dst.String())
}
