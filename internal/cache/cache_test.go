package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msgstore/msgstore/internal/core"
)

func TestGetMissOnEmptyCache(t *testing.T) {
	c, err := New(Config{}, nil)
	require.NoError(t, err)

	_, ok := c.Get(context.Background(), core.Id{Priority: 1})
	assert.False(t, ok)
}

func TestPutThenGetL1Only(t *testing.T) {
	c, err := New(Config{}, nil)
	require.NoError(t, err)

	id := core.Id{Priority: 1, Timestamp: 1}
	entry := Entry{Header: "uuid=1-1-0-0?", Body: []byte("hello")}
	c.Put(context.Background(), id, entry)

	got, ok := c.Get(context.Background(), id)
	require.True(t, ok)
	assert.Equal(t, entry, got)
}

func TestInvalidateRemovesFromL1(t *testing.T) {
	c, err := New(Config{}, nil)
	require.NoError(t, err)

	id := core.Id{Priority: 1, Timestamp: 1}
	c.Put(context.Background(), id, Entry{Body: []byte("x")})
	c.Invalidate(context.Background(), id)

	_, ok := c.Get(context.Background(), id)
	assert.False(t, ok)
}

func TestL2FallbackPopulatesL1(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})

	c, err := New(Config{Redis: client}, nil)
	require.NoError(t, err)

	id := core.Id{Priority: 2, Timestamp: 7}
	entry := Entry{Header: "uuid=2-7-0-0?", Body: []byte("payload")}
	c.Put(context.Background(), id, entry)

	// Simulate a second process with a cold L1 but the same L2.
	other, err := New(Config{Redis: client}, nil)
	require.NoError(t, err)

	got, ok := other.Get(context.Background(), id)
	require.True(t, ok)
	assert.Equal(t, entry, got)
	assert.Equal(t, 1, other.Len())
}
