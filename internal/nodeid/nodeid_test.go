package nodeid

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: srv.Addr()})
}

func TestAcquireDistinctNodes(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	first, err := Acquire(ctx, client, 3, nil)
	require.NoError(t, err)
	second, err := Acquire(ctx, client, 3, nil)
	require.NoError(t, err)

	require.NotEqual(t, first.Node(), second.Node())
}

func TestReleaseFreesNodeForReuse(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	lease, err := Acquire(ctx, client, 0, nil)
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))

	again, err := Acquire(ctx, client, 0, nil)
	require.NoError(t, err)
	require.Equal(t, lease.Node(), again.Node())
}

func TestAcquireExhaustedRangeFails(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := Acquire(ctx, client, 1, nil)
	require.NoError(t, err)
	_, err = Acquire(ctx, client, 1, nil)
	require.NoError(t, err)

	_, err = Acquire(ctx, client, 1, nil)
	require.Error(t, err)
}
