package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsToMemory(t *testing.T) {
	be, err := New(context.Background(), Options{}, nil)
	require.NoError(t, err)
	defer be.Close()

	records, err := be.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNewUnknownDatabaseErrors(t *testing.T) {
	_, err := New(context.Background(), Options{Database: "nope"}, nil)
	require.Error(t, err)
	var unknown *ErrUnknownBackend
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.Name)
}
