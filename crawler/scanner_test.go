package crawler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"f95-crawler/models"
	"f95-crawler/storage"
)

func TestMissingThreadIDsKeepsDiscoveryOrder(t *testing.T) {
	store := newCountingStore()
	seed(t, store, []int64{900, 15, 300, 42, 7}, []int64{300, 7, 12345})

	ids, err := MissingThreadIDs(context.Background(), store, store)
	require.NoError(t, err)
	assert.Equal(t, []int64{900, 15, 42}, ids)
}

func TestMissingThreadIDsEmptyStores(t *testing.T) {
	store := storage.NewMemoryStore()

	ids, err := MissingThreadIDs(context.Background(), store, store)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

type brokenDetails struct{ storage.DetailStore }

func (brokenDetails) ThreadDetailIDs(context.Context) ([]int64, error) {
	return nil, errors.New("relation \"thread_details\" does not exist")
}

func TestMissingThreadIDsPropagatesStoreError(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.UpsertGame(context.Background(), &models.Game{ThreadID: 1}))

	_, err := MissingThreadIDs(context.Background(), store, brokenDetails{})
	assert.ErrorContains(t, err, "scan detail ids")
}
