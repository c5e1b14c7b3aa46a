package postgres_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpfun-indexer/internal/storage"
	pgstore "pumpfun-indexer/internal/storage/postgres"
)

func TestHolderStore_ApplyDelta(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pgstore.NewHolderStore(pool)

	require.NoError(t, store.ApplyDelta(ctx, "mint-h", "w1", decimal.NewFromInt(500), 10))

	h, err := store.Get(ctx, "mint-h", "w1")
	require.NoError(t, err)
	assert.True(t, h.Balance.Equal(decimal.NewFromInt(500)), "balance = %s", h.Balance)
	assert.Equal(t, int64(10), h.LastUpdatedSlot)
}

func TestHolderStore_SellFloorsAtZero(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pgstore.NewHolderStore(pool)

	require.NoError(t, store.ApplyDelta(ctx, "mint-h", "w1", decimal.NewFromInt(100), 10))
	require.NoError(t, store.ApplyDelta(ctx, "mint-h", "w1", decimal.NewFromInt(-500), 11))

	h, err := store.Get(ctx, "mint-h", "w1")
	require.NoError(t, err)
	assert.True(t, h.Balance.IsZero(), "balance = %s", h.Balance)
}

func TestHolderStore_FirstWriteNegativeFloors(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pgstore.NewHolderStore(pool)

	require.NoError(t, store.ApplyDelta(ctx, "mint-h", "w1", decimal.NewFromInt(-500), 10))

	h, err := store.Get(ctx, "mint-h", "w1")
	require.NoError(t, err)
	assert.True(t, h.Balance.IsZero(), "balance = %s", h.Balance)
}

func TestHolderStore_StaleSlotIgnored(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pgstore.NewHolderStore(pool)

	require.NoError(t, store.ApplyDelta(ctx, "mint-h", "w1", decimal.NewFromInt(500), 20))
	require.NoError(t, store.ApplyDelta(ctx, "mint-h", "w1", decimal.NewFromInt(100), 5))

	h, err := store.Get(ctx, "mint-h", "w1")
	require.NoError(t, err)
	assert.True(t, h.Balance.Equal(decimal.NewFromInt(500)), "balance = %s", h.Balance)
	assert.Equal(t, int64(20), h.LastUpdatedSlot)
}

func TestHolderStore_TopHolders(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pgstore.NewHolderStore(pool)

	for wallet, amount := range map[string]int64{"w1": 100, "w2": 300, "w3": 200} {
		require.NoError(t, store.ApplyDelta(ctx, "mint-top", wallet, decimal.NewFromInt(amount), 1))
	}
	// Zero-balance rows stay out of the ranking.
	require.NoError(t, store.ApplyDelta(ctx, "mint-top", "w4", decimal.NewFromInt(-10), 1))

	top, err := store.TopHolders(ctx, "mint-top", 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "w2", top[0].UserWallet)
	assert.Equal(t, "w3", top[1].UserWallet)
	assert.Equal(t, "w1", top[2].UserWallet)
}

func TestHolderStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewHolderStore(pool)
	_, err := store.Get(context.Background(), "mint-h", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
