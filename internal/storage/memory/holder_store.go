package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pumpfun-indexer/internal/domain"
	"pumpfun-indexer/internal/storage"
)

// HolderStore is an in-memory implementation of storage.HolderStore.
type HolderStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenHolder // keyed by composite key
}

// NewHolderStore creates a new in-memory holder store.
func NewHolderStore() *HolderStore {
	return &HolderStore{
		data: make(map[string]*domain.TokenHolder),
	}
}

// Compile-time interface check.
var _ storage.HolderStore = (*HolderStore)(nil)

// holderKey generates a unique key for a holder.
func holderKey(mint, wallet string) string {
	return fmt.Sprintf("%s|%s", mint, wallet)
}

// ApplyDelta adjusts a wallet's balance by delta, floored at zero. Writes
// carrying a slot older than the last applied one are ignored.
func (s *HolderStore) ApplyDelta(_ context.Context, mint, wallet string, delta decimal.Decimal, slot int64) error {
	if mint == "" || wallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := holderKey(mint, wallet)
	now := time.Now().UTC()

	h, ok := s.data[key]
	if !ok {
		balance := delta
		if balance.IsNegative() {
			balance = decimal.Zero
		}
		s.data[key] = &domain.TokenHolder{
			TokenMint:       mint,
			UserWallet:      wallet,
			Balance:         balance,
			LastUpdatedSlot: slot,
			UpdatedAt:       &now,
		}
		return nil
	}

	if slot < h.LastUpdatedSlot {
		return nil
	}

	balance := h.Balance.Add(delta)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	h.Balance = balance
	h.LastUpdatedSlot = slot
	h.UpdatedAt = &now
	return nil
}

// Get retrieves one holder row. Returns ErrNotFound if not exists.
func (s *HolderStore) Get(_ context.Context, mint, wallet string) (*domain.TokenHolder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.data[holderKey(mint, wallet)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *h
	return &copy, nil
}

// TopHolders retrieves the largest holders of a mint, descending by balance.
func (s *HolderStore) TopHolders(_ context.Context, mint string, limit int) ([]*domain.TokenHolder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenHolder
	for _, h := range s.data {
		if h.TokenMint == mint && h.Balance.IsPositive() {
			copy := *h
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Balance.Equal(result[j].Balance) {
			return result[i].Balance.GreaterThan(result[j].Balance)
		}
		return result[i].UserWallet < result[j].UserWallet
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
