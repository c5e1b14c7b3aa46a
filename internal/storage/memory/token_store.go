package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"pumpfun-indexer/internal/domain"
	"pumpfun-indexer/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Token // keyed by mint address
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.Token),
	}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Upsert inserts the token or refreshes an existing row with the same
// fill-once metadata and latched-complete semantics as the SQL backend.
func (s *TokenStore) Upsert(_ context.Context, t *domain.Token) error {
	if t == nil || t.MintAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data[t.MintAddress]
	if !ok {
		copy := *t
		s.data[t.MintAddress] = &copy
		return nil
	}

	existing.Name = coalesce(existing.Name, t.Name)
	existing.Symbol = coalesce(existing.Symbol, t.Symbol)
	existing.URI = coalesce(existing.URI, t.URI)
	existing.BondingCurveAddress = coalesce(existing.BondingCurveAddress, t.BondingCurveAddress)
	existing.CreatorWallet = coalesce(existing.CreatorWallet, t.CreatorWallet)
	existing.VirtualTokenReserves = t.VirtualTokenReserves
	existing.VirtualSolReserves = t.VirtualSolReserves
	existing.RealTokenReserves = t.RealTokenReserves
	existing.TokenTotalSupply = t.TokenTotalSupply
	existing.MarketCapUsd = t.MarketCapUsd
	existing.BondingCurveProgress = t.BondingCurveProgress
	existing.Complete = existing.Complete || t.Complete
	now := time.Now().UTC()
	existing.UpdatedAt = &now

	return nil
}

// GetByMint retrieves a token by mint address. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(_ context.Context, mint string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data[mint]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *t
	return &copy, nil
}

// TopByMarketCap retrieves the highest-capitalized tokens, descending.
func (s *TokenStore) TopByMarketCap(_ context.Context, limit int) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Token
	for _, t := range s.data {
		copy := *t
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].MarketCapUsd.Equal(result[j].MarketCapUsd) {
			return result[i].MarketCapUsd.GreaterThan(result[j].MarketCapUsd)
		}
		return result[i].MintAddress < result[j].MintAddress
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// coalesce keeps the stored value once set.
func coalesce(stored, incoming *string) *string {
	if stored != nil {
		return stored
	}
	return incoming
}
