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

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Trade // keyed by composite key
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.Trade),
	}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// tradeKey generates a unique key for a trade.
func tradeKey(timestamp time.Time, signature string) string {
	return fmt.Sprintf("%d|%s", timestamp.UnixNano(), signature)
}

// Insert adds a new trade. Returns ErrDuplicateKey if (timestamp, signature) exists.
func (s *TradeStore) Insert(_ context.Context, t *domain.Trade) error {
	if t == nil || t.Signature == "" || t.TokenMint == "" {
		return storage.ErrInvalidInput
	}

	key := tradeKey(t.Timestamp, t.Signature)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[key] = &copy
	return nil
}

// RecentByMint retrieves the latest trades for a mint, newest first.
func (s *TradeStore) RecentByMint(_ context.Context, mint string, limit int) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.TokenMint == mint {
			copy := *t
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.After(result[j].Timestamp)
		}
		return result[i].Signature > result[j].Signature
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CountByMint returns the number of recorded trades for a mint.
func (s *TradeStore) CountByMint(_ context.Context, mint string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, t := range s.data {
		if t.TokenMint == mint {
			count++
		}
	}
	return count, nil
}

// VolumeSince sums the SOL amount of volume-tracked trades for a mint since
// the given time.
func (s *TradeStore) VolumeSince(_ context.Context, mint string, since time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	volume := decimal.Zero
	for _, t := range s.data {
		if t.TokenMint == mint && t.TrackVolume && !t.Timestamp.Before(since) {
			volume = volume.Add(t.SolAmount)
		}
	}
	return volume, nil
}
