package memory

import (
	"context"
	"sort"
	"sync"

	"pumpfun-indexer/internal/domain"
	"pumpfun-indexer/internal/storage"
)

// PricePointStore is an in-memory implementation of storage.PricePointStore.
type PricePointStore struct {
	mu   sync.RWMutex
	data []*domain.PricePoint
}

// NewPricePointStore creates a new in-memory price point store.
func NewPricePointStore() *PricePointStore {
	return &PricePointStore{}
}

// Compile-time interface check.
var _ storage.PricePointStore = (*PricePointStore)(nil)

// InsertBulk appends price samples. Duplicates are tolerated, matching the
// ClickHouse backend's append-only behavior.
func (s *PricePointStore) InsertBulk(_ context.Context, points []*domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if p == nil || p.Mint == "" {
			return storage.ErrInvalidInput
		}
		copy := *p
		s.data = append(s.data, &copy)
	}
	return nil
}

// GetByMint retrieves all samples for a mint, ordered by timestamp ASC.
func (s *PricePointStore) GetByMint(_ context.Context, mint string) ([]*domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PricePoint
	for _, p := range s.data {
		if p.Mint == mint {
			copy := *p
			result = append(result, &copy)
		}
	}
	sortPricePoints(result)
	return result, nil
}

// GetByTimeRange retrieves samples for a mint within [start, end] ms (inclusive).
func (s *PricePointStore) GetByTimeRange(_ context.Context, mint string, startMs, endMs int64) ([]*domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PricePoint
	for _, p := range s.data {
		if p.Mint == mint && p.TimestampMs >= startMs && p.TimestampMs <= endMs {
			copy := *p
			result = append(result, &copy)
		}
	}
	sortPricePoints(result)
	return result, nil
}

func sortPricePoints(points []*domain.PricePoint) {
	sort.Slice(points, func(i, j int) bool {
		if points[i].TimestampMs != points[j].TimestampMs {
			return points[i].TimestampMs < points[j].TimestampMs
		}
		return points[i].Slot < points[j].Slot
	})
}
