package memory

import (
	"context"
	"sync"
	"time"

	"pumpfun-indexer/internal/domain"
	"pumpfun-indexer/internal/storage"
)

// TxRecordStore is an in-memory implementation of storage.TxRecordStore.
type TxRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TxRecord // keyed by signature
}

// NewTxRecordStore creates a new in-memory audit store.
func NewTxRecordStore() *TxRecordStore {
	return &TxRecordStore{
		data: make(map[string]*domain.TxRecord),
	}
}

// Compile-time interface check.
var _ storage.TxRecordStore = (*TxRecordStore)(nil)

// Insert adds an audit row. Returns ErrDuplicateKey if the signature exists.
func (s *TxRecordStore) Insert(_ context.Context, r *domain.TxRecord) error {
	if r == nil || r.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.Signature]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	if copy.CreatedAt == nil {
		now := time.Now().UTC()
		copy.CreatedAt = &now
	}
	s.data[r.Signature] = &copy
	return nil
}

// GetBySignature retrieves an audit row. Returns ErrNotFound if not exists.
func (s *TxRecordStore) GetBySignature(_ context.Context, signature string) (*domain.TxRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[signature]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *r
	return &copy, nil
}
