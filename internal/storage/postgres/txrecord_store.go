package postgres

import (
	"context"
	"fmt"

	"pumpfun-indexer/internal/domain"
	"pumpfun-indexer/internal/storage"
)

// TxRecordStore implements storage.TxRecordStore using PostgreSQL.
type TxRecordStore struct {
	pool *Pool
}

// NewTxRecordStore creates a new TxRecordStore.
func NewTxRecordStore(pool *Pool) *TxRecordStore {
	return &TxRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TxRecordStore = (*TxRecordStore)(nil)

// Insert adds an audit row. Returns ErrDuplicateKey if the signature was
// already recorded.
func (s *TxRecordStore) Insert(ctx context.Context, r *domain.TxRecord) error {
	if r == nil || r.Signature == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO transactions (
			signature, slot, block_time, signer, success, instruction_count
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		r.Signature,
		r.Slot,
		r.BlockTime,
		r.Signer,
		r.Success,
		r.InstructionCount,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction record: %w", err)
	}
	return nil
}

// GetBySignature retrieves an audit row. Returns ErrNotFound if not exists.
func (s *TxRecordStore) GetBySignature(ctx context.Context, signature string) (*domain.TxRecord, error) {
	query := `
		SELECT signature, slot, block_time, signer, success, instruction_count, created_at
		FROM transactions
		WHERE signature = $1
	`

	var r domain.TxRecord
	err := s.pool.QueryRow(ctx, query, signature).Scan(
		&r.Signature,
		&r.Slot,
		&r.BlockTime,
		&r.Signer,
		&r.Success,
		&r.InstructionCount,
		&r.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction record: %w", err)
	}
	return &r, nil
}
