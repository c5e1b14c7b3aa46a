package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"pumpfun-indexer/internal/domain"
	"pumpfun-indexer/internal/storage"
)

// HolderStore implements storage.HolderStore using PostgreSQL.
type HolderStore struct {
	pool *Pool
}

// NewHolderStore creates a new HolderStore.
func NewHolderStore(pool *Pool) *HolderStore {
	return &HolderStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HolderStore = (*HolderStore)(nil)

// ApplyDelta adjusts a wallet's balance by delta, flooring the result at
// zero. The conditional upsert discards writes whose slot precedes the
// last applied slot, so out-of-order replays cannot regress a balance.
func (s *HolderStore) ApplyDelta(ctx context.Context, mint, wallet string, delta decimal.Decimal, slot int64) error {
	if mint == "" || wallet == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_holders (token_mint, user_wallet, balance, last_updated_slot)
		VALUES ($1, $2, GREATEST($3::numeric, 0), $4)
		ON CONFLICT (token_mint, user_wallet) DO UPDATE SET
			balance = GREATEST(token_holders.balance + $3::numeric, 0),
			last_updated_slot = $4,
			updated_at = now()
		WHERE token_holders.last_updated_slot <= $4
	`

	if _, err := s.pool.Exec(ctx, query, mint, wallet, delta, slot); err != nil {
		return fmt.Errorf("apply holder delta: %w", err)
	}
	return nil
}

// Get retrieves one holder row. Returns ErrNotFound if not exists.
func (s *HolderStore) Get(ctx context.Context, mint, wallet string) (*domain.TokenHolder, error) {
	query := `
		SELECT token_mint, user_wallet, balance, last_updated_slot, updated_at
		FROM token_holders
		WHERE token_mint = $1 AND user_wallet = $2
	`

	h, err := scanHolder(s.pool.QueryRow(ctx, query, mint, wallet))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get holder: %w", err)
	}
	return h, nil
}

// TopHolders retrieves the largest holders of a mint, descending by balance.
func (s *HolderStore) TopHolders(ctx context.Context, mint string, limit int) ([]*domain.TokenHolder, error) {
	query := `
		SELECT token_mint, user_wallet, balance, last_updated_slot, updated_at
		FROM token_holders
		WHERE token_mint = $1 AND balance > 0
		ORDER BY balance DESC, user_wallet ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, mint, limit)
	if err != nil {
		return nil, fmt.Errorf("get top holders: %w", err)
	}
	defer rows.Close()

	var holders []*domain.TokenHolder
	for rows.Next() {
		h, err := scanHolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan holder row: %w", err)
		}
		holders = append(holders, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holder rows: %w", err)
	}
	return holders, nil
}

// scanHolder scans one row into a TokenHolder.
func scanHolder(row pgx.Row) (*domain.TokenHolder, error) {
	var h domain.TokenHolder
	err := row.Scan(
		&h.TokenMint,
		&h.UserWallet,
		&h.Balance,
		&h.LastUpdatedSlot,
		&h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}
