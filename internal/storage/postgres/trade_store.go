package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"pumpfun-indexer/internal/domain"
	"pumpfun-indexer/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds a new trade. Returns ErrDuplicateKey if (timestamp, signature)
// exists, so a replayed transaction is detected rather than double-counted.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	if t == nil || t.Signature == "" || t.TokenMint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trades (
			signature, token_mint, sol_amount, token_amount, is_buy, user_wallet,
			timestamp, virtual_sol_reserves, virtual_token_reserves,
			price_sol, price_usd, track_volume, ix_name, slot
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := s.pool.Exec(ctx, query,
		t.Signature,
		t.TokenMint,
		t.SolAmount,
		t.TokenAmount,
		t.IsBuy,
		t.UserWallet,
		t.Timestamp,
		t.VirtualSolReserves,
		t.VirtualTokenReserves,
		t.PriceSol,
		t.PriceUsd,
		t.TrackVolume,
		t.IxName,
		t.Slot,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// RecentByMint retrieves the latest trades for a mint, newest first.
func (s *TradeStore) RecentByMint(ctx context.Context, mint string, limit int) ([]*domain.Trade, error) {
	query := `
		SELECT signature, token_mint, sol_amount, token_amount, is_buy, user_wallet,
			timestamp, virtual_sol_reserves, virtual_token_reserves,
			price_sol, price_usd, track_volume, ix_name, slot
		FROM trades
		WHERE token_mint = $1
		ORDER BY timestamp DESC, signature DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, mint, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// CountByMint returns the number of recorded trades for a mint.
func (s *TradeStore) CountByMint(ctx context.Context, mint string) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM trades WHERE token_mint = $1`, mint).Scan(&count); err != nil {
		return 0, fmt.Errorf("count trades: %w", err)
	}
	return count, nil
}

// VolumeSince sums the SOL amount of volume-tracked trades for a mint since
// the given time.
func (s *TradeStore) VolumeSince(ctx context.Context, mint string, since time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(sol_amount), 0)
		FROM trades
		WHERE token_mint = $1 AND track_volume AND timestamp >= $2
	`

	var volume decimal.Decimal
	if err := s.pool.QueryRow(ctx, query, mint, since).Scan(&volume); err != nil {
		return decimal.Zero, fmt.Errorf("sum trade volume: %w", err)
	}
	return volume, nil
}

// scanTrades scans multiple rows into a slice of Trade.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		var t domain.Trade

		err := rows.Scan(
			&t.Signature,
			&t.TokenMint,
			&t.SolAmount,
			&t.TokenAmount,
			&t.IsBuy,
			&t.UserWallet,
			&t.Timestamp,
			&t.VirtualSolReserves,
			&t.VirtualTokenReserves,
			&t.PriceSol,
			&t.PriceUsd,
			&t.TrackVolume,
			&t.IxName,
			&t.Slot,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
