package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pumpfun-indexer/internal/domain"
	"pumpfun-indexer/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Upsert inserts the token or refreshes an existing row. COALESCE keeps
// previously stored metadata when the incoming value is NULL, so a field
// fills in once and survives later events that lack it. Complete latches:
// once true it never drops back.
func (s *TokenStore) Upsert(ctx context.Context, t *domain.Token) error {
	if t == nil || t.MintAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tokens (
			mint_address, name, symbol, uri, bonding_curve_address, creator_wallet,
			virtual_token_reserves, virtual_sol_reserves, real_token_reserves,
			token_total_supply, market_cap_usd, bonding_curve_progress, complete, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (mint_address) DO UPDATE SET
			name = COALESCE(tokens.name, EXCLUDED.name),
			symbol = COALESCE(tokens.symbol, EXCLUDED.symbol),
			uri = COALESCE(tokens.uri, EXCLUDED.uri),
			bonding_curve_address = COALESCE(tokens.bonding_curve_address, EXCLUDED.bonding_curve_address),
			creator_wallet = COALESCE(tokens.creator_wallet, EXCLUDED.creator_wallet),
			virtual_token_reserves = EXCLUDED.virtual_token_reserves,
			virtual_sol_reserves = EXCLUDED.virtual_sol_reserves,
			real_token_reserves = EXCLUDED.real_token_reserves,
			token_total_supply = EXCLUDED.token_total_supply,
			market_cap_usd = EXCLUDED.market_cap_usd,
			bonding_curve_progress = EXCLUDED.bonding_curve_progress,
			complete = tokens.complete OR EXCLUDED.complete,
			updated_at = now()
	`

	_, err := s.pool.Exec(ctx, query,
		t.MintAddress,
		t.Name,
		t.Symbol,
		t.URI,
		t.BondingCurveAddress,
		t.CreatorWallet,
		t.VirtualTokenReserves,
		t.VirtualSolReserves,
		t.RealTokenReserves,
		t.TokenTotalSupply,
		t.MarketCapUsd,
		t.BondingCurveProgress,
		t.Complete,
		t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// GetByMint retrieves a token by mint address. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(ctx context.Context, mint string) (*domain.Token, error) {
	query := tokenSelect + ` WHERE mint_address = $1`

	row := s.pool.QueryRow(ctx, query, mint)
	t, err := scanToken(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by mint: %w", err)
	}
	return t, nil
}

// TopByMarketCap retrieves the highest-capitalized tokens, descending.
func (s *TokenStore) TopByMarketCap(ctx context.Context, limit int) ([]*domain.Token, error) {
	query := tokenSelect + `
		ORDER BY market_cap_usd DESC, mint_address ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("top tokens by market cap: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}
	return tokens, nil
}

const tokenSelect = `
	SELECT mint_address, name, symbol, uri, bonding_curve_address, creator_wallet,
		virtual_token_reserves, virtual_sol_reserves, real_token_reserves,
		token_total_supply, market_cap_usd, bonding_curve_progress, complete,
		created_at, updated_at
	FROM tokens
`

// scanToken scans one row into a Token.
func scanToken(row pgx.Row) (*domain.Token, error) {
	var t domain.Token
	err := row.Scan(
		&t.MintAddress,
		&t.Name,
		&t.Symbol,
		&t.URI,
		&t.BondingCurveAddress,
		&t.CreatorWallet,
		&t.VirtualTokenReserves,
		&t.VirtualSolReserves,
		&t.RealTokenReserves,
		&t.TokenTotalSupply,
		&t.MarketCapUsd,
		&t.BondingCurveProgress,
		&t.Complete,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
