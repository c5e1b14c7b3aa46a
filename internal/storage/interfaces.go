package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"pumpfun-indexer/internal/domain"
)

// TokenStore provides access to tokens storage.
type TokenStore interface {
	// Upsert inserts the token or refreshes an existing row. Metadata
	// fields fill in once and are never cleared by later writes carrying
	// nil; Complete latches true.
	Upsert(ctx context.Context, t *domain.Token) error

	// GetByMint retrieves a token by mint address. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.Token, error)

	// TopByMarketCap retrieves the highest-capitalized tokens, descending.
	TopByMarketCap(ctx context.Context, limit int) ([]*domain.Token, error)
}

// TradeStore provides access to trades storage.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if (timestamp, signature)
	// exists; a replayed transaction must not produce a second row.
	Insert(ctx context.Context, t *domain.Trade) error

	// RecentByMint retrieves the latest trades for a mint, newest first.
	RecentByMint(ctx context.Context, mint string, limit int) ([]*domain.Trade, error)

	// CountByMint returns the number of recorded trades for a mint.
	CountByMint(ctx context.Context, mint string) (int64, error)

	// VolumeSince sums the SOL amount of volume-tracked trades for a mint
	// since the given time.
	VolumeSince(ctx context.Context, mint string, since time.Time) (decimal.Decimal, error)
}

// HolderStore provides access to token_holders storage.
type HolderStore interface {
	// ApplyDelta adjusts a wallet's balance by delta (negative for sells),
	// flooring the result at zero. The write is ignored when slot is older
	// than the row's last applied slot.
	ApplyDelta(ctx context.Context, mint, wallet string, delta decimal.Decimal, slot int64) error

	// Get retrieves one holder row. Returns ErrNotFound if not exists.
	Get(ctx context.Context, mint, wallet string) (*domain.TokenHolder, error)

	// TopHolders retrieves the largest holders of a mint, descending by balance.
	TopHolders(ctx context.Context, mint string, limit int) ([]*domain.TokenHolder, error)
}

// TxRecordStore provides access to the processed-transaction audit log.
type TxRecordStore interface {
	// Insert adds an audit row. Returns ErrDuplicateKey if the signature
	// was already recorded.
	Insert(ctx context.Context, r *domain.TxRecord) error

	// GetBySignature retrieves an audit row. Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.TxRecord, error)
}

// PricePointStore provides access to price_points analytics storage.
type PricePointStore interface {
	// InsertBulk appends price samples. Duplicate samples are tolerated;
	// the analytics store is append-only and deduplicated on merge.
	InsertBulk(ctx context.Context, points []*domain.PricePoint) error

	// GetByMint retrieves all samples for a mint, ordered by timestamp ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.PricePoint, error)

	// GetByTimeRange retrieves samples for a mint within [start, end] ms (inclusive).
	GetByTimeRange(ctx context.Context, mint string, startMs, endMs int64) ([]*domain.PricePoint, error)
}
