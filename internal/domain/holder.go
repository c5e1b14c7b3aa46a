package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenHolder tracks a wallet's running balance of one mint.
// Corresponds to the token_holders table, PRIMARY KEY (token_mint, user_wallet).
// Updates are last-write-wins by slot: a write carrying a slot older than
// last_updated_slot is rejected by the store's conditional upsert.
type TokenHolder struct {
	TokenMint       string
	UserWallet      string
	Balance         decimal.Decimal // base units, never negative
	LastUpdatedSlot int64
	UpdatedAt       *time.Time
}
