package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Token is the mutable per-mint aggregate refined by every trade and
// creation event touching the mint. Corresponds to the tokens table,
// PRIMARY KEY (mint_address). Metadata fields fill in once known and are
// never cleared by later events lacking them.
type Token struct {
	MintAddress         string
	Name                *string
	Symbol              *string
	URI                 *string
	BondingCurveAddress *string
	CreatorWallet       *string

	VirtualTokenReserves decimal.Decimal
	VirtualSolReserves   decimal.Decimal
	RealTokenReserves    decimal.Decimal
	TokenTotalSupply     decimal.Decimal

	MarketCapUsd         decimal.Decimal
	BondingCurveProgress decimal.Decimal // percent, clamped to [0, 100]
	Complete             bool            // latched once progress reaches 100

	CreatedAt time.Time
	UpdatedAt *time.Time
}
