package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instruction labels recorded on trades.
const (
	IxBuy  = "buy"
	IxSell = "sell"
)

// Trade is an immutable economic fact extracted from a single transaction.
// Corresponds to the trades hypertable, PRIMARY KEY (timestamp, signature).
type Trade struct {
	Signature   string
	TokenMint   string
	SolAmount   decimal.Decimal // lamports
	TokenAmount decimal.Decimal // base units
	IsBuy       bool
	UserWallet  string
	Timestamp   time.Time

	VirtualSolReserves   decimal.Decimal
	VirtualTokenReserves decimal.Decimal
	PriceSol             decimal.Decimal
	PriceUsd             decimal.Decimal

	TrackVolume bool
	IxName      string // "buy" or "sell"
	Slot        int64
}
