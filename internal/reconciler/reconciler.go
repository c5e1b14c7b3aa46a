// Package reconciler folds parsed events into the durable per-mint state:
// the trade log, the token aggregate and the holder balances. Every write
// path is idempotent, so replaying a transaction leaves the state unchanged.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"pumpfun-indexer/internal/domain"
	"pumpfun-indexer/internal/storage"
)

// Bonding curve constants of the target program.
const (
	// CompleteThresholdLamports is the virtual SOL reserve at which the
	// bonding curve is considered complete.
	CompleteThresholdLamports = 85_000_000_000
	// DefaultTotalSupply is assumed for tokens first seen via a trade,
	// before any creation event supplied the real figure.
	DefaultTotalSupply = 1_000_000_000_000_000
)

var (
	completeThreshold = decimal.NewFromInt(CompleteThresholdLamports)
	hundred           = decimal.NewFromInt(100)
)

// TokenHints carries best-effort token facts scraped from the same
// transaction as a trade. A token first seen via a trade gets its metadata
// and bonding-curve address from these; rows already carrying a value keep
// it (fill-once).
type TokenHints struct {
	Name                *string
	Symbol              *string
	URI                 *string
	BondingCurveAddress *string
}

// Reconciler owns the state transition from a parsed event to storage.
type Reconciler struct {
	tokens  storage.TokenStore
	trades  storage.TradeStore
	holders storage.HolderStore
	logger  *log.Logger
}

// New creates a reconciler over the given stores.
func New(tokens storage.TokenStore, trades storage.TradeStore, holders storage.HolderStore, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{tokens: tokens, trades: trades, holders: holders, logger: logger}
}

// ApplyTokenCreation records a newly created token, valuing it off its
// initial reserve snapshot. Replays are harmless: the upsert fills metadata
// once and refreshes reserves.
func (r *Reconciler) ApplyTokenCreation(ctx context.Context, token *domain.Token, usdPerSol float64) error {
	if token == nil {
		return nil
	}
	token.MarketCapUsd = MarketCapUsd(token.VirtualSolReserves, token.VirtualTokenReserves, token.TokenTotalSupply, usdPerSol)
	if err := r.tokens.Upsert(ctx, token); err != nil {
		return fmt.Errorf("apply token creation %s: %w", token.MintAddress, err)
	}
	return nil
}

// ApplyTrade records a trade and refines the mint's aggregate state. A
// duplicate trade key means the transaction was already recorded: the token
// aggregate is still refreshed (it is recomputed from the trade's reserve
// snapshot, so the rewrite converges), but the holder delta is skipped so
// balances are never double-counted.
func (r *Reconciler) ApplyTrade(ctx context.Context, trade *domain.Trade, hints *TokenHints, usdPerSol float64) error {
	if trade == nil {
		return nil
	}

	duplicate := false
	if err := r.trades.Insert(ctx, trade); err != nil {
		if !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("insert trade %s: %w", trade.Signature, err)
		}
		duplicate = true
		r.logger.Printf("[reconciler] trade %s already recorded", trade.Signature)
	}

	if err := r.updateToken(ctx, trade, hints, usdPerSol); err != nil {
		return err
	}

	if duplicate {
		return nil
	}

	delta := trade.TokenAmount
	if !trade.IsBuy {
		delta = delta.Neg()
	}
	if err := r.holders.ApplyDelta(ctx, trade.TokenMint, trade.UserWallet, delta, trade.Slot); err != nil {
		return fmt.Errorf("apply holder delta for %s: %w", trade.Signature, err)
	}

	return nil
}

// updateToken folds the trade's reserve snapshot into the token aggregate,
// synthesizing a row when the mint was never seen before (the indexer
// started mid-stream and missed the creation). Metadata and the curve
// address backfill from the hints whenever the stored row lacks them.
func (r *Reconciler) updateToken(ctx context.Context, trade *domain.Trade, hints *TokenHints, usdPerSol float64) error {
	token, err := r.tokens.GetByMint(ctx, trade.TokenMint)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("load token %s: %w", trade.TokenMint, err)
		}
		creator := trade.UserWallet
		token = &domain.Token{
			MintAddress:      trade.TokenMint,
			CreatorWallet:    &creator,
			TokenTotalSupply: decimal.NewFromInt(DefaultTotalSupply),
			CreatedAt:        trade.Timestamp,
		}
	}

	if hints != nil {
		if token.Name == nil {
			token.Name = hints.Name
		}
		if token.Symbol == nil {
			token.Symbol = hints.Symbol
		}
		if token.URI == nil {
			token.URI = hints.URI
		}
		if token.BondingCurveAddress == nil {
			token.BondingCurveAddress = hints.BondingCurveAddress
		}
	}

	token.VirtualSolReserves = trade.VirtualSolReserves
	token.VirtualTokenReserves = trade.VirtualTokenReserves
	token.MarketCapUsd = MarketCapUsd(trade.VirtualSolReserves, trade.VirtualTokenReserves, token.TokenTotalSupply, usdPerSol)
	token.BondingCurveProgress = CurveProgress(trade.VirtualSolReserves)
	token.Complete = token.Complete || token.BondingCurveProgress.GreaterThanOrEqual(hundred)

	if err := r.tokens.Upsert(ctx, token); err != nil {
		return fmt.Errorf("upsert token %s: %w", trade.TokenMint, err)
	}
	return nil
}

// MarketCapUsd computes the fully-diluted valuation from the curve's spot
// price: (virtualSol / virtualToken) x totalSupply x usdPerSol, all in base
// units. Zero token reserves make the price undefined, so the cap collapses
// to zero rather than dividing by zero.
func MarketCapUsd(virtualSol, virtualToken, totalSupply decimal.Decimal, usdPerSol float64) decimal.Decimal {
	if virtualToken.IsZero() {
		return decimal.Zero
	}
	price := virtualSol.Div(virtualToken)
	return price.Mul(totalSupply).Mul(decimal.NewFromFloat(usdPerSol))
}

// CurveProgress maps the virtual SOL reserve onto a completion percentage,
// clamped to [0, 100].
func CurveProgress(virtualSol decimal.Decimal) decimal.Decimal {
	progress := virtualSol.Div(completeThreshold).Mul(hundred)
	if progress.IsNegative() {
		return decimal.Zero
	}
	if progress.GreaterThan(hundred) {
		return hundred
	}
	return progress
}
