// Package parser extracts trades and token creations from materialized
// transactions. All functions are pure: no I/O, deterministic for a given
// transaction and price.
package parser

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"pumpfun-indexer/internal/domain"
	"pumpfun-indexer/internal/solana"
)

// Well-known addresses.
const (
	// PumpFunProgramID is the pump.fun bonding-curve program.
	PumpFunProgramID = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	// SolMint is the wrapped SOL mint, excluded from trade scans.
	SolMint = "So11111111111111111111111111111111111111112"
)

// LamportsPerSol is the number of base units per SOL.
const LamportsPerSol = 1_000_000_000

// Config holds the protocol constants the parser depends on. These are
// conventions of the target program, surfaced as configuration so they can
// be validated against the live program rather than buried in the logic.
type Config struct {
	// ProgramID is the program of interest.
	ProgramID string
	// VirtualSolOffset is added to the real SOL reserve to obtain the
	// virtual reserve of the constant-product curve.
	VirtualSolOffset uint64
	// TokenTotalSupply is the fixed total supply assigned to new tokens,
	// in base units (1B tokens at 6 decimals).
	TokenTotalSupply uint64
}

// DefaultConfig returns the standard pump.fun constants.
func DefaultConfig() Config {
	return Config{
		ProgramID:        PumpFunProgramID,
		VirtualSolOffset: 30 * LamportsPerSol,
		TokenTotalSupply: 1_000_000_000_000_000,
	}
}

// Parser extracts economic facts from transactions.
type Parser struct {
	cfg Config
}

// New creates a parser. A zero-value config falls back to the defaults.
func New(cfg Config) *Parser {
	def := DefaultConfig()
	if cfg.ProgramID == "" {
		cfg.ProgramID = def.ProgramID
	}
	if cfg.VirtualSolOffset == 0 {
		cfg.VirtualSolOffset = def.VirtualSolOffset
	}
	if cfg.TokenTotalSupply == 0 {
		cfg.TokenTotalSupply = def.TokenTotalSupply
	}
	return &Parser{cfg: cfg}
}

// ParseTrade extracts at most one trade from the transaction. It returns nil
// when the transaction does not touch the program of interest or carries no
// token balance change (e.g. an administrative instruction).
//
// The scan walks post token balances in metadata order and takes the first
// entry with a non-zero delta against its matching pre balance. If one
// instruction set legitimately moves several mints, only the first is
// reported.
func (p *Parser) ParseTrade(tx *solana.Transaction, usdPerSol float64) *domain.Trade {
	if tx == nil || tx.Meta == nil || !p.touchesProgram(tx) {
		return nil
	}

	sig := tx.Signature()
	if sig == "" {
		return nil
	}

	ts := blockTimestamp(tx)

	for _, post := range tx.Meta.PostTokenBalances {
		if post.Mint == SolMint {
			continue
		}

		preAmount := findPreAmount(tx.Meta.PreTokenBalances, post.AccountIndex, post.Mint)
		postAmount := parseAmount(post.UITokenAmount.Amount)

		diff := postAmount - preAmount
		if diff == 0 {
			continue
		}

		tokenMint := post.Mint
		userWallet := ""
		if post.Owner != nil {
			userWallet = *post.Owner
		}

		isBuy := diff > 0
		tokenAmount := diff
		if tokenAmount < 0 {
			tokenAmount = -tokenAmount
		}

		solAmount := walletLamportChange(tx, userWallet)

		realSol, realToken := findCurveReserves(tx, tokenMint, post.AccountIndex)
		virtualSol := realSol + p.cfg.VirtualSolOffset
		virtualToken := realToken

		decToken := decimal.NewFromInt(tokenAmount)
		decSol := decimal.NewFromUint64(solAmount)

		priceSol := decimal.Zero
		if !decToken.IsZero() {
			priceSol = decSol.Div(decToken)
		}
		priceUsd := priceSol.Mul(decimal.NewFromFloat(usdPerSol))

		ixName := domain.IxSell
		if isBuy {
			ixName = domain.IxBuy
		}

		return &domain.Trade{
			Signature:            sig,
			TokenMint:            tokenMint,
			SolAmount:            decSol,
			TokenAmount:          decToken,
			IsBuy:                isBuy,
			UserWallet:           userWallet,
			Timestamp:            ts,
			VirtualSolReserves:   decimal.NewFromUint64(virtualSol),
			VirtualTokenReserves: decimal.NewFromUint64(virtualToken),
			PriceSol:             priceSol,
			PriceUsd:             priceUsd,
			TrackVolume:          true,
			IxName:               ixName,
			Slot:                 tx.Slot,
		}
	}

	return nil
}

// ParseTokenCreation extracts at most one token-creation event: a mint
// present in post balances with no pre-balance entry at all. Metadata is
// scraped best-effort from the log lines; absence of any field is not an
// error.
func (p *Parser) ParseTokenCreation(tx *solana.Transaction) *domain.Token {
	if tx == nil || tx.Meta == nil || !p.touchesProgram(tx) {
		return nil
	}

	for _, post := range tx.Meta.PostTokenBalances {
		if post.Mint == SolMint {
			continue
		}
		if hasMint(tx.Meta.PreTokenBalances, post.Mint) {
			continue
		}

		// Brand-new mint.
		creator := firstSigner(tx)
		meta := ExtractMetadata(tx.Meta.LogMessages)
		curveAddr := p.FindBondingCurveAddress(tx.Transaction.Message.AccountKeys, post.Mint)

		realSol, realToken := findCurveReserves(tx, post.Mint, -1)
		virtualSol := realSol + p.cfg.VirtualSolOffset
		virtualToken := realToken

		token := &domain.Token{
			MintAddress:          post.Mint,
			Name:                 meta.Name,
			Symbol:               meta.Symbol,
			URI:                  meta.URI,
			BondingCurveAddress:  curveAddr,
			VirtualTokenReserves: decimal.NewFromUint64(virtualToken),
			VirtualSolReserves:   decimal.NewFromUint64(virtualSol),
			RealTokenReserves:    decimal.NewFromUint64(realToken),
			TokenTotalSupply:     decimal.NewFromUint64(p.cfg.TokenTotalSupply),
			MarketCapUsd:         decimal.Zero,
			BondingCurveProgress: decimal.Zero,
			Complete:             false,
			CreatedAt:            blockTimestamp(tx),
		}
		if creator != "" {
			token.CreatorWallet = &creator
		}
		return token
	}

	return nil
}

// touchesProgram reports whether any instruction targets the program of
// interest.
func (p *Parser) touchesProgram(tx *solana.Transaction) bool {
	for _, ix := range tx.Transaction.Message.Instructions {
		if ix.ProgramID == p.cfg.ProgramID {
			return true
		}
	}
	return false
}

// blockTimestamp resolves the event time: block time when present, current
// time otherwise.
func blockTimestamp(tx *solana.Transaction) time.Time {
	if tx.BlockTime != nil && *tx.BlockTime > 0 {
		return time.Unix(*tx.BlockTime, 0).UTC()
	}
	return time.Now().UTC()
}

// parseAmount converts a raw token amount string; malformed input counts as
// zero, matching the scan's treatment of absent balances.
func parseAmount(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// findPreAmount returns the pre-balance amount for (accountIndex, mint),
// defaulting to zero when no entry matches.
func findPreAmount(pre []solana.TokenBalance, accountIndex int, mint string) int64 {
	for _, b := range pre {
		if b.AccountIndex == accountIndex && b.Mint == mint {
			return parseAmount(b.UITokenAmount.Amount)
		}
	}
	return 0
}

// hasMint reports whether any balance entry references the mint.
func hasMint(balances []solana.TokenBalance, mint string) bool {
	for _, b := range balances {
		if b.Mint == mint {
			return true
		}
	}
	return false
}

// firstSigner returns the first signer account, or "".
func firstSigner(tx *solana.Transaction) string {
	for _, k := range tx.Transaction.Message.AccountKeys {
		if k.Signer {
			return k.Pubkey
		}
	}
	return ""
}

// walletLamportChange returns |pre - post| of the wallet's lamport balance.
func walletLamportChange(tx *solana.Transaction, wallet string) uint64 {
	idx := tx.Transaction.Message.AccountIndexOf(wallet)
	if idx < 0 || tx.Meta == nil {
		return 0
	}

	var pre, post int64
	if idx < len(tx.Meta.PreBalances) {
		pre = int64(tx.Meta.PreBalances[idx])
	}
	if idx < len(tx.Meta.PostBalances) {
		post = int64(tx.Meta.PostBalances[idx])
	}

	diff := pre - post
	if diff < 0 {
		diff = -diff
	}
	return uint64(diff)
}

// findCurveReserves locates the bonding curve's token account: a post
// balance for the same mint held by an account other than the trader's.
// Returns (SOL reserve of its owner, token reserve), both zero when no such
// account is found. Pass traderIndex -1 when there is no trader account.
func findCurveReserves(tx *solana.Transaction, mint string, traderIndex int) (realSol, realToken uint64) {
	if tx.Meta == nil {
		return 0, 0
	}

	for _, post := range tx.Meta.PostTokenBalances {
		if post.Mint != mint || post.AccountIndex == traderIndex {
			continue
		}

		amount := parseAmount(post.UITokenAmount.Amount)
		if amount < 0 {
			amount = 0
		}
		realToken = uint64(amount)

		if post.Owner != nil {
			ownerIdx := tx.Transaction.Message.AccountIndexOf(*post.Owner)
			if ownerIdx >= 0 && ownerIdx < len(tx.Meta.PostBalances) {
				realSol = tx.Meta.PostBalances[ownerIdx]
			}
		}
		return realSol, realToken
	}

	return 0, 0
}
