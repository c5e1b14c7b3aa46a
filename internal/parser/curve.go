package parser

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"pumpfun-indexer/internal/solana"
)

// Accounts that may appear in the candidate window but can never be a
// bonding curve.
var knownAddresses = map[string]struct{}{
	"11111111111111111111111111111111":             {}, // system program
	"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA":  {}, // token program
	"ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL": {}, // associated token program
	"SysvarRent111111111111111111111111111111111":  {}, // rent sysvar
	"Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1": {}, // pump.fun event authority
	PumpFunProgramID: {},
	SolMint:          {},
}

// Candidate window within the account key list. The program places the
// bonding curve among the leading writable accounts; positions outside this
// range are fee payers, sysvars or remaining accounts.
const (
	curveWindowStart = 3
	curveWindowEnd   = 7 // inclusive
)

// FindBondingCurveAddress guesses the bonding curve account from the
// transaction's account keys. A candidate must sit in the window, be
// writable, not be a signer, not be the mint or a well-known address, and
// decode to a 32-byte base58 key. Among candidates, program-derived
// addresses (points off the ed25519 curve) are preferred since the bonding
// curve is a PDA; if none qualifies, the first candidate wins.
//
// This is a heuristic: the instruction data is opaque here, so account
// positions stand in for decoded layouts. Returns nil when nothing matches.
func (p *Parser) FindBondingCurveAddress(keys []solana.AccountKey, mint string) *string {
	var first *string
	for i := curveWindowStart; i <= curveWindowEnd && i < len(keys); i++ {
		k := keys[i]
		if !k.Writable || k.Signer || len(k.Pubkey) != 44 {
			continue
		}
		if k.Pubkey == mint {
			continue
		}
		if _, known := knownAddresses[k.Pubkey]; known {
			continue
		}

		raw, err := base58.Decode(k.Pubkey)
		if err != nil || len(raw) != 32 {
			continue
		}

		addr := k.Pubkey
		if first == nil {
			first = &addr
		}
		if isOffCurve(raw) {
			return &addr
		}
	}
	return first
}

// isOffCurve reports whether the 32-byte key is not a valid ed25519 point,
// i.e. a program-derived address.
func isOffCurve(key []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(key)
	return err != nil
}
