package solana

import "encoding/json"

// Transaction is a fully materialized transaction as returned by
// getTransaction with jsonParsed encoding. Immutable once fetched.
type Transaction struct {
	Slot        int64            `json:"slot"`
	BlockTime   *int64           `json:"blockTime"`
	Transaction TransactionData  `json:"transaction"`
	Meta        *TransactionMeta `json:"meta"`
}

// TransactionData holds signatures and the parsed message.
type TransactionData struct {
	Signatures []string           `json:"signatures"`
	Message    TransactionMessage `json:"message"`
}

// TransactionMessage is the parsed message body.
type TransactionMessage struct {
	AccountKeys     []AccountKey  `json:"accountKeys"`
	Instructions    []Instruction `json:"instructions"`
	RecentBlockhash string        `json:"recentBlockhash"`
}

// AccountKey is one entry of the parsed account-keys list.
type AccountKey struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}

// Instruction may be parsed (JSON) or raw (base58 data), depending on
// whether the RPC provider recognizes the program.
type Instruction struct {
	ProgramID string          `json:"programId"`
	Accounts  []string        `json:"accounts,omitempty"`
	Data      string          `json:"data,omitempty"`
	Parsed    json.RawMessage `json:"parsed,omitempty"`
}

// TransactionMeta carries balance snapshots and log output.
type TransactionMeta struct {
	Err               any            `json:"err"`
	Fee               uint64         `json:"fee"`
	PreBalances       []uint64       `json:"preBalances"`
	PostBalances      []uint64       `json:"postBalances"`
	PreTokenBalances  []TokenBalance `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance `json:"postTokenBalances"`
	LogMessages       []string       `json:"logMessages"`
}

// TokenBalance is a pre/post token balance entry, indexed into accountKeys.
type TokenBalance struct {
	AccountIndex  int           `json:"accountIndex"`
	Mint          string        `json:"mint"`
	Owner         *string       `json:"owner"`
	UITokenAmount UITokenAmount `json:"uiTokenAmount"`
}

// UITokenAmount carries the raw amount string and decimals.
type UITokenAmount struct {
	Amount         string   `json:"amount"`
	Decimals       uint8    `json:"decimals"`
	UIAmount       *float64 `json:"uiAmount"`
	UIAmountString string   `json:"uiAmountString"`
}

// Signature returns the transaction's primary signature, or "" if missing.
func (t *Transaction) Signature() string {
	if len(t.Transaction.Signatures) == 0 {
		return ""
	}
	return t.Transaction.Signatures[0]
}

// AccountIndexOf returns the position of pubkey in the account-keys list,
// or -1 if absent.
func (m *TransactionMessage) AccountIndexOf(pubkey string) int {
	for i, k := range m.AccountKeys {
		if k.Pubkey == pubkey {
			return i
		}
	}
	return -1
}
