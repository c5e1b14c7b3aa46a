package solana

import (
	"context"
	"errors"
)

// Resolver errors. A hard RPC-reported error is wrapped around ErrRPC and is
// not retried; exhausting the retry budget yields ErrNotFoundAfterRetries.
var (
	ErrNotFoundAfterRetries = errors.New("transaction not found after retries")
	ErrRPC                  = errors.New("rpc error")
)

// RPCClient resolves signatures into materialized transactions.
type RPCClient interface {
	// GetTransaction retrieves a transaction by signature with jsonParsed
	// encoding, retrying rate limits and not-yet-indexed results up to a
	// bounded attempt budget.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}
