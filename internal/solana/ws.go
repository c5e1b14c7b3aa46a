package solana

import (
	"context"
	"errors"
)

// ErrReconnectBudgetExceeded is surfaced on Fatal() when the client gives up
// reconnecting. The surrounding process must treat it as fatal.
var ErrReconnectBudgetExceeded = errors.New("websocket reconnect budget exceeded")

// WSClient defines the Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeLogs subscribes to program logs matching the filter.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	// Fatal delivers at most one terminal error once the reconnect budget
	// is exhausted. Subscription channels are closed at that point.
	Fatal() <-chan error

	// Close closes the WebSocket connection.
	Close() error
}

// LogsFilter defines the subscription filter for logsSubscribe.
type LogsFilter struct {
	// Mentions filters logs that mention any of these program IDs.
	Mentions []string
}

// LogNotification is one logsNotification message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       any
}

// JSON-RPC wire frames for the logsSubscribe protocol.

type wsRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

// wsSubscribeResponse confirms a subscription request; Result carries the
// server-assigned subscription ID.
type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string   `json:"signature"`
	Logs      []string `json:"logs"`
	Err       any      `json:"err"`
}
