// Package ingester bridges the Solana log stream onto the event bus. It is
// deliberately thin: detect a program signature, wrap it in an envelope,
// publish. All heavy lifting happens on the consumer side.
package ingester

import (
	"context"
	"fmt"
	"log"

	"pumpfun-indexer/internal/bus"
	"pumpfun-indexer/internal/domain"
	"pumpfun-indexer/internal/observability"
	"pumpfun-indexer/internal/solana"
)

// Ingester subscribes to program logs and publishes signature envelopes.
type Ingester struct {
	ws        solana.WSClient
	bus       bus.Bus
	programID string
	logger    *log.Logger
}

// New creates an ingester watching the given program.
func New(ws solana.WSClient, b bus.Bus, programID string, logger *log.Logger) *Ingester {
	if logger == nil {
		logger = log.Default()
	}
	return &Ingester{ws: ws, bus: b, programID: programID, logger: logger}
}

// Run streams notifications until the context is cancelled or the WebSocket
// exhausts its reconnect budget. Failed transactions are dropped here: their
// balance deltas are meaningless and resolving them wastes RPC quota.
func (i *Ingester) Run(ctx context.Context) error {
	notifications, err := i.ws.SubscribeLogs(ctx, solana.LogsFilter{
		Mentions: []string{i.programID},
	})
	if err != nil {
		return fmt.Errorf("subscribe logs: %w", err)
	}

	i.logger.Printf("[ingester] streaming logs for program %s", i.programID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-i.ws.Fatal():
			return fmt.Errorf("log stream lost: %w", err)

		case n, ok := <-notifications:
			if !ok {
				return fmt.Errorf("notification channel closed")
			}
			observability.RecordSignatureDetected()

			if n.Err != nil {
				observability.RecordFailedTxSkipped()
				continue
			}
			if n.Signature == "" {
				continue
			}

			envelope := domain.SignatureEnvelope{Signature: n.Signature}
			if err := i.bus.Publish(ctx, envelope); err != nil {
				return fmt.Errorf("publish %s: %w", n.Signature, err)
			}
			observability.RecordSignaturePublished()
		}
	}
}
