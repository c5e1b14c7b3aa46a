// Package bus carries signature envelopes from the ingester to the workers
// over a single logical topic with at-least-once delivery.
package bus

import (
	"context"
	"errors"

	"pumpfun-indexer/internal/domain"
)

// ErrClosed is returned by Publish after the bus has been closed.
var ErrClosed = errors.New("bus closed")

// Bus is a single-topic publish/subscribe channel for signature envelopes.
// At-least-once delivery; consumers must be idempotent downstream. No
// ordering guarantee is made across signatures.
type Bus interface {
	// Publish enqueues an envelope for delivery. It must not block
	// indefinitely.
	Publish(ctx context.Context, env domain.SignatureEnvelope) error

	// Subscribe returns a channel of envelopes. The channel closes when the
	// bus is closed or ctx is cancelled.
	Subscribe(ctx context.Context) (<-chan domain.SignatureEnvelope, error)

	// Close releases bus resources and closes subscriber channels.
	Close() error
}
