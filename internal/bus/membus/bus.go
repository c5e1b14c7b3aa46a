// Package membus provides the in-process Bus used when the ingester and the
// workers share one process.
package membus

import (
	"context"
	"sync"

	"pumpfun-indexer/internal/bus"
	"pumpfun-indexer/internal/domain"
)

// DefaultCapacity is the bounded queue depth used when none is given.
const DefaultCapacity = 10000

// Bus is a bounded, lossy in-memory bus. When the queue is full, Publish
// drops the oldest buffered envelope rather than blocking the ingester's
// read loop; dropped envelopes are counted and may be missed trades.
type Bus struct {
	ch      chan domain.SignatureEnvelope
	mu      sync.Mutex
	closed  bool
	dropped uint64
}

// New creates an in-memory bus with the given capacity (<=0 uses the default).
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{ch: make(chan domain.SignatureEnvelope, capacity)}
}

// Compile-time interface check.
var _ bus.Bus = (*Bus)(nil)

// Publish enqueues an envelope, dropping the oldest one when full.
func (b *Bus) Publish(ctx context.Context, env domain.SignatureEnvelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return bus.ErrClosed
	}

	for {
		select {
		case b.ch <- env:
			return nil
		default:
		}
		select {
		case <-b.ch:
			b.dropped++
		default:
		}
	}
}

// Subscribe returns the shared delivery channel. With one subscriber each
// envelope is delivered exactly once; with several, to exactly one of them.
func (b *Bus) Subscribe(ctx context.Context) (<-chan domain.SignatureEnvelope, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, bus.ErrClosed
	}
	return b.ch, nil
}

// Dropped reports how many envelopes were discarded due to a full queue.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close closes the bus. Buffered envelopes remain readable until drained.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	close(b.ch)
	return nil
}
