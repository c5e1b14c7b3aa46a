// Package redisbus provides the cross-process Bus over Redis Pub/Sub, used
// when the ingester and the workers are deployed separately.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"pumpfun-indexer/internal/bus"
	"pumpfun-indexer/internal/domain"
)

// DefaultChannel is the Pub/Sub channel name used when none is configured.
const DefaultChannel = "solana:transactions"

// Bus publishes and subscribes JSON signature envelopes on one Redis
// Pub/Sub channel. Redis Pub/Sub is fire-and-forget: envelopes published
// while no worker is subscribed are lost, which downstream idempotence
// tolerates.
type Bus struct {
	rdb     *redis.Client
	channel string
	logger  *log.Logger
	closed  atomic.Bool
}

// New creates a Redis-backed bus and verifies connectivity.
func New(ctx context.Context, redisURL, channel string, logger *log.Logger) (*Bus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = log.Default()
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Bus{rdb: rdb, channel: channel, logger: logger}, nil
}

// Compile-time interface check.
var _ bus.Bus = (*Bus)(nil)

// Publish sends the envelope as JSON on the configured channel.
func (b *Bus) Publish(ctx context.Context, env domain.SignatureEnvelope) error {
	if b.closed.Load() {
		return bus.ErrClosed
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", b.channel, err)
	}
	return nil
}

// Subscribe creates a Pub/Sub subscription and returns a channel of decoded
// envelopes. Malformed payloads are logged and skipped. The channel closes
// when ctx is cancelled or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan domain.SignatureEnvelope, error) {
	if b.closed.Load() {
		return nil, bus.ErrClosed
	}

	pubsub := b.rdb.Subscribe(ctx, b.channel)

	// Receive the confirmation so a subscription failure surfaces here
	// rather than as a silently empty channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}

	out := make(chan domain.SignatureEnvelope, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env domain.SignatureEnvelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					b.logger.Printf("[bus] skip malformed envelope: %v", err)
					continue
				}
				select {
				case out <- env:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close closes the underlying Redis client.
func (b *Bus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.rdb.Close()
}
