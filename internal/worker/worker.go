// Package worker drains signature envelopes from the bus and drives each
// transaction through resolve, parse and reconcile. Envelopes are processed
// concurrently up to a bound; one bad transaction never stalls the stream.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"pumpfun-indexer/internal/bus"
	"pumpfun-indexer/internal/domain"
	"pumpfun-indexer/internal/observability"
	"pumpfun-indexer/internal/parser"
	"pumpfun-indexer/internal/reconciler"
	"pumpfun-indexer/internal/solana"
	"pumpfun-indexer/internal/storage"
)

// DefaultConcurrency bounds the number of transactions in flight.
const DefaultConcurrency = 8

// PriceSource yields the current SOL/USD quote.
type PriceSource interface {
	GetUsdPrice(ctx context.Context) (float64, error)
}

// Worker consumes the bus and reconciles every resolvable transaction.
type Worker struct {
	bus         bus.Bus
	rpc         solana.RPCClient
	prices      PriceSource
	parser      *parser.Parser
	reconciler  *reconciler.Reconciler
	txRecords   storage.TxRecordStore
	pricePoints storage.PricePointStore // nil disables the analytics sink
	concurrency int
	logger      *log.Logger
}

// Option configures a Worker.
type Option func(*Worker)

// WithConcurrency bounds the number of envelopes processed in parallel.
func WithConcurrency(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// WithPricePoints enables the analytics sink.
func WithPricePoints(store storage.PricePointStore) Option {
	return func(w *Worker) { w.pricePoints = store }
}

// New creates a worker over the given collaborators.
func New(b bus.Bus, rpc solana.RPCClient, prices PriceSource, p *parser.Parser, rec *reconciler.Reconciler, txRecords storage.TxRecordStore, logger *log.Logger, opts ...Option) *Worker {
	if logger == nil {
		logger = log.Default()
	}
	w := &Worker{
		bus:         b,
		rpc:         rpc,
		prices:      prices,
		parser:      p,
		reconciler:  rec,
		txRecords:   txRecords,
		concurrency: DefaultConcurrency,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes envelopes until the context is cancelled or the bus closes.
// In-flight transactions finish before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	envelopes, err := w.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to bus: %w", err)
	}

	w.logger.Printf("[worker] consuming with concurrency %d", w.concurrency)

	sem := make(chan struct{}, w.concurrency)
	var wg sync.WaitGroup

	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case envelope, ok := <-envelopes:
			if !ok {
				return nil
			}
			if envelope.Signature == "" || envelope.Err != nil {
				continue
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}

			wg.Add(1)
			observability.DefaultMetrics.InFlightWorkers.Inc()
			go func(signature string) {
				defer func() {
					observability.DefaultMetrics.InFlightWorkers.Dec()
					<-sem
					wg.Done()
				}()
				w.process(ctx, signature)
			}(envelope.Signature)
		}
	}
}

// process handles one signature end to end. Errors are logged and counted,
// never propagated: the stream must keep moving.
func (w *Worker) process(ctx context.Context, signature string) {
	tx, err := w.rpc.GetTransaction(ctx, signature)
	if err != nil {
		if errors.Is(err, solana.ErrNotFoundAfterRetries) {
			observability.DefaultMetrics.TxNotFound.Inc()
		}
		observability.RecordProcessingError("resolve")
		observability.RecordProcessed("resolve_failed")
		w.logger.Printf("[worker] resolve %s: %v", signature, err)
		return
	}

	// Failed transactions slip through when the ingester saw no error in
	// the log notification; the resolved metadata is authoritative.
	if tx.Meta != nil && tx.Meta.Err != nil {
		observability.RecordProcessed("failed_tx")
		return
	}

	usdPerSol, err := w.prices.GetUsdPrice(ctx)
	if err != nil {
		// A missing quote zeroes USD figures but must not drop the trade.
		observability.RecordProcessingError("price")
		w.logger.Printf("[worker] price quote unavailable for %s: %v", signature, err)
		usdPerSol = 0
	}

	if token := w.parser.ParseTokenCreation(tx); token != nil {
		if err := w.reconciler.ApplyTokenCreation(ctx, token, usdPerSol); err != nil {
			observability.RecordProcessingError("reconcile")
			w.logger.Printf("[worker] apply creation %s: %v", signature, err)
			return
		}
		observability.DefaultMetrics.TokensCreated.Inc()
		w.logger.Printf("[worker] token created: %s", token.MintAddress)
	}

	trade := w.parser.ParseTrade(tx, usdPerSol)
	if trade != nil {
		if err := w.reconciler.ApplyTrade(ctx, trade, w.tokenHints(tx, trade.TokenMint), usdPerSol); err != nil {
			observability.RecordProcessingError("reconcile")
			w.logger.Printf("[worker] apply trade %s: %v", signature, err)
			return
		}
		observability.RecordTradeParsed(trade.IxName)
		w.sinkPricePoint(ctx, trade)
	}

	w.audit(ctx, tx, signature)

	observability.RecordProcessed("ok")
	observability.UpdateHighestSlot(tx.Slot)
	observability.DefaultMetrics.LastProcessedAt.Set(float64(time.Now().Unix()))
	if tx.BlockTime != nil {
		lag := time.Since(time.Unix(*tx.BlockTime, 0)).Seconds()
		if lag >= 0 {
			observability.DefaultMetrics.ProcessingLag.Observe(lag)
		}
	}
}

// tokenHints scrapes the transaction for token facts the reconciler can
// backfill when the mint's row lacks them. Everything here is best-effort.
func (w *Worker) tokenHints(tx *solana.Transaction, mint string) *reconciler.TokenHints {
	hints := &reconciler.TokenHints{
		BondingCurveAddress: w.parser.FindBondingCurveAddress(tx.Transaction.Message.AccountKeys, mint),
	}
	if tx.Meta != nil {
		meta := parser.ExtractMetadata(tx.Meta.LogMessages)
		hints.Name = meta.Name
		hints.Symbol = meta.Symbol
		hints.URI = meta.URI
	}
	return hints
}

// sinkPricePoint appends one analytics sample. Sink failures are counted
// but do not fail the transaction: reconciled state is the source of truth.
func (w *Worker) sinkPricePoint(ctx context.Context, trade *domain.Trade) {
	if w.pricePoints == nil {
		return
	}
	point := &domain.PricePoint{
		Mint:        trade.TokenMint,
		TimestampMs: trade.Timestamp.UnixMilli(),
		Slot:        trade.Slot,
		PriceUsd:    trade.PriceUsd.InexactFloat64(),
		SolVolume:   trade.SolAmount.InexactFloat64(),
		IsBuy:       trade.IsBuy,
	}
	if err := w.pricePoints.InsertBulk(ctx, []*domain.PricePoint{point}); err != nil {
		observability.RecordProcessingError("price_point")
		w.logger.Printf("[worker] sink price point %s: %v", trade.Signature, err)
	}
}

// audit records the processed transaction. Duplicates mean a replay and are
// not an error.
func (w *Worker) audit(ctx context.Context, tx *solana.Transaction, signature string) {
	if w.txRecords == nil {
		return
	}

	blockTime := time.Now().UTC()
	if tx.BlockTime != nil && *tx.BlockTime > 0 {
		blockTime = time.Unix(*tx.BlockTime, 0).UTC()
	}

	signer := ""
	for _, k := range tx.Transaction.Message.AccountKeys {
		if k.Signer {
			signer = k.Pubkey
			break
		}
	}

	record := &domain.TxRecord{
		Signature:        signature,
		Slot:             tx.Slot,
		BlockTime:        blockTime,
		Signer:           signer,
		Success:          tx.Meta == nil || tx.Meta.Err == nil,
		InstructionCount: len(tx.Transaction.Message.Instructions),
	}
	if err := w.txRecords.Insert(ctx, record); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		observability.RecordProcessingError("audit")
		w.logger.Printf("[worker] audit %s: %v", signature, err)
	}
}
