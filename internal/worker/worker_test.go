package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"pumpfun-indexer/internal/bus/membus"
	"pumpfun-indexer/internal/domain"
	"pumpfun-indexer/internal/parser"
	"pumpfun-indexer/internal/reconciler"
	"pumpfun-indexer/internal/solana"
	"pumpfun-indexer/internal/storage/memory"
)

const (
	testMint   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	testWallet = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	testCurve  = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
)

func strPtr(s string) *string { return &s }

// fakeRPC serves canned transactions by signature.
type fakeRPC struct {
	mu  sync.Mutex
	txs map[string]*solana.Transaction
}

func (f *fakeRPC) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.txs[signature]
	if !ok {
		return nil, fmt.Errorf("%w: %s", solana.ErrNotFoundAfterRetries, signature)
	}
	return tx, nil
}

type fixedPrice float64

func (p fixedPrice) GetUsdPrice(context.Context) (float64, error) { return float64(p), nil }

type failingPrice struct{}

func (failingPrice) GetUsdPrice(context.Context) (float64, error) {
	return 0, errors.New("quote unavailable")
}

// buyTx builds a resolvable buy transaction for the fake RPC.
func buyTx(sig string, slot int64) *solana.Transaction {
	blockTime := int64(1700000000)
	return &solana.Transaction{
		Slot:      slot,
		BlockTime: &blockTime,
		Transaction: solana.TransactionData{
			Signatures: []string{sig},
			Message: solana.TransactionMessage{
				AccountKeys: []solana.AccountKey{
					{Pubkey: testWallet, Signer: true, Writable: true},
					{Pubkey: testCurve, Writable: true},
					{Pubkey: testMint, Writable: true},
				},
				Instructions: []solana.Instruction{
					{ProgramID: parser.PumpFunProgramID},
				},
			},
		},
		Meta: &solana.TransactionMeta{
			PreBalances:  []uint64{10_000_000_000, 50_000_000_000, 0},
			PostBalances: []uint64{9_000_000_000, 51_000_000_000, 0},
			PreTokenBalances: []solana.TokenBalance{
				{AccountIndex: 0, Mint: testMint, Owner: strPtr(testWallet),
					UITokenAmount: solana.UITokenAmount{Amount: "1000", Decimals: 6}},
			},
			PostTokenBalances: []solana.TokenBalance{
				{AccountIndex: 0, Mint: testMint, Owner: strPtr(testWallet),
					UITokenAmount: solana.UITokenAmount{Amount: "1500", Decimals: 6}},
				{AccountIndex: 5, Mint: testMint, Owner: strPtr(testCurve),
					UITokenAmount: solana.UITokenAmount{Amount: "800000000000000", Decimals: 6}},
			},
		},
	}
}

type testHarness struct {
	bus     *membus.Bus
	worker  *Worker
	tokens  *memory.TokenStore
	trades  *memory.TradeStore
	holders *memory.HolderStore
	records *memory.TxRecordStore
	points  *memory.PricePointStore
}

func newHarness(rpc *fakeRPC, prices PriceSource) *testHarness {
	h := &testHarness{
		bus:     membus.New(0),
		tokens:  memory.NewTokenStore(),
		trades:  memory.NewTradeStore(),
		holders: memory.NewHolderStore(),
		records: memory.NewTxRecordStore(),
		points:  memory.NewPricePointStore(),
	}
	rec := reconciler.New(h.tokens, h.trades, h.holders, nil)
	h.worker = New(h.bus, rpc, prices, parser.New(parser.DefaultConfig()), rec, h.records, nil,
		WithConcurrency(2), WithPricePoints(h.points))
	return h
}

func TestWorkerProcessesTrade(t *testing.T) {
	rpc := &fakeRPC{txs: map[string]*solana.Transaction{"sig1": buyTx("sig1", 100)}}
	h := newHarness(rpc, fixedPrice(150))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.worker.Run(ctx) }()

	if err := h.bus.Publish(ctx, domain.SignatureEnvelope{Signature: "sig1"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	waitFor(t, func() bool {
		trades, _ := h.trades.RecentByMint(ctx, testMint, 1)
		return len(trades) == 1
	})
	cancel()
	<-done

	trades, _ := h.trades.RecentByMint(context.Background(), testMint, 10)
	if trades[0].Signature != "sig1" || !trades[0].IsBuy {
		t.Errorf("trade = %+v", trades[0])
	}

	token, err := h.tokens.GetByMint(context.Background(), testMint)
	if err != nil {
		t.Fatalf("token should exist: %v", err)
	}
	if token.MarketCapUsd.IsZero() {
		t.Error("market cap should be computed")
	}

	holder, err := h.holders.Get(context.Background(), testMint, testWallet)
	if err != nil {
		t.Fatalf("holder should exist: %v", err)
	}
	if holder.Balance.IntPart() != 500 {
		t.Errorf("balance = %s, want 500", holder.Balance)
	}

	if _, err := h.records.GetBySignature(context.Background(), "sig1"); err != nil {
		t.Errorf("audit record missing: %v", err)
	}

	points, _ := h.points.GetByMint(context.Background(), testMint)
	if len(points) != 1 {
		t.Errorf("expected 1 price point, got %d", len(points))
	}
}

func TestWorkerBackfillsTokenFromTransaction(t *testing.T) {
	tx := buyTx("sig1", 100)
	tx.Meta.LogMessages = []string{
		"Program log: Instruction: Buy",
		`Program data: name: FooCoin, symbol: FOO, uri: https://x/y.json`,
	}
	rpc := &fakeRPC{txs: map[string]*solana.Transaction{"sig1": tx}}
	h := newHarness(rpc, fixedPrice(150))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.worker.Run(ctx) }()

	_ = h.bus.Publish(ctx, domain.SignatureEnvelope{Signature: "sig1"})

	waitFor(t, func() bool {
		trades, _ := h.trades.RecentByMint(ctx, testMint, 1)
		return len(trades) == 1
	})
	cancel()
	<-done

	// A trade on a mint with no creation event still yields a full token row:
	// metadata from the transaction logs, curve address from the account keys,
	// creator defaulted to the trading wallet.
	token, err := h.tokens.GetByMint(context.Background(), testMint)
	if err != nil {
		t.Fatalf("token should exist: %v", err)
	}
	if token.Name == nil || *token.Name != "FooCoin" {
		t.Errorf("Name = %v, want FooCoin", token.Name)
	}
	if token.Symbol == nil || *token.Symbol != "FOO" {
		t.Errorf("Symbol = %v, want FOO", token.Symbol)
	}
	if token.URI == nil || *token.URI != "https://x/y.json" {
		t.Errorf("URI = %v", token.URI)
	}
	if token.BondingCurveAddress == nil || *token.BondingCurveAddress != testCurve {
		t.Errorf("BondingCurveAddress = %v, want %s", token.BondingCurveAddress, testCurve)
	}
	if token.CreatorWallet == nil || *token.CreatorWallet != testWallet {
		t.Errorf("CreatorWallet = %v, want %s", token.CreatorWallet, testWallet)
	}
}

func TestWorkerSkipsUnresolvable(t *testing.T) {
	rpc := &fakeRPC{txs: map[string]*solana.Transaction{"good": buyTx("good", 100)}}
	h := newHarness(rpc, fixedPrice(150))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.worker.Run(ctx) }()

	// The missing signature must not block the good one behind it.
	_ = h.bus.Publish(ctx, domain.SignatureEnvelope{Signature: "missing"})
	_ = h.bus.Publish(ctx, domain.SignatureEnvelope{Signature: "good"})

	waitFor(t, func() bool {
		trades, _ := h.trades.RecentByMint(ctx, testMint, 1)
		return len(trades) == 1
	})
	cancel()
	<-done
}

func TestWorkerIdempotentOnReplay(t *testing.T) {
	rpc := &fakeRPC{txs: map[string]*solana.Transaction{"sig1": buyTx("sig1", 100)}}
	h := newHarness(rpc, fixedPrice(150))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.worker.Run(ctx) }()

	_ = h.bus.Publish(ctx, domain.SignatureEnvelope{Signature: "sig1"})
	_ = h.bus.Publish(ctx, domain.SignatureEnvelope{Signature: "sig1"})

	waitFor(t, func() bool {
		_, err := h.records.GetBySignature(ctx, "sig1")
		return err == nil
	})
	// Give the replay a moment to complete before asserting.
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	holder, err := h.holders.Get(context.Background(), testMint, testWallet)
	if err != nil {
		t.Fatalf("holder should exist: %v", err)
	}
	if holder.Balance.IntPart() != 500 {
		t.Errorf("balance = %s, want 500 after replay", holder.Balance)
	}
}

func TestWorkerFailedTransactionIgnored(t *testing.T) {
	failed := buyTx("failed", 100)
	failed.Meta.Err = map[string]any{"InstructionError": []any{}}
	rpc := &fakeRPC{txs: map[string]*solana.Transaction{"failed": failed}}
	h := newHarness(rpc, fixedPrice(150))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.worker.Run(ctx) }()

	_ = h.bus.Publish(ctx, domain.SignatureEnvelope{Signature: "failed"})

	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	trades, _ := h.trades.RecentByMint(context.Background(), testMint, 10)
	if len(trades) != 0 {
		t.Errorf("failed tx must not produce trades, got %d", len(trades))
	}
}

func TestWorkerPriceFailureStillRecordsTrade(t *testing.T) {
	rpc := &fakeRPC{txs: map[string]*solana.Transaction{"sig1": buyTx("sig1", 100)}}
	h := newHarness(rpc, failingPrice{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.worker.Run(ctx) }()

	_ = h.bus.Publish(ctx, domain.SignatureEnvelope{Signature: "sig1"})

	waitFor(t, func() bool {
		trades, _ := h.trades.RecentByMint(ctx, testMint, 1)
		return len(trades) == 1
	})
	cancel()
	<-done

	trades, _ := h.trades.RecentByMint(context.Background(), testMint, 1)
	if !trades[0].PriceUsd.IsZero() {
		t.Errorf("usd price should be zero without a quote, got %s", trades[0].PriceUsd)
	}

	token, err := h.tokens.GetByMint(context.Background(), testMint)
	if err != nil {
		t.Fatalf("token should exist: %v", err)
	}
	if !token.MarketCapUsd.IsZero() {
		t.Errorf("market cap should be zero without a quote, got %s", token.MarketCapUsd)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
