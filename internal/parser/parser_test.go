package parser

import (
	"testing"
	"time"

	"pumpfun-indexer/internal/domain"
	"pumpfun-indexer/internal/solana"
)

const (
	testMint   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	testWallet = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	testCurve  = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	testOther  = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
)

func strPtr(s string) *string { return &s }

// tradeTx builds a buy/sell transaction: account 0 is the signer wallet,
// account 1 the curve owner, instruction 0 targets the program.
func tradeTx(preAmount, postAmount string, walletPre, walletPost uint64) *solana.Transaction {
	blockTime := int64(1700000000)
	return &solana.Transaction{
		Slot:      1234,
		BlockTime: &blockTime,
		Transaction: solana.TransactionData{
			Signatures: []string{"sig-1"},
			Message: solana.TransactionMessage{
				AccountKeys: []solana.AccountKey{
					{Pubkey: testWallet, Signer: true, Writable: true},
					{Pubkey: testCurve, Writable: true},
					{Pubkey: testMint, Writable: true},
				},
				Instructions: []solana.Instruction{
					{ProgramID: PumpFunProgramID},
				},
			},
		},
		Meta: &solana.TransactionMeta{
			PreBalances:  []uint64{walletPre, 50 * LamportsPerSol, 0},
			PostBalances: []uint64{walletPost, 51 * LamportsPerSol, 0},
			PreTokenBalances: []solana.TokenBalance{
				{AccountIndex: 0, Mint: testMint, Owner: strPtr(testWallet),
					UITokenAmount: solana.UITokenAmount{Amount: preAmount, Decimals: 6}},
			},
			PostTokenBalances: []solana.TokenBalance{
				{AccountIndex: 0, Mint: testMint, Owner: strPtr(testWallet),
					UITokenAmount: solana.UITokenAmount{Amount: postAmount, Decimals: 6}},
				{AccountIndex: 5, Mint: testMint, Owner: strPtr(testCurve),
					UITokenAmount: solana.UITokenAmount{Amount: "800000000000000", Decimals: 6}},
			},
		},
	}
}

func TestParseTradeBuy(t *testing.T) {
	p := New(DefaultConfig())
	tx := tradeTx("1000", "1500", 10*LamportsPerSol, 9*LamportsPerSol)

	trade := p.ParseTrade(tx, 150.0)
	if trade == nil {
		t.Fatal("expected a trade")
	}
	if !trade.IsBuy {
		t.Error("expected buy")
	}
	if trade.IxName != domain.IxBuy {
		t.Errorf("ix name = %q, want %q", trade.IxName, domain.IxBuy)
	}
	if got := trade.TokenAmount.IntPart(); got != 500 {
		t.Errorf("token amount = %d, want 500", got)
	}
	if got := trade.SolAmount.IntPart(); got != LamportsPerSol {
		t.Errorf("sol amount = %d, want %d", got, int64(LamportsPerSol))
	}
	if trade.TokenMint != testMint {
		t.Errorf("mint = %q, want %q", trade.TokenMint, testMint)
	}
	if trade.UserWallet != testWallet {
		t.Errorf("wallet = %q, want %q", trade.UserWallet, testWallet)
	}
	if trade.Signature != "sig-1" {
		t.Errorf("signature = %q", trade.Signature)
	}
	if trade.Slot != 1234 {
		t.Errorf("slot = %d", trade.Slot)
	}
	if want := time.Unix(1700000000, 0).UTC(); !trade.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", trade.Timestamp, want)
	}
}

func TestParseTradeSell(t *testing.T) {
	p := New(DefaultConfig())
	tx := tradeTx("1500", "1000", 9*LamportsPerSol, 10*LamportsPerSol)

	trade := p.ParseTrade(tx, 150.0)
	if trade == nil {
		t.Fatal("expected a trade")
	}
	if trade.IsBuy {
		t.Error("expected sell")
	}
	if trade.IxName != domain.IxSell {
		t.Errorf("ix name = %q, want %q", trade.IxName, domain.IxSell)
	}
	if got := trade.TokenAmount.IntPart(); got != 500 {
		t.Errorf("token amount = %d, want 500", got)
	}
}

func TestParseTradeVirtualReserves(t *testing.T) {
	p := New(DefaultConfig())
	tx := tradeTx("1000", "1500", 10*LamportsPerSol, 9*LamportsPerSol)

	trade := p.ParseTrade(tx, 150.0)
	if trade == nil {
		t.Fatal("expected a trade")
	}
	// Real curve SOL is account 1's post balance, plus the virtual offset.
	wantSol := int64((51 + 30) * LamportsPerSol)
	if got := trade.VirtualSolReserves.IntPart(); got != wantSol {
		t.Errorf("virtual sol = %d, want %d", got, wantSol)
	}
	if got := trade.VirtualTokenReserves.IntPart(); got != 800000000000000 {
		t.Errorf("virtual token = %d, want 800000000000000", got)
	}
}

func TestParseTradePricing(t *testing.T) {
	p := New(DefaultConfig())
	tx := tradeTx("0", "2000000000", 11*LamportsPerSol, 10*LamportsPerSol)

	trade := p.ParseTrade(tx, 100.0)
	if trade == nil {
		t.Fatal("expected a trade")
	}
	// 1e9 lamports for 2e9 base units: 0.5 lamports per unit, 50 usd.
	if got := trade.PriceSol.InexactFloat64(); got != 0.5 {
		t.Errorf("price sol = %v, want 0.5", got)
	}
	if got := trade.PriceUsd.InexactFloat64(); got != 50.0 {
		t.Errorf("price usd = %v, want 50", got)
	}
}

func TestParseTradeNoDelta(t *testing.T) {
	p := New(DefaultConfig())
	tx := tradeTx("1000", "1000", 10*LamportsPerSol, 10*LamportsPerSol)
	// The curve account has no pre entry, so it still counts as a delta.
	// Restrict post balances to the unchanged wallet entry.
	tx.Meta.PostTokenBalances = tx.Meta.PostTokenBalances[:1]

	if trade := p.ParseTrade(tx, 150.0); trade != nil {
		t.Errorf("expected nil, got %+v", trade)
	}
}

func TestParseTradeIgnoresOtherPrograms(t *testing.T) {
	p := New(DefaultConfig())
	tx := tradeTx("1000", "1500", 10*LamportsPerSol, 9*LamportsPerSol)
	tx.Transaction.Message.Instructions[0].ProgramID = testOther

	if trade := p.ParseTrade(tx, 150.0); trade != nil {
		t.Errorf("expected nil for foreign program, got %+v", trade)
	}
}

func TestParseTradeSkipsWrappedSol(t *testing.T) {
	p := New(DefaultConfig())
	tx := tradeTx("1000", "1500", 10*LamportsPerSol, 9*LamportsPerSol)
	for i := range tx.Meta.PreTokenBalances {
		tx.Meta.PreTokenBalances[i].Mint = SolMint
	}
	for i := range tx.Meta.PostTokenBalances {
		tx.Meta.PostTokenBalances[i].Mint = SolMint
	}

	if trade := p.ParseTrade(tx, 150.0); trade != nil {
		t.Errorf("expected nil for wSOL-only transaction, got %+v", trade)
	}
}

func TestParseTradeMalformedAmount(t *testing.T) {
	p := New(DefaultConfig())
	tx := tradeTx("not-a-number", "1500", 10*LamportsPerSol, 9*LamportsPerSol)

	trade := p.ParseTrade(tx, 150.0)
	if trade == nil {
		t.Fatal("expected a trade")
	}
	// Malformed pre balance counts as zero, so the whole post is the delta.
	if got := trade.TokenAmount.IntPart(); got != 1500 {
		t.Errorf("token amount = %d, want 1500", got)
	}
}

func TestParseTradeNilInputs(t *testing.T) {
	p := New(DefaultConfig())
	if trade := p.ParseTrade(nil, 150.0); trade != nil {
		t.Error("nil transaction should produce nil")
	}
	tx := tradeTx("1000", "1500", 10*LamportsPerSol, 9*LamportsPerSol)
	tx.Meta = nil
	if trade := p.ParseTrade(tx, 150.0); trade != nil {
		t.Error("missing meta should produce nil")
	}
}

func TestParseTokenCreation(t *testing.T) {
	p := New(DefaultConfig())
	blockTime := int64(1700000000)
	tx := &solana.Transaction{
		Slot:      99,
		BlockTime: &blockTime,
		Transaction: solana.TransactionData{
			Signatures: []string{"sig-create"},
			Message: solana.TransactionMessage{
				AccountKeys: []solana.AccountKey{
					{Pubkey: testWallet, Signer: true, Writable: true},
					{Pubkey: testOther, Writable: true},
					{Pubkey: testMint, Writable: true},
					{Pubkey: testCurve, Writable: true},
				},
				Instructions: []solana.Instruction{
					{ProgramID: PumpFunProgramID},
				},
			},
		},
		Meta: &solana.TransactionMeta{
			PreBalances:  []uint64{10 * LamportsPerSol, 0, 0, 0},
			PostBalances: []uint64{8 * LamportsPerSol, 0, 0, 2 * LamportsPerSol},
			PostTokenBalances: []solana.TokenBalance{
				{AccountIndex: 3, Mint: testMint, Owner: strPtr(testCurve),
					UITokenAmount: solana.UITokenAmount{Amount: "793100000000000", Decimals: 6}},
			},
			LogMessages: []string{
				"Program log: Instruction: Create",
				"Program log: name: FooCoin, symbol: FOO, uri: https://x/y.json",
			},
		},
	}

	token := p.ParseTokenCreation(tx)
	if token == nil {
		t.Fatal("expected a token")
	}
	if token.MintAddress != testMint {
		t.Errorf("mint = %q, want %q", token.MintAddress, testMint)
	}
	if token.Name == nil || *token.Name != "FooCoin" {
		t.Errorf("name = %v, want FooCoin", token.Name)
	}
	if token.Symbol == nil || *token.Symbol != "FOO" {
		t.Errorf("symbol = %v, want FOO", token.Symbol)
	}
	if token.URI == nil || *token.URI != "https://x/y.json" {
		t.Errorf("uri = %v, want https://x/y.json", token.URI)
	}
	if token.CreatorWallet == nil || *token.CreatorWallet != testWallet {
		t.Errorf("creator = %v, want %q", token.CreatorWallet, testWallet)
	}
	if token.Complete {
		t.Error("new token must not be complete")
	}
	if got := token.RealTokenReserves.IntPart(); got != 793100000000000 {
		t.Errorf("real token reserves = %d", got)
	}
	wantSol := int64((2 + 30) * LamportsPerSol)
	if got := token.VirtualSolReserves.IntPart(); got != wantSol {
		t.Errorf("virtual sol = %d, want %d", got, wantSol)
	}
	if got := token.TokenTotalSupply.IntPart(); got != 1_000_000_000_000_000 {
		t.Errorf("total supply = %d", got)
	}
}

func TestParseTokenCreationExistingMint(t *testing.T) {
	p := New(DefaultConfig())
	tx := tradeTx("1000", "1500", 10*LamportsPerSol, 9*LamportsPerSol)
	// The curve post balance has no pre entry but the mint itself does,
	// so this is a trade on an existing token, not a creation.
	if token := p.ParseTokenCreation(tx); token != nil {
		t.Errorf("expected nil for existing mint, got %+v", token)
	}
}
