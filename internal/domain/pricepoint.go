package domain

// PricePoint is one analytics sample per parsed trade, stored in ClickHouse
// for downstream charting. Not part of the reconciled state.
type PricePoint struct {
	Mint        string
	TimestampMs int64
	Slot        int64
	PriceUsd    float64
	SolVolume   float64 // lamports traded
	IsBuy       bool
}
