package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"pumpfun-indexer/internal/domain"
	"pumpfun-indexer/internal/storage"
)

// PricePointStore implements storage.PricePointStore using ClickHouse.
type PricePointStore struct {
	conn *Conn
}

// NewPricePointStore creates a new PricePointStore.
func NewPricePointStore(conn *Conn) *PricePointStore {
	return &PricePointStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PricePointStore = (*PricePointStore)(nil)

// InsertBulk appends price samples. ReplacingMergeTree deduplicates on
// merge, so replayed samples are tolerated rather than rejected.
func (s *PricePointStore) InsertBulk(ctx context.Context, points []*domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_points (
			mint, timestamp_ms, slot, price_usd, sol_volume, is_buy
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		var isBuy uint8
		if p.IsBuy {
			isBuy = 1
		}
		err = batch.Append(
			p.Mint, uint64(p.TimestampMs), uint64(p.Slot),
			p.PriceUsd, p.SolVolume, isBuy,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByMint retrieves all samples for a mint, ordered by timestamp ASC.
func (s *PricePointStore) GetByMint(ctx context.Context, mint string) ([]*domain.PricePoint, error) {
	query := `
		SELECT mint, timestamp_ms, slot, price_usd, sol_volume, is_buy
		FROM price_points
		WHERE mint = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// GetByTimeRange retrieves samples for a mint within [start, end] ms (inclusive).
func (s *PricePointStore) GetByTimeRange(ctx context.Context, mint string, startMs, endMs int64) ([]*domain.PricePoint, error) {
	query := `
		SELECT mint, timestamp_ms, slot, price_usd, sol_volume, is_buy
		FROM price_points
		WHERE mint = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, mint, uint64(startMs), uint64(endMs))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// scanPricePoints scans multiple rows.
func scanPricePoints(rows driver.Rows) ([]*domain.PricePoint, error) {
	var points []*domain.PricePoint

	for rows.Next() {
		var p domain.PricePoint
		var timestampMs, slot uint64
		var isBuy uint8

		err := rows.Scan(
			&p.Mint, &timestampMs, &slot,
			&p.PriceUsd, &p.SolVolume, &isBuy,
		)
		if err != nil {
			return nil, fmt.Errorf("scan price point row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		p.Slot = int64(slot)
		p.IsBuy = isBuy != 0
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price point rows: %w", err)
	}

	return points, nil
}
