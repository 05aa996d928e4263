package clickhouse

import (
	"context"
	"fmt"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/domain"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/storage"
)

// RateTimeseriesStore implements storage.RateTimeseriesStore using ClickHouse.
type RateTimeseriesStore struct {
	conn *Conn
}

// NewRateTimeseriesStore creates a new RateTimeseriesStore.
func NewRateTimeseriesStore(conn *Conn) *RateTimeseriesStore {
	return &RateTimeseriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RateTimeseriesStore = (*RateTimeseriesStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (pair_id, timestamp_ms).
func (s *RateTimeseriesStore) InsertBulk(ctx context.Context, points []*domain.RatePoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		pairID      string
		timestampMs int64
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		k := key{p.PairID, p.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.PairID, p.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO rate_timeseries (
			pair_id, timestamp_ms, period, phase, percent_completed, rate, target_rate, max_amount_out
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.PairID, uint64(p.TimestampMs), uint64(p.Period), uint8(p.Phase),
			p.PercentCompleted, p.Rate, p.TargetRate, p.MaxAmountOut,
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

// GetByPairID retrieves all points for a pair, ordered by timestamp ASC.
func (s *RateTimeseriesStore) GetByPairID(ctx context.Context, pairID string) ([]*domain.RatePoint, error) {
	query := `
		SELECT pair_id, timestamp_ms, period, phase, percent_completed, rate, target_rate, max_amount_out
		FROM rate_timeseries
		WHERE pair_id = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, pairID)
	if err != nil {
		return nil, fmt.Errorf("query by pair id: %w", err)
	}
	defer rows.Close()

	return scanRatePoints(rows)
}

// GetByTimeRange retrieves points for a pair within [start, end] (inclusive).
func (s *RateTimeseriesStore) GetByTimeRange(ctx context.Context, pairID string, start, end int64) ([]*domain.RatePoint, error) {
	query := `
		SELECT pair_id, timestamp_ms, period, phase, percent_completed, rate, target_rate, max_amount_out
		FROM rate_timeseries
		WHERE pair_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, pairID, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanRatePoints(rows)
}

// exists checks if a point with the given key exists.
func (s *RateTimeseriesStore) exists(ctx context.Context, pairID string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM rate_timeseries
		WHERE pair_id = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, pairID, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanRatePoints scans multiple rows into a slice of RatePoint.
func scanRatePoints(rows chRows) ([]*domain.RatePoint, error) {
	var points []*domain.RatePoint

	for rows.Next() {
		var p domain.RatePoint
		var timestampMs, period uint64
		var phase uint8

		err := rows.Scan(
			&p.PairID, &timestampMs, &period, &phase,
			&p.PercentCompleted, &p.Rate, &p.TargetRate, &p.MaxAmountOut,
		)
		if err != nil {
			return nil, fmt.Errorf("scan rate timeseries row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		p.Period = int64(period)
		p.Phase = int(phase)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rate timeseries rows: %w", err)
	}

	return points, nil
}
