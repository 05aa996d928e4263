package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/domain"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.LiquidationTrade) error {
	query := `
		INSERT INTO liquidation_trades (
			trade_id, pair_id, account, kind, period, timestamp, phase, percent_completed, rate, amount_in, amount_out, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TradeID,
		t.PairID,
		t.Account,
		t.Kind,
		t.Period,
		t.Timestamp,
		t.Phase,
		t.PercentCompleted,
		t.Rate,
		t.AmountIn,
		t.AmountOut,
		t.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// GetByPairID retrieves all trades for a pair, ordered by timestamp ASC.
func (s *TradeStore) GetByPairID(ctx context.Context, pairID string) ([]*domain.LiquidationTrade, error) {
	query := `
		SELECT trade_id, pair_id, account, kind, period, timestamp, phase, percent_completed, rate, amount_in, amount_out, created_at
		FROM liquidation_trades
		WHERE pair_id = $1
		ORDER BY timestamp ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, pairID)
	if err != nil {
		return nil, fmt.Errorf("get trades by pair id: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByPeriod retrieves a pair's trades within one auction period, ordered by timestamp ASC.
func (s *TradeStore) GetByPeriod(ctx context.Context, pairID string, period int64) ([]*domain.LiquidationTrade, error) {
	query := `
		SELECT trade_id, pair_id, account, kind, period, timestamp, phase, percent_completed, rate, amount_in, amount_out, created_at
		FROM liquidation_trades
		WHERE pair_id = $1 AND period = $2
		ORDER BY timestamp ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, pairID, period)
	if err != nil {
		return nil, fmt.Errorf("get trades by period: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByTimeRange retrieves a pair's trades within [start, end] (inclusive).
func (s *TradeStore) GetByTimeRange(ctx context.Context, pairID string, start, end int64) ([]*domain.LiquidationTrade, error) {
	query := `
		SELECT trade_id, pair_id, account, kind, period, timestamp, phase, percent_completed, rate, amount_in, amount_out, created_at
		FROM liquidation_trades
		WHERE pair_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, pairID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get trades by time range: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrades scans multiple rows into a slice of LiquidationTrade.
func scanTrades(rows pgx.Rows) ([]*domain.LiquidationTrade, error) {
	var trades []*domain.LiquidationTrade

	for rows.Next() {
		var t domain.LiquidationTrade

		err := rows.Scan(
			&t.TradeID,
			&t.PairID,
			&t.Account,
			&t.Kind,
			&t.Period,
			&t.Timestamp,
			&t.Phase,
			&t.PercentCompleted,
			&t.Rate,
			&t.AmountIn,
			&t.AmountOut,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
