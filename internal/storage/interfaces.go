package storage

import (
	"context"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/domain"
)

// PairStore provides access to the liquidation pair registry.
type PairStore interface {
	// Insert registers a new pair. Returns ErrDuplicateKey if pair_id exists.
	Insert(ctx context.Context, p *domain.PairInfo) error

	// GetByID retrieves a pair by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, pairID string) (*domain.PairInfo, error)

	// GetAll retrieves all registered pairs, ordered by creation time ASC.
	GetAll(ctx context.Context) ([]*domain.PairInfo, error)
}

// TradeStore provides access to the liquidation trade ledger.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.LiquidationTrade) error

	// GetByPairID retrieves all trades for a pair, ordered by timestamp ASC.
	GetByPairID(ctx context.Context, pairID string) ([]*domain.LiquidationTrade, error)

	// GetByPeriod retrieves a pair's trades within one auction period,
	// ordered by timestamp ASC.
	GetByPeriod(ctx context.Context, pairID string, period int64) ([]*domain.LiquidationTrade, error)

	// GetByTimeRange retrieves a pair's trades within [start, end]
	// (inclusive, unix seconds), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, pairID string, start, end int64) ([]*domain.LiquidationTrade, error)
}

// RateTimeseriesStore provides access to rate_timeseries storage.
type RateTimeseriesStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate
	// (pair_id, timestamp_ms).
	InsertBulk(ctx context.Context, points []*domain.RatePoint) error

	// GetByPairID retrieves all points for a pair, ordered by timestamp ASC.
	GetByPairID(ctx context.Context, pairID string) ([]*domain.RatePoint, error)

	// GetByTimeRange retrieves points for a pair within [start, end]
	// (inclusive, unix milliseconds), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, pairID string, start, end int64) ([]*domain.RatePoint, error)
}
