package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/domain"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/storage"
)

// PairStore implements storage.PairStore using PostgreSQL.
type PairStore struct {
	pool *Pool
}

// NewPairStore creates a new PairStore.
func NewPairStore(pool *Pool) *PairStore {
	return &PairStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PairStore = (*PairStore)(nil)

// Insert registers a new pair. Returns ErrDuplicateKey if pair_id exists.
func (s *PairStore) Insert(ctx context.Context, p *domain.PairInfo) error {
	query := `
		INSERT INTO liquidation_pairs (
			pair_id, token_in, token_out, period_length, period_offset, target_rate, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		p.PairID,
		p.TokenIn,
		p.TokenOut,
		p.PeriodLength,
		p.PeriodOffset,
		p.TargetRate,
		p.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert pair: %w", err)
	}
	return nil
}

// GetByID retrieves a pair by its ID. Returns ErrNotFound if not exists.
func (s *PairStore) GetByID(ctx context.Context, pairID string) (*domain.PairInfo, error) {
	query := `
		SELECT pair_id, token_in, token_out, period_length, period_offset, target_rate, created_at
		FROM liquidation_pairs
		WHERE pair_id = $1
	`

	var p domain.PairInfo
	err := s.pool.QueryRow(ctx, query, pairID).Scan(
		&p.PairID,
		&p.TokenIn,
		&p.TokenOut,
		&p.PeriodLength,
		&p.PeriodOffset,
		&p.TargetRate,
		&p.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pair by id: %w", err)
	}

	return &p, nil
}

// GetAll retrieves all registered pairs, ordered by creation time ASC.
func (s *PairStore) GetAll(ctx context.Context) ([]*domain.PairInfo, error) {
	query := `
		SELECT pair_id, token_in, token_out, period_length, period_offset, target_rate, created_at
		FROM liquidation_pairs
		ORDER BY created_at ASC, pair_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all pairs: %w", err)
	}
	defer rows.Close()

	return scanPairs(rows)
}

// scanPairs scans multiple rows into a slice of PairInfo.
func scanPairs(rows pgx.Rows) ([]*domain.PairInfo, error) {
	var pairs []*domain.PairInfo

	for rows.Next() {
		var p domain.PairInfo

		err := rows.Scan(
			&p.PairID,
			&p.TokenIn,
			&p.TokenOut,
			&p.PeriodLength,
			&p.PeriodOffset,
			&p.TargetRate,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pair row: %w", err)
		}

		pairs = append(pairs, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pair rows: %w", err)
	}

	return pairs, nil
}
