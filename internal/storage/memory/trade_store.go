package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/domain"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.LiquidationTrade // keyed by trade_id
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.LiquidationTrade),
	}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds a new trade. Returns ErrDuplicateKey if exists.
func (s *TradeStore) Insert(_ context.Context, t *domain.LiquidationTrade) error {
	if t == nil || t.TradeID == "" || t.PairID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TradeID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[t.TradeID] = &copy
	return nil
}

// GetByPairID retrieves all trades for a pair, ordered by timestamp ASC.
func (s *TradeStore) GetByPairID(_ context.Context, pairID string) ([]*domain.LiquidationTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LiquidationTrade
	for _, t := range s.data {
		if t.PairID == pairID {
			copy := *t
			result = append(result, &copy)
		}
	}

	sortTrades(result)
	return result, nil
}

// GetByPeriod retrieves a pair's trades within one auction period.
func (s *TradeStore) GetByPeriod(_ context.Context, pairID string, period int64) ([]*domain.LiquidationTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LiquidationTrade
	for _, t := range s.data {
		if t.PairID == pairID && t.Period == period {
			copy := *t
			result = append(result, &copy)
		}
	}

	sortTrades(result)
	return result, nil
}

// GetByTimeRange retrieves a pair's trades within [start, end] (inclusive).
func (s *TradeStore) GetByTimeRange(_ context.Context, pairID string, start, end int64) ([]*domain.LiquidationTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LiquidationTrade
	for _, t := range s.data {
		if t.PairID == pairID && t.Timestamp >= start && t.Timestamp <= end {
			copy := *t
			result = append(result, &copy)
		}
	}

	sortTrades(result)
	return result, nil
}

// sortTrades orders trades by timestamp ASC, trade_id ASC for determinism.
func sortTrades(trades []*domain.LiquidationTrade) {
	sort.Slice(trades, func(i, j int) bool {
		if trades[i].Timestamp != trades[j].Timestamp {
			return trades[i].Timestamp < trades[j].Timestamp
		}
		return trades[i].TradeID < trades[j].TradeID
	})
}
