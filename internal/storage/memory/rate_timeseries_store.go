package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/domain"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/storage"
)

// RateTimeseriesStore is an in-memory implementation of
// storage.RateTimeseriesStore.
type RateTimeseriesStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RatePoint // keyed by composite key
}

// NewRateTimeseriesStore creates a new in-memory rate timeseries store.
func NewRateTimeseriesStore() *RateTimeseriesStore {
	return &RateTimeseriesStore{
		data: make(map[string]*domain.RatePoint),
	}
}

// Compile-time interface check.
var _ storage.RateTimeseriesStore = (*RateTimeseriesStore)(nil)

// pointKey generates a unique key for a rate point.
func pointKey(pairID string, timestampMs int64) string {
	return fmt.Sprintf("%s|%d", pairID, timestampMs)
}

// InsertBulk adds multiple points atomically. Fails entire batch on any
// duplicate (pair_id, timestamp_ms).
func (s *RateTimeseriesStore) InsertBulk(_ context.Context, points []*domain.RatePoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(points))

	for _, p := range points {
		if p == nil || p.PairID == "" {
			return storage.ErrInvalidInput
		}
		key := pointKey(p.PairID, p.TimestampMs)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range points {
		copy := *p
		s.data[pointKey(p.PairID, p.TimestampMs)] = &copy
	}

	return nil
}

// GetByPairID retrieves all points for a pair, ordered by timestamp ASC.
func (s *RateTimeseriesStore) GetByPairID(_ context.Context, pairID string) ([]*domain.RatePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RatePoint
	for _, p := range s.data {
		if p.PairID == pairID {
			copy := *p
			result = append(result, &copy)
		}
	}

	sortPoints(result)
	return result, nil
}

// GetByTimeRange retrieves points for a pair within [start, end] (inclusive).
func (s *RateTimeseriesStore) GetByTimeRange(_ context.Context, pairID string, start, end int64) ([]*domain.RatePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RatePoint
	for _, p := range s.data {
		if p.PairID == pairID && p.TimestampMs >= start && p.TimestampMs <= end {
			copy := *p
			result = append(result, &copy)
		}
	}

	sortPoints(result)
	return result, nil
}

func sortPoints(points []*domain.RatePoint) {
	sort.Slice(points, func(i, j int) bool {
		return points[i].TimestampMs < points[j].TimestampMs
	})
}
