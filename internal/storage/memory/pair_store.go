package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/domain"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/storage"
)

// PairStore is an in-memory implementation of storage.PairStore.
type PairStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PairInfo // keyed by pair_id
}

// NewPairStore creates a new in-memory pair store.
func NewPairStore() *PairStore {
	return &PairStore{
		data: make(map[string]*domain.PairInfo),
	}
}

// Compile-time interface check.
var _ storage.PairStore = (*PairStore)(nil)

// Insert registers a new pair. Returns ErrDuplicateKey if exists.
func (s *PairStore) Insert(_ context.Context, p *domain.PairInfo) error {
	if p == nil || p.PairID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.PairID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *p
	s.data[p.PairID] = &copy
	return nil
}

// GetByID retrieves a pair by its ID. Returns ErrNotFound if not exists.
func (s *PairStore) GetByID(_ context.Context, pairID string) (*domain.PairInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data[pairID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *p
	return &copy, nil
}

// GetAll retrieves all registered pairs, ordered by creation time ASC.
func (s *PairStore) GetAll(_ context.Context) ([]*domain.PairInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PairInfo, 0, len(s.data))
	for _, p := range s.data {
		copy := *p
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].PairID < result[j].PairID
	})

	return result, nil
}
