// Package factory creates and registers liquidation pair engines. Only
// factory-created pairs are routable.
package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/auction"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/domain"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/idhash"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/source"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/storage"
)

// Factory errors.
var (
	// ErrPairExists is returned when a pair with the same identity
	// (tokens, period length, period offset) is already registered.
	ErrPairExists = errors.New("factory: pair already exists")

	// ErrUnknownPair is returned when a pair ID is not registered.
	ErrUnknownPair = errors.New("factory: unknown pair")
)

// Factory builds pair engines against one liquidity source and keeps the
// registry of created pairs. An optional PairStore persists the registry.
type Factory struct {
	src    source.Source
	store  storage.PairStore // nil disables persistence
	logger *log.Logger
	nowMs  func() int64

	mu    sync.RWMutex
	pairs map[string]*auction.Pair
	infos map[string]*domain.PairInfo
	order []string // pair IDs in creation order
}

// Option customizes factory construction.
type Option func(*Factory)

// WithPairStore persists created pairs to store.
func WithPairStore(store storage.PairStore) Option {
	return func(f *Factory) { f.store = store }
}

// WithLogger sets the factory's logger.
func WithLogger(logger *log.Logger) Option {
	return func(f *Factory) { f.logger = logger }
}

// WithNowMs overrides the creation timestamp reader, in unix milliseconds.
func WithNowMs(nowMs func() int64) Option {
	return func(f *Factory) { f.nowMs = nowMs }
}

// New creates an empty factory over src.
func New(src source.Source, opts ...Option) *Factory {
	f := &Factory{
		src:    src,
		logger: log.New(io.Discard, "", 0),
		nowMs:  func() int64 { return time.Now().UnixMilli() },
		pairs:  make(map[string]*auction.Pair),
		infos:  make(map[string]*domain.PairInfo),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreatePair validates cfg, builds the engine and registers it under a
// deterministic pair ID. When a PairStore is configured the pair is
// persisted first; a persistence fault leaves the registry untouched.
func (f *Factory) CreatePair(ctx context.Context, cfg auction.Config, opts ...auction.Option) (*domain.PairInfo, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pairID := idhash.ComputePairID(cfg.TokenIn, cfg.TokenOut, cfg.PeriodLength, cfg.PeriodOffset)

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.pairs[pairID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrPairExists, pairID)
	}

	pair, err := auction.NewPair(cfg, f.src, opts...)
	if err != nil {
		return nil, err
	}

	info := &domain.PairInfo{
		PairID:       pairID,
		TokenIn:      cfg.TokenIn,
		TokenOut:     cfg.TokenOut,
		PeriodLength: cfg.PeriodLength,
		PeriodOffset: cfg.PeriodOffset,
		TargetRate:   cfg.TargetExchangeRate.String(),
		CreatedAt:    f.nowMs(),
	}

	if f.store != nil {
		if err := f.store.Insert(ctx, info); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				return nil, fmt.Errorf("%w: %s", ErrPairExists, pairID)
			}
			return nil, fmt.Errorf("factory: persist pair: %w", err)
		}
	}

	f.pairs[pairID] = pair
	f.infos[pairID] = info
	f.order = append(f.order, pairID)
	f.logger.Printf("[factory] created pair %s (%s -> %s, period %ds)",
		pairID, cfg.TokenIn, cfg.TokenOut, cfg.PeriodLength)

	return info, nil
}

// GetPair returns the engine registered under pairID.
func (f *Factory) GetPair(pairID string) (*auction.Pair, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	pair, ok := f.pairs[pairID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPair, pairID)
	}
	return pair, nil
}

// GetInfo returns the registry record for pairID.
func (f *Factory) GetInfo(pairID string) (*domain.PairInfo, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	info, ok := f.infos[pairID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPair, pairID)
	}
	copied := *info
	return &copied, nil
}

// ListPairs returns registry records in creation order.
func (f *Factory) ListPairs() []*domain.PairInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]*domain.PairInfo, 0, len(f.order))
	for _, id := range f.order {
		copied := *f.infos[id]
		out = append(out, &copied)
	}
	return out
}

// TotalPairs returns the number of registered pairs.
func (f *Factory) TotalPairs() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.pairs)
}

// EachPair calls fn for every registered pair in creation order. Used by the
// rate sampler.
func (f *Factory) EachPair(fn func(pairID string, pair *auction.Pair)) {
	f.mu.RLock()
	ids := make([]string, len(f.order))
	copy(ids, f.order)
	pairs := make([]*auction.Pair, len(ids))
	for i, id := range ids {
		pairs[i] = f.pairs[id]
	}
	f.mu.RUnlock()

	for i, id := range ids {
		fn(id, pairs[i])
	}
}
