// Package router is the façade over factory-registered pairs: it resolves a
// pair ID, delegates to the engine and takes care of the ledger, the feed
// and metrics.
package router

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/auction"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/domain"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/factory"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/feed"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/fixedpoint"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/idhash"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/observability"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/storage"
)

// Router performs swaps end-to-end against factory-created pairs. Trades
// settle in the engine first; ledger and feed writes never affect the
// swap's outcome.
type Router struct {
	factory *factory.Factory
	trades  storage.TradeStore // nil disables the ledger
	feed    *feed.Broadcaster  // nil disables broadcasting
	logger  *log.Logger
	nowMs   func() int64
}

// Option customizes router construction.
type Option func(*Router)

// WithTradeStore persists executed trades to store.
func WithTradeStore(store storage.TradeStore) Option {
	return func(r *Router) { r.trades = store }
}

// WithFeed broadcasts executed trades to b.
func WithFeed(b *feed.Broadcaster) Option {
	return func(r *Router) { r.feed = b }
}

// WithLogger sets the router's logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

// New creates a router over f.
func New(f *factory.Factory, opts ...Option) *Router {
	r := &Router{
		factory: f,
		logger:  log.New(io.Discard, "", 0),
		nowMs:   func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// QuoteExactAmountIn quotes the input cost of an exact output amount.
func (r *Router) QuoteExactAmountIn(ctx context.Context, pairID string, amountOut fixedpoint.SD) (fixedpoint.SD, error) {
	pair, err := r.factory.GetPair(pairID)
	if err != nil {
		return fixedpoint.SD{}, err
	}

	start := time.Now()
	amountIn, err := pair.ComputeExactAmountIn(ctx, amountOut)
	observability.RecordQuote(pairID, domain.TradeKindExactOut, time.Since(start).Seconds())
	return amountIn, err
}

// QuoteExactAmountOut quotes the output of an exact input amount.
func (r *Router) QuoteExactAmountOut(ctx context.Context, pairID string, amountIn fixedpoint.SD) (fixedpoint.SD, error) {
	pair, err := r.factory.GetPair(pairID)
	if err != nil {
		return fixedpoint.SD{}, err
	}

	start := time.Now()
	amountOut, err := pair.ComputeExactAmountOut(ctx, amountIn)
	observability.RecordQuote(pairID, domain.TradeKindExactIn, time.Since(start).Seconds())
	return amountOut, err
}

// MaxAmountOut returns the pair's remaining liquidity cap.
func (r *Router) MaxAmountOut(ctx context.Context, pairID string) (fixedpoint.SD, error) {
	pair, err := r.factory.GetPair(pairID)
	if err != nil {
		return fixedpoint.SD{}, err
	}
	return pair.MaxAmountOut(ctx)
}

// MaxAmountIn returns the cost of draining the pair's remaining cap.
func (r *Router) MaxAmountIn(ctx context.Context, pairID string) (fixedpoint.SD, error) {
	pair, err := r.factory.GetPair(pairID)
	if err != nil {
		return fixedpoint.SD{}, err
	}
	return pair.MaxAmountIn(ctx)
}

// State returns the pair's committed state snapshot.
func (r *Router) State(pairID string) (auction.Snapshot, error) {
	pair, err := r.factory.GetPair(pairID)
	if err != nil {
		return auction.Snapshot{}, err
	}
	return pair.Snapshot(), nil
}

// SwapExactAmountIn swaps an exact input amount through the pair and records
// the executed trade.
func (r *Router) SwapExactAmountIn(ctx context.Context, pairID, account string, amountIn, minAmountOut fixedpoint.SD) (*domain.LiquidationTrade, error) {
	pair, err := r.factory.GetPair(pairID)
	if err != nil {
		return nil, err
	}

	swap, err := pair.SwapExactAmountIn(ctx, account, amountIn, minAmountOut)
	if err != nil {
		r.recordFailure(pairID, domain.TradeKindExactIn, err)
		return nil, err
	}

	return r.recordTrade(ctx, pairID, domain.TradeKindExactIn, swap), nil
}

// SwapExactAmountOut swaps for an exact output amount through the pair and
// records the executed trade.
func (r *Router) SwapExactAmountOut(ctx context.Context, pairID, account string, amountOut, maxAmountIn fixedpoint.SD) (*domain.LiquidationTrade, error) {
	pair, err := r.factory.GetPair(pairID)
	if err != nil {
		return nil, err
	}

	swap, err := pair.SwapExactAmountOut(ctx, account, amountOut, maxAmountIn)
	if err != nil {
		r.recordFailure(pairID, domain.TradeKindExactOut, err)
		return nil, err
	}

	return r.recordTrade(ctx, pairID, domain.TradeKindExactOut, swap), nil
}

// recordTrade turns the engine receipt into a ledger row, persists and
// broadcasts it. The swap has already settled: ledger or feed faults are
// logged, not returned.
func (r *Router) recordTrade(ctx context.Context, pairID, kind string, swap *auction.Swap) *domain.LiquidationTrade {
	trade := &domain.LiquidationTrade{
		TradeID:          idhash.ComputeTradeID(pairID, swap.Account, kind, swap.Period, swap.Timestamp),
		PairID:           pairID,
		Account:          swap.Account,
		Kind:             kind,
		Period:           swap.Period,
		Timestamp:        swap.Timestamp,
		Phase:            swap.Phase,
		PercentCompleted: swap.PercentCompleted.String(),
		Rate:             swap.Rate.String(),
		AmountIn:         swap.AmountIn.String(),
		AmountOut:        swap.AmountOut.String(),
		CreatedAt:        r.nowMs(),
	}

	observability.RecordSwap(pairID, kind, swap.AmountOut.Float64())

	if r.trades != nil {
		start := time.Now()
		err := r.trades.Insert(ctx, trade)
		observability.RecordDBQuery("postgres", "insert_trade", time.Since(start).Seconds(), err)
		if err != nil {
			r.logger.Printf("[router] ledger write failed for trade %s: %v", trade.TradeID, err)
		}
	}

	if r.feed != nil {
		r.feed.BroadcastTrade(trade)
	}

	return trade
}

func (r *Router) recordFailure(pairID, kind string, err error) {
	switch {
	case isSlippage(err):
		observability.RecordSlippageRejection(pairID, kind)
	default:
		observability.RecordSettlementFailure(pairID)
	}
	r.logger.Printf("[router] swap rejected on %s: %v", pairID, err)
}

func isSlippage(err error) bool {
	return errors.Is(err, auction.ErrMinAmountOut) || errors.Is(err, auction.ErrMaxAmountIn)
}
