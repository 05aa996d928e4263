// Package auction implements the pricing and period engine of a
// liquidation pair: a continuously running Dutch-style auction selling the
// liquidity that accrues to a reserve each period, priced along a
// three-phase curve centered on a slowly adapting target exchange rate.
package auction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/curve"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/fixedpoint"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/period"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/source"
)

// Swap errors.
var (
	// ErrMinAmountOut is returned when the computed output violates the
	// caller's minimum (slippage fault). State is not mutated.
	ErrMinAmountOut = errors.New("auction: amount out below caller minimum")

	// ErrMaxAmountIn is returned when the computed input violates the
	// caller's maximum (slippage fault). State is not mutated.
	ErrMaxAmountIn = errors.New("auction: amount in above caller maximum")
)

// auctionState is the mutable per-pair record. It is mutated only by the
// rollover/update step under the pair's lock; swaps stage a copy and commit
// it after settlement succeeds.
type auctionState struct {
	period         int64         // current period index, 0 before the first period
	targetRate     fixedpoint.SD // phase-2 center for the current period
	nextTargetRate fixedpoint.SD // pending target, committed at next rollover
	maxAmountOut   fixedpoint.SD // remaining liquidity cap for this period
}

// Swap is the receipt of an executed trade.
type Swap struct {
	Account          string
	Period           int64
	Timestamp        int64
	Phase            int
	PercentCompleted fixedpoint.SD
	Rate             fixedpoint.SD
	AmountIn         fixedpoint.SD
	AmountOut        fixedpoint.SD
}

// Pair is a liquidation pair engine. All mutating entry points serialize on
// one lock; read-only queries observe only committed state.
type Pair struct {
	cfg    Config
	clock  period.Clock
	curve  *curve.Curve
	src    source.Source
	now    func() int64
	logger *log.Logger

	mu    sync.RWMutex
	state auctionState
}

// Option customizes pair construction.
type Option func(*Pair)

// WithNow overrides the wall-clock reader, in unix seconds. Used by tests
// and the simulator.
func WithNow(now func() int64) Option {
	return func(p *Pair) { p.now = now }
}

// WithLogger sets the pair's logger.
func WithLogger(logger *log.Logger) Option {
	return func(p *Pair) { p.logger = logger }
}

// NewPair validates cfg and creates the engine with the initial target rate
// and a liquidity cap of zero. The first interaction after a period
// boundary snapshots the real cap.
func NewPair(cfg Config, src source.Source, opts ...Option) (*Pair, error) {
	if cfg.TokenIn == "" || cfg.TokenOut == "" {
		return nil, ErrMissingToken
	}
	if cfg.TokenIn == cfg.TokenOut {
		return nil, ErrSameToken
	}

	clock, err := period.NewClock(cfg.PeriodLength, cfg.PeriodOffset)
	if err != nil {
		return nil, fmt.Errorf("auction: %w", err)
	}
	crv, err := curve.New(cfg.PhaseTwoDurationPercent, cfg.PhaseTwoRangePercent)
	if err != nil {
		return nil, fmt.Errorf("auction: %w", err)
	}

	p := &Pair{
		cfg:    cfg,
		clock:  clock,
		curve:  crv,
		src:    src,
		now:    func() int64 { return time.Now().Unix() },
		logger: log.New(io.Discard, "", 0),
		state: auctionState{
			period:         0,
			targetRate:     cfg.TargetExchangeRate,
			nextTargetRate: cfg.TargetExchangeRate,
			maxAmountOut:   fixedpoint.Zero(),
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the pair's immutable configuration.
func (p *Pair) Config() Config { return p.cfg }

// PeriodOf returns the period index containing ts.
func (p *Pair) PeriodOf(ts int64) int64 { return p.clock.PeriodOf(ts) }

// PeriodStartAt returns the start timestamp of the period containing ts.
func (p *Pair) PeriodStartAt(ts int64) int64 { return p.clock.PeriodStart(ts) }

// CurrentPeriod returns the period index at the current time. This is the
// clock's view; the committed state may lag until the next rollover.
func (p *Pair) CurrentPeriod() int64 { return p.clock.PeriodOf(p.now()) }

// TimeElapsed returns seconds elapsed within the current period.
func (p *Pair) TimeElapsed() int64 { return p.clock.Elapsed(p.now()) }

// AuctionState returns the percent completed and the curve phase at the
// current time.
func (p *Pair) AuctionState() (percentCompleted fixedpoint.SD, phase int) {
	percent := p.clock.PercentCompleted(p.now())
	return percent, p.curve.Phase(percent)
}

// rolledOver returns a staged copy of the state after the rollover guard:
// when the clock's period differs from the committed one, the liquidity cap
// is re-snapshotted from the source and the pending target becomes current.
// The caller commits the staged state; a non-committed stage has no effect.
func (p *Pair) rolledOver(ctx context.Context, now int64) (auctionState, error) {
	st := p.state
	per := p.clock.PeriodOf(now)
	if per == st.period {
		return st, nil
	}

	available, err := p.src.LiquidatableBalanceOf(ctx, p.cfg.TokenOut)
	if err != nil {
		return auctionState{}, fmt.Errorf("auction: snapshot liquidity for rollover: %w", err)
	}

	st.period = per
	st.maxAmountOut = available
	st.targetRate = st.nextTargetRate
	p.logger.Printf("rollover: period=%d cap=%s target=%s", per, available, st.targetRate)
	return st, nil
}

// ComputeExactAmountIn quotes the input cost of an exact output amount at
// the current instant, committing a pending rollover as a side effect.
func (p *Pair) ComputeExactAmountIn(ctx context.Context, amountOut fixedpoint.SD) (fixedpoint.SD, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	st, err := p.rolledOver(ctx, now)
	if err != nil {
		return fixedpoint.SD{}, err
	}

	amountIn, _, err := p.quoteAmountIn(amountOut, st.targetRate, p.clock.PercentCompleted(now))
	if err != nil {
		return fixedpoint.SD{}, err
	}
	p.state = st
	return amountIn, nil
}

// ComputeExactAmountOut quotes the output of an exact input amount at the
// current instant, committing a pending rollover as a side effect.
func (p *Pair) ComputeExactAmountOut(ctx context.Context, amountIn fixedpoint.SD) (fixedpoint.SD, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	st, err := p.rolledOver(ctx, now)
	if err != nil {
		return fixedpoint.SD{}, err
	}

	amountOut, _, err := p.quoteAmountOut(amountIn, st.targetRate, p.clock.PercentCompleted(now))
	if err != nil {
		return fixedpoint.SD{}, err
	}
	p.state = st
	return amountOut, nil
}

// MaxAmountOut returns the remaining liquidity cap for the current period,
// after the rollover guard.
func (p *Pair) MaxAmountOut(ctx context.Context) (fixedpoint.SD, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, err := p.rolledOver(ctx, p.now())
	if err != nil {
		return fixedpoint.SD{}, err
	}
	p.state = st
	return st.maxAmountOut, nil
}

// MaxAmountIn returns the cost of draining the whole period's remaining
// liquidity cap.
func (p *Pair) MaxAmountIn(ctx context.Context) (fixedpoint.SD, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	st, err := p.rolledOver(ctx, now)
	if err != nil {
		return fixedpoint.SD{}, err
	}

	amountIn, _, err := p.quoteAmountIn(st.maxAmountOut, st.targetRate, p.clock.PercentCompleted(now))
	if err != nil {
		return fixedpoint.SD{}, err
	}
	p.state = st
	return amountIn, nil
}

// SwapExactAmountIn swaps an exact input amount for at least minAmountOut
// of the output token, settling through the liquidity source. On any fault
// (slippage, settlement, arithmetic) no state mutation is observable, the
// staged rollover included.
func (p *Pair) SwapExactAmountIn(ctx context.Context, account string, amountIn, minAmountOut fixedpoint.SD) (*Swap, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	st, err := p.rolledOver(ctx, now)
	if err != nil {
		return nil, err
	}

	percent := p.clock.PercentCompleted(now)
	amountOut, rate, err := p.quoteAmountOut(amountIn, st.targetRate, percent)
	if err != nil {
		return nil, err
	}
	if amountOut.Cmp(minAmountOut) < 0 {
		return nil, fmt.Errorf("%w: computed %s, minimum %s", ErrMinAmountOut, amountOut, minAmountOut)
	}

	return p.execute(ctx, &st, account, amountIn, amountOut, rate, percent, now)
}

// SwapExactAmountOut swaps at most maxAmountIn of the input token for an
// exact output amount. Same atomicity guarantees as SwapExactAmountIn.
func (p *Pair) SwapExactAmountOut(ctx context.Context, account string, amountOut, maxAmountIn fixedpoint.SD) (*Swap, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	st, err := p.rolledOver(ctx, now)
	if err != nil {
		return nil, err
	}

	percent := p.clock.PercentCompleted(now)
	amountIn, rate, err := p.quoteAmountIn(amountOut, st.targetRate, percent)
	if err != nil {
		return nil, err
	}
	if amountIn.Cmp(maxAmountIn) > 0 {
		return nil, fmt.Errorf("%w: computed %s, maximum %s", ErrMaxAmountIn, amountIn, maxAmountIn)
	}

	return p.execute(ctx, &st, account, amountIn, amountOut, rate, percent, now)
}

// execute stages the trade's state update, settles through the source and
// commits. The target-rate EMA applies only for executed rates above zero;
// the cap decrement is unconditional and may drive the cap negative.
func (p *Pair) execute(ctx context.Context, st *auctionState, account string, amountIn, amountOut, rate, percent fixedpoint.SD, now int64) (*Swap, error) {
	if rate.Sign() > 0 {
		next, err := st.nextTargetRate.Add(rate)
		if err != nil {
			return nil, fmt.Errorf("auction: update pending target: %w", err)
		}
		next, err = next.DivInt(2)
		if err != nil {
			return nil, fmt.Errorf("auction: update pending target: %w", err)
		}
		st.nextTargetRate = next
	}

	remaining, err := st.maxAmountOut.Sub(amountOut)
	if err != nil {
		return nil, fmt.Errorf("auction: decrement liquidity cap: %w", err)
	}
	st.maxAmountOut = remaining

	if err := p.src.Settle(ctx, account, p.cfg.TokenIn, amountIn, p.cfg.TokenOut, amountOut); err != nil {
		return nil, fmt.Errorf("auction: settle: %w", err)
	}

	p.state = *st
	p.logger.Printf("swap: account=%s period=%d in=%s out=%s rate=%s",
		account, st.period, amountIn, amountOut, rate)

	return &Swap{
		Account:          account,
		Period:           st.period,
		Timestamp:        now,
		Phase:            p.curve.Phase(percent),
		PercentCompleted: percent,
		Rate:             rate,
		AmountIn:         amountIn,
		AmountOut:        amountOut,
	}, nil
}
