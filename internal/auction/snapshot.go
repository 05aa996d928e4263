package auction

import (
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/fixedpoint"
)

// Snapshot is a read-only view of a pair for status endpoints, the feed and
// the rate sampler. It reflects committed state only: an in-flight mutating
// call's rollover is not visible until it commits.
type Snapshot struct {
	TokenIn  string
	TokenOut string

	Timestamp        int64
	Period           int64 // committed period index, may lag the clock until the next rollover
	PercentCompleted fixedpoint.SD
	Phase            int

	TargetRate     fixedpoint.SD
	NextTargetRate fixedpoint.SD
	MaxAmountOut   fixedpoint.SD

	// Rate is the instantaneous curve rate at the snapshot instant, or
	// zero when the curve is singular or non-positive there.
	Rate fixedpoint.SD
}

// Snapshot captures the pair's committed state at the current instant.
func (p *Pair) Snapshot() Snapshot {
	p.mu.RLock()
	st := p.state
	p.mu.RUnlock()

	now := p.now()
	percent := p.clock.PercentCompleted(now)

	rate := fixedpoint.Zero()
	if r, err := p.curve.Rate(st.targetRate, percent); err == nil && r.Sign() > 0 {
		rate = r
	}

	return Snapshot{
		TokenIn:          p.cfg.TokenIn,
		TokenOut:         p.cfg.TokenOut,
		Timestamp:        now,
		Period:           st.period,
		PercentCompleted: percent,
		Phase:            p.curve.Phase(percent),
		TargetRate:       st.targetRate,
		NextTargetRate:   st.nextTargetRate,
		MaxAmountOut:     st.maxAmountOut,
		Rate:             rate,
	}
}
