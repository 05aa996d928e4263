package auction

import (
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/fixedpoint"
)

// A returned rate of exactly zero signals the caller that no target-rate
// update may happen for this computation: the quote came from a clamped
// singularity, not a real market rate.

// quoteAmountIn prices an exact-out request at the given target and percent
// completed. Singularities near the period boundaries are clamped:
//
//   - curve evaluates but rate <= 0: the price is infinite, nothing is
//     affordable, amountIn is the sentinel maximum
//   - arithmetic fault at or past 50%: underflow past the rising asymptote,
//     the price has collapsed, amountIn is zero
//   - arithmetic fault before 50%: the falling asymptote, sentinel maximum
//
// The final division is not part of the clamping policy; its failure aborts
// the operation.
func (p *Pair) quoteAmountIn(amountOut, target, percent fixedpoint.SD) (amountIn, rate fixedpoint.SD, err error) {
	r, curveErr := p.curve.Rate(target, percent)
	if curveErr != nil {
		if percent.Cmp(fifty) >= 0 {
			return fixedpoint.Zero(), fixedpoint.Zero(), nil
		}
		return fixedpoint.Max(), fixedpoint.Zero(), nil
	}
	if r.Sign() <= 0 {
		return fixedpoint.Max(), fixedpoint.Zero(), nil
	}

	in, err := amountOut.Div(r)
	if err != nil {
		return fixedpoint.SD{}, fixedpoint.SD{}, err
	}
	return in, r, nil
}

// quoteAmountOut prices an exact-in request. The clamping mirror of
// quoteAmountIn: a non-positive rate or a fault at or before 50% yields
// zero output, a fault past 50% yields the sentinel maximum.
func (p *Pair) quoteAmountOut(amountIn, target, percent fixedpoint.SD) (amountOut, rate fixedpoint.SD, err error) {
	r, curveErr := p.curve.Rate(target, percent)
	if curveErr != nil {
		if percent.Cmp(fifty) <= 0 {
			return fixedpoint.Zero(), fixedpoint.Zero(), nil
		}
		return fixedpoint.Max(), fixedpoint.Zero(), nil
	}
	if r.Sign() <= 0 {
		return fixedpoint.Zero(), fixedpoint.Zero(), nil
	}

	out, err := amountIn.Mul(r)
	if err != nil {
		return fixedpoint.SD{}, fixedpoint.SD{}, err
	}
	return out, r, nil
}

var fifty = fixedpoint.FromInt64(50)
