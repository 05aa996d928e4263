// Package curve computes the three-phase exchange-rate curve of a
// liquidation period.
//
// Percent-of-period-completed selects one of three branches:
//
//	phase 1: hyperbolic, falls toward -inf as the period opens
//	phase 2: linear, centered on the target rate at 50%
//	phase 3: hyperbolic, rises toward +inf as the period closes
//
// Phase 2 wins ties at both of its boundaries. The asymptotes at 0% and
// 100% are intentional: there is no finite price at the very start or end
// of a period, and evaluation there surfaces as an arithmetic fault the
// pricer clamps.
package curve

import (
	"errors"
	"fmt"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/fixedpoint"
)

// Configuration errors.
var (
	// ErrInvalidDurationPercent is returned when the phase-two duration is
	// outside the open interval (0, 100).
	ErrInvalidDurationPercent = errors.New("curve: phase two duration percent must be in (0, 100)")

	// ErrInvalidRangePercent is returned when the phase-two range is
	// outside the half-open interval [0, 100).
	ErrInvalidRangePercent = errors.New("curve: phase two range percent must be in [0, 100)")
)

// SmoothingConstant shapes the steepness of the hyperbolic phases.
const SmoothingConstant = 5

var (
	fifty   = fixedpoint.FromInt64(50)
	hundred = fixedpoint.FromInt64(100)
)

// Curve holds the derived per-pair curve parameters. They are computed once
// at construction and never change.
type Curve struct {
	smoothing      fixedpoint.SD // SmoothingConstant as a fixed-point value
	durationHalved fixedpoint.SD // phaseTwoDurationPercent / 2
	rangeHalved    fixedpoint.SD // phaseTwoRangePercent / 2
	phaseOneEnd    fixedpoint.SD // 50 - durationHalved
	phaseTwoEnd    fixedpoint.SD // 50 + durationHalved
}

// New validates the phase-two duration and range percentages and derives
// the curve parameters. Duration must lie strictly in (0, 100); range must
// lie in [0, 100).
func New(phaseTwoDurationPercent, phaseTwoRangePercent fixedpoint.SD) (*Curve, error) {
	if phaseTwoDurationPercent.Sign() <= 0 || phaseTwoDurationPercent.Cmp(hundred) >= 0 {
		return nil, ErrInvalidDurationPercent
	}
	if phaseTwoRangePercent.Sign() < 0 || phaseTwoRangePercent.Cmp(hundred) >= 0 {
		return nil, ErrInvalidRangePercent
	}

	durationHalved, err := phaseTwoDurationPercent.DivInt(2)
	if err != nil {
		return nil, fmt.Errorf("derive duration halved: %w", err)
	}
	rangeHalved, err := phaseTwoRangePercent.DivInt(2)
	if err != nil {
		return nil, fmt.Errorf("derive range halved: %w", err)
	}
	phaseOneEnd, err := fifty.Sub(durationHalved)
	if err != nil {
		return nil, fmt.Errorf("derive phase one end: %w", err)
	}
	phaseTwoEnd, err := fifty.Add(durationHalved)
	if err != nil {
		return nil, fmt.Errorf("derive phase two end: %w", err)
	}

	return &Curve{
		smoothing:      fixedpoint.FromInt64(SmoothingConstant),
		durationHalved: durationHalved,
		rangeHalved:    rangeHalved,
		phaseOneEnd:    phaseOneEnd,
		phaseTwoEnd:    phaseTwoEnd,
	}, nil
}

// PhaseOneEndPercent returns the percent at which phase 1 hands over to
// phase 2.
func (c *Curve) PhaseOneEndPercent() fixedpoint.SD { return c.phaseOneEnd }

// PhaseTwoEndPercent returns the percent at which phase 2 hands over to
// phase 3.
func (c *Curve) PhaseTwoEndPercent() fixedpoint.SD { return c.phaseTwoEnd }

// Phase selects the curve branch for a percent-completed value. Phase 2
// wins on overlap at both boundaries.
func (c *Curve) Phase(percentCompleted fixedpoint.SD) int {
	switch {
	case percentCompleted.Cmp(c.phaseOneEnd) < 0:
		return 1
	case percentCompleted.Cmp(c.phaseTwoEnd) <= 0:
		return 2
	default:
		return 3
	}
}

// Rate evaluates the curve at percentCompleted for the given target rate.
// Any arithmetic fault (overflow, or a denominator at exactly zero on a
// phase boundary) is returned as an error; callers decide how to clamp it.
func (c *Curve) Rate(targetRate, percentCompleted fixedpoint.SD) (fixedpoint.SD, error) {
	// rangeRate = targetRate * rangeHalved / 1000; the extra factor of 10
	// on top of /100 is what makes rangeHalved act pre-halved.
	rangeRate, err := targetRate.Mul(c.rangeHalved)
	if err != nil {
		return fixedpoint.SD{}, err
	}
	rangeRate, err = rangeRate.DivInt(1000)
	if err != nil {
		return fixedpoint.SD{}, err
	}

	switch c.Phase(percentCompleted) {
	case 1:
		return c.phaseOneRate(targetRate, rangeRate, percentCompleted)
	case 2:
		return c.phaseTwoRate(targetRate, rangeRate, percentCompleted)
	default:
		return c.phaseThreeRate(targetRate, rangeRate, percentCompleted)
	}
}

// phaseOneRate = smoothing*(50-durationHalved)/(-percent) +
// (target - rangeRate*durationHalved + smoothing).
func (c *Curve) phaseOneRate(target, rangeRate, percent fixedpoint.SD) (fixedpoint.SD, error) {
	num, err := c.smoothing.Mul(c.phaseOneEnd)
	if err != nil {
		return fixedpoint.SD{}, err
	}
	negPercent, err := percent.Neg()
	if err != nil {
		return fixedpoint.SD{}, err
	}
	hyper, err := num.Div(negPercent)
	if err != nil {
		return fixedpoint.SD{}, err
	}

	span, err := rangeRate.Mul(c.durationHalved)
	if err != nil {
		return fixedpoint.SD{}, err
	}
	base, err := target.Sub(span)
	if err != nil {
		return fixedpoint.SD{}, err
	}
	base, err = base.Add(c.smoothing)
	if err != nil {
		return fixedpoint.SD{}, err
	}

	return hyper.Add(base)
}

// phaseTwoRate = target + rangeRate*(percent-50). Linear; equals the target
// exactly at 50%.
func (c *Curve) phaseTwoRate(target, rangeRate, percent fixedpoint.SD) (fixedpoint.SD, error) {
	delta, err := percent.Sub(fifty)
	if err != nil {
		return fixedpoint.SD{}, err
	}
	step, err := rangeRate.Mul(delta)
	if err != nil {
		return fixedpoint.SD{}, err
	}
	return target.Add(step)
}

// phaseThreeRate = -smoothing*(50-durationHalved)/(percent-100) +
// (target + rangeRate*durationHalved - smoothing).
func (c *Curve) phaseThreeRate(target, rangeRate, percent fixedpoint.SD) (fixedpoint.SD, error) {
	num, err := c.smoothing.Mul(c.phaseOneEnd)
	if err != nil {
		return fixedpoint.SD{}, err
	}
	num, err = num.Neg()
	if err != nil {
		return fixedpoint.SD{}, err
	}
	den, err := percent.Sub(hundred)
	if err != nil {
		return fixedpoint.SD{}, err
	}
	hyper, err := num.Div(den)
	if err != nil {
		return fixedpoint.SD{}, err
	}

	span, err := rangeRate.Mul(c.durationHalved)
	if err != nil {
		return fixedpoint.SD{}, err
	}
	base, err := target.Add(span)
	if err != nil {
		return fixedpoint.SD{}, err
	}
	base, err = base.Sub(c.smoothing)
	if err != nil {
		return fixedpoint.SD{}, err
	}

	return hyper.Add(base)
}
