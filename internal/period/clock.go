// Package period maps wall-clock timestamps onto repeating fixed-length
// auction periods.
package period

import (
	"errors"
	"math/big"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/fixedpoint"
)

// ErrInvalidPeriodLength is returned when constructing a clock with a
// non-positive period length.
var ErrInvalidPeriodLength = errors.New("period: length must be positive")

// Clock converts unix-second timestamps into period indices and progress
// within the current period. Periods are half-open intervals
// (start, start+length]: a timestamp exactly on a boundary belongs to the
// period ending there, and the next second starts a new one.
//
// Period 0 means "before the first period": every timestamp at or before
// the offset maps to it. The first real period is numbered 1.
type Clock struct {
	length int64 // period length in seconds
	offset int64 // unix timestamp where period counting starts
}

// NewClock creates a clock with the given period length (seconds) and
// offset (unix timestamp, may be in the past).
func NewClock(length, offset int64) (Clock, error) {
	if length <= 0 {
		return Clock{}, ErrInvalidPeriodLength
	}
	return Clock{length: length, offset: offset}, nil
}

// Length returns the period length in seconds.
func (c Clock) Length() int64 { return c.length }

// Offset returns the period counting offset.
func (c Clock) Offset() int64 { return c.offset }

// PeriodOf returns the period index containing ts.
func (c Clock) PeriodOf(ts int64) int64 {
	if ts <= c.offset {
		return 0
	}
	// The -1/+1 dance keeps boundaries in the period they close.
	return (ts-c.offset-1)/c.length + 1
}

// PeriodStart returns the start timestamp of the period containing ts,
// or 0 for period 0.
func (c Clock) PeriodStart(ts int64) int64 {
	p := c.PeriodOf(ts)
	if p == 0 {
		return 0
	}
	return c.offset + (p-1)*c.length
}

// Elapsed returns seconds elapsed within the period containing ts.
// It is 0 before the offset and otherwise in [1, length]; a boundary
// timestamp yields the full length for the period it closes.
func (c Clock) Elapsed(ts int64) int64 {
	if ts <= c.offset {
		return 0
	}
	return ts - c.PeriodStart(ts)
}

// PercentCompleted returns elapsed/length*100 as a fixed-point value, so
// fractional progress keeps its fractional digits.
func (c Clock) PercentCompleted(ts int64) fixedpoint.SD {
	elapsed := c.Elapsed(ts)
	if elapsed == 0 {
		return fixedpoint.Zero()
	}

	// elapsed * 100 * 1e18 / length. Computed directly on the raw form;
	// elapsed <= length so this cannot leave the representable range.
	raw := new(big.Int).Mul(big.NewInt(elapsed), big.NewInt(100))
	raw.Mul(raw, fixedpoint.FromInt64(1).Raw())
	raw.Quo(raw, big.NewInt(c.length))

	v, err := fixedpoint.FromRaw(raw)
	if err != nil {
		// Unreachable for valid clocks; elapsed/length <= 1.
		return fixedpoint.FromInt64(100)
	}
	return v
}
