package auction

import (
	"errors"
	"fmt"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/curve"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/fixedpoint"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/period"
)

// Configuration errors.
var (
	// ErrMissingToken is returned when a pair token is empty.
	ErrMissingToken = errors.New("auction: token in and token out are required")

	// ErrSameToken is returned when both sides of the pair name the same token.
	ErrSameToken = errors.New("auction: token in and token out must differ")
)

// Config is the immutable parameter set of a liquidation pair. All period
// and curve parameters are fixed for the pair's lifetime.
type Config struct {
	TokenIn  string // token takers pay with
	TokenOut string // token accruing in the liquidation reserve

	PeriodLength int64 // auction period length in seconds
	PeriodOffset int64 // unix timestamp where period counting starts

	// TargetExchangeRate seeds both the current and the pending target; it
	// adapts to executed trades from the second period on.
	TargetExchangeRate fixedpoint.SD

	// PhaseTwoDurationPercent is the width of the linear middle phase as a
	// percent of the period, strictly in (0, 100).
	PhaseTwoDurationPercent fixedpoint.SD

	// PhaseTwoRangePercent is the price band traversed during the middle
	// phase as a percent of the target rate, in [0, 100).
	PhaseTwoRangePercent fixedpoint.SD
}

// Validate checks the token pair and the period/curve parameters. Curve and
// clock validation mirror what NewPair performs; Validate lets callers
// reject a config before construction.
func (c Config) Validate() error {
	if c.TokenIn == "" || c.TokenOut == "" {
		return ErrMissingToken
	}
	if c.TokenIn == c.TokenOut {
		return ErrSameToken
	}
	if _, err := period.NewClock(c.PeriodLength, c.PeriodOffset); err != nil {
		return fmt.Errorf("auction: %w", err)
	}
	if _, err := curve.New(c.PhaseTwoDurationPercent, c.PhaseTwoRangePercent); err != nil {
		return fmt.Errorf("auction: %w", err)
	}
	return nil
}
