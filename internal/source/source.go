// Package source defines the liquidity source boundary: the collaborator
// that reports how much of the output asset can be liquidated and performs
// final settlement of a swap.
package source

import (
	"context"
	"errors"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/fixedpoint"
)

// Settlement errors.
var (
	// ErrInsufficientLiquidity is returned when the source cannot deliver
	// the requested output amount.
	ErrInsufficientLiquidity = errors.New("source: insufficient liquidatable balance")

	// ErrInsufficientFunds is returned when the paying account cannot cover
	// the input amount.
	ErrInsufficientFunds = errors.New("source: insufficient account balance")

	// ErrUnknownToken is returned for tokens the source does not manage.
	ErrUnknownToken = errors.New("source: unknown token")

	// ErrInvalidAmount is returned for negative transfer amounts.
	ErrInvalidAmount = errors.New("source: invalid amount")
)

// Source supplies liquidity and settles swaps. Settle is all-or-nothing:
// when it returns an error, no balance has moved.
type Source interface {
	// LiquidatableBalanceOf reports the output-token liquidity currently
	// available to sell. Called by the engine during period rollover.
	LiquidatableBalanceOf(ctx context.Context, tokenOut string) (fixedpoint.SD, error)

	// Settle atomically moves amountIn of tokenIn from account to the
	// token's proceeds target and amountOut of tokenOut from the
	// liquidation reserve to account.
	Settle(ctx context.Context, account, tokenIn string, amountIn fixedpoint.SD, tokenOut string, amountOut fixedpoint.SD) error

	// TargetOf identifies where tokenIn proceeds are routed. Informational;
	// it has no effect on pricing.
	TargetOf(ctx context.Context, tokenIn string) (string, error)
}
