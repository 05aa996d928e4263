package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/fixedpoint"
)

// Memory is an in-memory Source backed by per-account token balances and a
// per-token liquidation reserve. It is safe for concurrent use; Settle
// holds the lock for the whole transfer so partial settlements are never
// observable.
type Memory struct {
	mu sync.Mutex

	// balances[token][account]
	balances map[string]map[string]fixedpoint.SD

	// reserves[token] is the liquidatable balance of that token.
	reserves map[string]fixedpoint.SD

	// targets[token] is the account credited with that token's proceeds.
	targets map[string]string
}

// Compile-time interface check.
var _ Source = (*Memory)(nil)

// NewMemory creates an empty in-memory source.
func NewMemory() *Memory {
	return &Memory{
		balances: make(map[string]map[string]fixedpoint.SD),
		reserves: make(map[string]fixedpoint.SD),
		targets:  make(map[string]string),
	}
}

// SetTarget routes token proceeds to the given account.
func (m *Memory) SetTarget(token, account string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets[token] = account
}

// Credit adds amount to an account's token balance.
func (m *Memory) Credit(token, account string, amount fixedpoint.SD) error {
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credit(token, account, amount)
}

// Accrue adds amount to the token's liquidation reserve, modelling the
// external yield that accumulates between periods.
func (m *Memory) Accrue(token string, amount fixedpoint.SD) error {
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.reserves[token].Add(amount)
	if err != nil {
		return fmt.Errorf("accrue %s: %w", token, err)
	}
	m.reserves[token] = next
	return nil
}

// BalanceOf returns an account's token balance.
func (m *Memory) BalanceOf(token, account string) fixedpoint.SD {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[token][account]
}

// LiquidatableBalanceOf reports the token's reserve.
func (m *Memory) LiquidatableBalanceOf(_ context.Context, tokenOut string) (fixedpoint.SD, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reserves[tokenOut], nil
}

// TargetOf returns the proceeds account for tokenIn.
func (m *Memory) TargetOf(_ context.Context, tokenIn string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.targets[tokenIn]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownToken, tokenIn)
	}
	return target, nil
}

// Settle atomically executes both legs of a swap. All checks run before any
// balance is touched.
func (m *Memory) Settle(_ context.Context, account, tokenIn string, amountIn fixedpoint.SD, tokenOut string, amountOut fixedpoint.SD) error {
	if amountIn.Sign() < 0 || amountOut.Sign() < 0 {
		return ErrInvalidAmount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.targets[tokenIn]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, tokenIn)
	}

	have := m.balances[tokenIn][account]
	if have.Cmp(amountIn) < 0 {
		return fmt.Errorf("%w: account %s has %s %s, needs %s", ErrInsufficientFunds, account, have, tokenIn, amountIn)
	}
	reserve := m.reserves[tokenOut]
	if reserve.Cmp(amountOut) < 0 {
		return fmt.Errorf("%w: reserve holds %s %s, needs %s", ErrInsufficientLiquidity, reserve, tokenOut, amountOut)
	}

	// Snapshot every cell the transfer touches, then apply the legs one at
	// a time reading current values. Any arithmetic fault restores the
	// snapshot, so a partial settlement is never observable. Reading
	// current values keeps account==target transfers correct.
	snapshot := map[[2]string]fixedpoint.SD{
		{tokenIn, account}:  m.balances[tokenIn][account],
		{tokenIn, target}:   m.balances[tokenIn][target],
		{tokenOut, account}: m.balances[tokenOut][account],
	}
	oldReserve := reserve

	restore := func() {
		for cell, bal := range snapshot {
			m.setBalance(cell[0], cell[1], bal)
		}
		m.reserves[tokenOut] = oldReserve
	}

	apply := func() error {
		debited, err := m.balances[tokenIn][account].Sub(amountIn)
		if err != nil {
			return err
		}
		m.setBalance(tokenIn, account, debited)

		if err := m.credit(tokenIn, target, amountIn); err != nil {
			return err
		}

		newReserve, err := m.reserves[tokenOut].Sub(amountOut)
		if err != nil {
			return err
		}
		m.reserves[tokenOut] = newReserve

		return m.credit(tokenOut, account, amountOut)
	}

	if err := apply(); err != nil {
		restore()
		return err
	}
	return nil
}

func (m *Memory) credit(token, account string, amount fixedpoint.SD) error {
	next, err := m.balances[token][account].Add(amount)
	if err != nil {
		return fmt.Errorf("credit %s to %s: %w", token, account, err)
	}
	m.setBalance(token, account, next)
	return nil
}

func (m *Memory) setBalance(token, account string, amount fixedpoint.SD) {
	if m.balances[token] == nil {
		m.balances[token] = make(map[string]fixedpoint.SD)
	}
	m.balances[token][account] = amount
}
