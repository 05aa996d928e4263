package source

import (
	"context"
	"errors"
	"testing"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/fixedpoint"
)

func TestMemory_SettleMovesBothLegs(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.SetTarget("POOL", "vault")

	if err := m.Credit("POOL", "alice", fixedpoint.FromInt64(100)); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if err := m.Accrue("USDC", fixedpoint.FromInt64(50)); err != nil {
		t.Fatalf("Accrue failed: %v", err)
	}

	err := m.Settle(ctx, "alice", "POOL", fixedpoint.FromInt64(10), "USDC", fixedpoint.FromInt64(9))
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}

	if got := m.BalanceOf("POOL", "alice"); !got.Eq(fixedpoint.FromInt64(90)) {
		t.Errorf("alice POOL = %s, want 90", got)
	}
	if got := m.BalanceOf("POOL", "vault"); !got.Eq(fixedpoint.FromInt64(10)) {
		t.Errorf("vault POOL = %s, want 10", got)
	}
	if got := m.BalanceOf("USDC", "alice"); !got.Eq(fixedpoint.FromInt64(9)) {
		t.Errorf("alice USDC = %s, want 9", got)
	}

	reserve, err := m.LiquidatableBalanceOf(ctx, "USDC")
	if err != nil {
		t.Fatalf("LiquidatableBalanceOf failed: %v", err)
	}
	if !reserve.Eq(fixedpoint.FromInt64(41)) {
		t.Errorf("reserve = %s, want 41", reserve)
	}
}

func TestMemory_SettleInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.SetTarget("POOL", "vault")
	m.Accrue("USDC", fixedpoint.FromInt64(50))
	m.Credit("POOL", "alice", fixedpoint.FromInt64(1))

	err := m.Settle(ctx, "alice", "POOL", fixedpoint.FromInt64(10), "USDC", fixedpoint.FromInt64(9))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// Nothing moved.
	if got := m.BalanceOf("POOL", "alice"); !got.Eq(fixedpoint.FromInt64(1)) {
		t.Errorf("alice POOL = %s, want 1", got)
	}
	reserve, _ := m.LiquidatableBalanceOf(ctx, "USDC")
	if !reserve.Eq(fixedpoint.FromInt64(50)) {
		t.Errorf("reserve = %s, want untouched 50", reserve)
	}
}

func TestMemory_SettleInsufficientLiquidity(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.SetTarget("POOL", "vault")
	m.Credit("POOL", "alice", fixedpoint.FromInt64(100))
	m.Accrue("USDC", fixedpoint.FromInt64(5))

	err := m.Settle(ctx, "alice", "POOL", fixedpoint.FromInt64(10), "USDC", fixedpoint.FromInt64(9))
	if !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
	if got := m.BalanceOf("POOL", "alice"); !got.Eq(fixedpoint.FromInt64(100)) {
		t.Errorf("alice POOL = %s, want untouched 100", got)
	}
}

func TestMemory_SettleUnknownToken(t *testing.T) {
	m := NewMemory()
	m.Credit("POOL", "alice", fixedpoint.FromInt64(100))

	err := m.Settle(context.Background(), "alice", "POOL", fixedpoint.FromInt64(1), "USDC", fixedpoint.Zero())
	if !errors.Is(err, ErrUnknownToken) {
		t.Errorf("expected ErrUnknownToken, got %v", err)
	}
}

func TestMemory_SettleToSelf(t *testing.T) {
	// Proceeds target equals the paying account: the input leg nets to zero.
	ctx := context.Background()
	m := NewMemory()
	m.SetTarget("POOL", "alice")
	m.Credit("POOL", "alice", fixedpoint.FromInt64(100))
	m.Accrue("USDC", fixedpoint.FromInt64(50))

	err := m.Settle(ctx, "alice", "POOL", fixedpoint.FromInt64(10), "USDC", fixedpoint.FromInt64(9))
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if got := m.BalanceOf("POOL", "alice"); !got.Eq(fixedpoint.FromInt64(100)) {
		t.Errorf("alice POOL = %s, want 100 (self transfer)", got)
	}
	if got := m.BalanceOf("USDC", "alice"); !got.Eq(fixedpoint.FromInt64(9)) {
		t.Errorf("alice USDC = %s, want 9", got)
	}
}

func TestMemory_NegativeAmountsRejected(t *testing.T) {
	m := NewMemory()
	neg := fixedpoint.MustFromString("-1")

	if err := m.Credit("POOL", "alice", neg); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Credit negative: got %v", err)
	}
	if err := m.Accrue("USDC", neg); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Accrue negative: got %v", err)
	}
	if err := m.Settle(context.Background(), "alice", "POOL", neg, "USDC", fixedpoint.Zero()); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Settle negative: got %v", err)
	}
}

func TestMemory_TargetOf(t *testing.T) {
	m := NewMemory()
	m.SetTarget("POOL", "vault")

	target, err := m.TargetOf(context.Background(), "POOL")
	if err != nil {
		t.Fatalf("TargetOf failed: %v", err)
	}
	if target != "vault" {
		t.Errorf("target = %q, want vault", target)
	}

	if _, err := m.TargetOf(context.Background(), "WETH"); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("expected ErrUnknownToken, got %v", err)
	}
}
