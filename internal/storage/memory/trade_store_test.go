package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/domain"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/storage"
)

func TestTradeStore_InsertAndGet(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trade := &domain.LiquidationTrade{
		TradeID:   "t1",
		PairID:    "pair1",
		Account:   "alice",
		Kind:      domain.TradeKindExactIn,
		Period:    1,
		Timestamp: 129600,
		Phase:     2,
		Rate:      "1.050000000000000000",
		AmountIn:  "1.000000000000000000",
		AmountOut: "1.050000000000000000",
	}

	if err := store.Insert(ctx, trade); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := store.GetByPairID(ctx, "pair1")
	if err != nil {
		t.Fatalf("GetByPairID failed: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("Expected 1 trade, got %d", len(result))
	}
	if result[0].Rate != "1.050000000000000000" {
		t.Errorf("Rate mismatch: got %s", result[0].Rate)
	}
}

func TestTradeStore_DuplicateKey(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trade := &domain.LiquidationTrade{TradeID: "t1", PairID: "pair1", Timestamp: 1000}

	if err := store.Insert(ctx, trade); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, trade); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTradeStore_InvalidInput(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil trade: expected ErrInvalidInput, got %v", err)
	}
	if err := store.Insert(ctx, &domain.LiquidationTrade{PairID: "p"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("missing trade_id: expected ErrInvalidInput, got %v", err)
	}
}

func TestTradeStore_GetByPeriod(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trades := []*domain.LiquidationTrade{
		{TradeID: "t1", PairID: "pair1", Period: 1, Timestamp: 100000},
		{TradeID: "t2", PairID: "pair1", Period: 2, Timestamp: 200000},
		{TradeID: "t3", PairID: "pair1", Period: 2, Timestamp: 190000},
		{TradeID: "t4", PairID: "pair2", Period: 2, Timestamp: 195000},
	}
	for _, tr := range trades {
		if err := store.Insert(ctx, tr); err != nil {
			t.Fatalf("Insert %s failed: %v", tr.TradeID, err)
		}
	}

	result, err := store.GetByPeriod(ctx, "pair1", 2)
	if err != nil {
		t.Fatalf("GetByPeriod failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 trades, got %d", len(result))
	}
	// Ordered by timestamp ASC.
	if result[0].TradeID != "t3" || result[1].TradeID != "t2" {
		t.Errorf("wrong order: %s, %s", result[0].TradeID, result[1].TradeID)
	}
}

func TestTradeStore_GetByTimeRange(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	for _, tr := range []*domain.LiquidationTrade{
		{TradeID: "t1", PairID: "pair1", Timestamp: 100},
		{TradeID: "t2", PairID: "pair1", Timestamp: 200},
		{TradeID: "t3", PairID: "pair1", Timestamp: 300},
	} {
		if err := store.Insert(ctx, tr); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.GetByTimeRange(ctx, "pair1", 100, 200)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("Expected 2 trades in range (inclusive), got %d", len(result))
	}
}

func TestTradeStore_CopiesOnReturn(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trade := &domain.LiquidationTrade{TradeID: "t1", PairID: "pair1", Timestamp: 100}
	if err := store.Insert(ctx, trade); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, _ := store.GetByPairID(ctx, "pair1")
	result[0].Rate = "tampered"

	again, _ := store.GetByPairID(ctx, "pair1")
	if again[0].Rate == "tampered" {
		t.Error("store returned a shared pointer, not a copy")
	}
}
