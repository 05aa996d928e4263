package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/auction"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/fixedpoint"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/source"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/storage"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/storage/memory"
)

func testConfig(tokenOut string) auction.Config {
	return auction.Config{
		TokenIn:                 "POOL",
		TokenOut:                tokenOut,
		PeriodLength:            86400,
		PeriodOffset:            86400,
		TargetExchangeRate:      fixedpoint.FromInt64(1),
		PhaseTwoDurationPercent: fixedpoint.FromInt64(20),
		PhaseTwoRangePercent:    fixedpoint.FromInt64(10),
	}
}

func TestFactory_CreateAndGet(t *testing.T) {
	f := New(source.NewMemory())
	ctx := context.Background()

	info, err := f.CreatePair(ctx, testConfig("USDC"))
	require.NoError(t, err)
	assert.NotEmpty(t, info.PairID)
	assert.Equal(t, "POOL", info.TokenIn)
	assert.Equal(t, "USDC", info.TokenOut)
	assert.Equal(t, "1.000000000000000000", info.TargetRate)
	assert.NotZero(t, info.CreatedAt)

	pair, err := f.GetPair(info.PairID)
	require.NoError(t, err)
	assert.Equal(t, "USDC", pair.Config().TokenOut)

	got, err := f.GetInfo(info.PairID)
	require.NoError(t, err)
	assert.Equal(t, info.PairID, got.PairID)

	assert.Equal(t, 1, f.TotalPairs())
}

func TestFactory_DeterministicID(t *testing.T) {
	cfg := testConfig("USDC")
	a := New(source.NewMemory())
	b := New(source.NewMemory())

	infoA, err := a.CreatePair(context.Background(), cfg)
	require.NoError(t, err)
	infoB, err := b.CreatePair(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, infoA.PairID, infoB.PairID)
}

func TestFactory_DuplicatePair(t *testing.T) {
	f := New(source.NewMemory())
	ctx := context.Background()

	_, err := f.CreatePair(ctx, testConfig("USDC"))
	require.NoError(t, err)

	_, err = f.CreatePair(ctx, testConfig("USDC"))
	assert.ErrorIs(t, err, ErrPairExists)
	assert.Equal(t, 1, f.TotalPairs())
}

func TestFactory_InvalidConfig(t *testing.T) {
	f := New(source.NewMemory())

	bad := testConfig("USDC")
	bad.PeriodLength = 0
	_, err := f.CreatePair(context.Background(), bad)
	assert.Error(t, err)
	assert.Equal(t, 0, f.TotalPairs())
}

func TestFactory_UnknownPair(t *testing.T) {
	f := New(source.NewMemory())

	_, err := f.GetPair("nope")
	assert.ErrorIs(t, err, ErrUnknownPair)

	_, err = f.GetInfo("nope")
	assert.ErrorIs(t, err, ErrUnknownPair)
}

func TestFactory_ListPairsOrder(t *testing.T) {
	f := New(source.NewMemory())
	ctx := context.Background()

	first, err := f.CreatePair(ctx, testConfig("USDC"))
	require.NoError(t, err)
	second, err := f.CreatePair(ctx, testConfig("WETH"))
	require.NoError(t, err)

	pairs := f.ListPairs()
	require.Len(t, pairs, 2)
	assert.Equal(t, first.PairID, pairs[0].PairID)
	assert.Equal(t, second.PairID, pairs[1].PairID)
}

func TestFactory_PersistsToStore(t *testing.T) {
	store := memory.NewPairStore()
	f := New(source.NewMemory(), WithPairStore(store))
	ctx := context.Background()

	info, err := f.CreatePair(ctx, testConfig("USDC"))
	require.NoError(t, err)

	persisted, err := store.GetByID(ctx, info.PairID)
	require.NoError(t, err)
	assert.Equal(t, info.TokenOut, persisted.TokenOut)

	// A store-level duplicate surfaces as ErrPairExists and leaves the
	// registry untouched.
	fresh := New(source.NewMemory(), WithPairStore(store))
	_, err = fresh.CreatePair(ctx, testConfig("USDC"))
	assert.ErrorIs(t, err, ErrPairExists)
	assert.Equal(t, 0, fresh.TotalPairs())

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFactory_EachPair(t *testing.T) {
	f := New(source.NewMemory())
	ctx := context.Background()

	_, err := f.CreatePair(ctx, testConfig("USDC"))
	require.NoError(t, err)
	_, err = f.CreatePair(ctx, testConfig("WETH"))
	require.NoError(t, err)

	var seen []string
	f.EachPair(func(pairID string, pair *auction.Pair) {
		seen = append(seen, pair.Config().TokenOut)
	})
	assert.Equal(t, []string{"USDC", "WETH"}, seen)
}
