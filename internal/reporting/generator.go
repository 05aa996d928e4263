package reporting

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	pairStore  storage.PairStore
	tradeStore storage.TradeStore
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(pairStore storage.PairStore, tradeStore storage.TradeStore) *Generator {
	return &Generator{
		pairStore:  pairStore,
		tradeStore: tradeStore,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report of all activity of one pair. finalTargetRate is
// the pending target after the last trade, as reported by the engine.
func (g *Generator) Generate(ctx context.Context, pairID, finalTargetRate string) (*Report, error) {
	pair, err := g.pairStore.GetByID(ctx, pairID)
	if err != nil {
		return nil, err
	}

	trades, err := g.tradeStore.GetByPairID(ctx, pairID)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt: g.now(),
		PairID:      pair.PairID,
		TokenIn:     pair.TokenIn,
		TokenOut:    pair.TokenOut,
		Summary: Summary{
			TotalTrades:     len(trades),
			FinalTargetRate: finalTargetRate,
		},
	}

	byPeriod := make(map[int64]*PeriodRow)
	for _, t := range trades {
		amountIn := parseAmount(t.AmountIn)
		amountOut := parseAmount(t.AmountOut)

		report.Summary.TotalAmountIn += amountIn
		report.Summary.TotalAmountOut += amountOut

		row, ok := byPeriod[t.Period]
		if !ok {
			row = &PeriodRow{Period: t.Period, FirstRate: t.Rate}
			byPeriod[t.Period] = row
		}
		row.Trades++
		row.AmountIn += amountIn
		row.AmountOut += amountOut
		row.LastRate = t.Rate

		report.Trades = append(report.Trades, TradeRow{
			TradeID:          t.TradeID,
			Account:          t.Account,
			Kind:             t.Kind,
			Period:           t.Period,
			Timestamp:        t.Timestamp,
			Phase:            t.Phase,
			PercentCompleted: t.PercentCompleted,
			Rate:             t.Rate,
			AmountIn:         t.AmountIn,
			AmountOut:        t.AmountOut,
		})
	}

	report.Summary.TradedPeriods = len(byPeriod)

	for _, row := range byPeriod {
		report.Periods = append(report.Periods, *row)
	}
	sort.Slice(report.Periods, func(i, j int) bool {
		return report.Periods[i].Period < report.Periods[j].Period
	})

	return report, nil
}

// parseAmount converts a fixed-point decimal string to float64 for report
// aggregates. Unparseable values count as zero.
func parseAmount(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
