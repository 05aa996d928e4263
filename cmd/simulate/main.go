// Package main provides an offline auction simulator: it steps a liquidation
// pair through a number of periods with synthetic takers and writes curve
// samples (CSV) and a trade report (Markdown) for analysis.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/auction"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/domain"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/factory"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/fixedpoint"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/reporting"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/router"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/source"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/storage/memory"
)

func main() {
	periods := flag.Int("periods", 5, "Number of auction periods to simulate")
	periodLength := flag.Int64("period-length", 86400, "Period length in seconds")
	targetRate := flag.String("target-rate", "1", "Initial target exchange rate")
	durationPct := flag.String("duration-pct", "20", "Phase two duration percent")
	rangePct := flag.String("range-pct", "10", "Phase two range percent")
	accrual := flag.String("accrual", "1000", "Output token amount accrued per period")
	tradesPerPeriod := flag.Int("trades-per-period", 4, "Trades executed per period")
	samplesPerPeriod := flag.Int("samples-per-period", 20, "Curve samples recorded per period")
	tokenIn := flag.String("token-in", "POOL", "Input token symbol")
	tokenOut := flag.String("token-out", "USDC", "Output token symbol")
	outputDir := flag.String("output-dir", "output", "Output directory for reports")

	flag.Parse()

	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)
	start := time.Now()

	if *periods < 1 || *tradesPerPeriod < 1 || *samplesPerPeriod < 1 {
		logger.Fatal("--periods, --trades-per-period and --samples-per-period must be positive")
	}

	target, err := fixedpoint.FromString(*targetRate)
	if err != nil {
		logger.Fatalf("Invalid --target-rate: %v", err)
	}
	duration, err := fixedpoint.FromString(*durationPct)
	if err != nil {
		logger.Fatalf("Invalid --duration-pct: %v", err)
	}
	rng, err := fixedpoint.FromString(*rangePct)
	if err != nil {
		logger.Fatalf("Invalid --range-pct: %v", err)
	}
	accrue, err := fixedpoint.FromString(*accrual)
	if err != nil {
		logger.Fatalf("Invalid --accrual: %v", err)
	}

	ctx := context.Background()

	// Simulated clock: the pair reads `now`, the loop advances it.
	offset := int64(0)
	now := offset + 1

	src := source.NewMemory()
	src.SetTarget(*tokenIn, "vault")

	pairStore := memory.NewPairStore()
	tradeStore := memory.NewTradeStore()

	fac := factory.New(src, factory.WithPairStore(pairStore), factory.WithLogger(logger))
	info, err := fac.CreatePair(ctx, auction.Config{
		TokenIn:                 *tokenIn,
		TokenOut:                *tokenOut,
		PeriodLength:            *periodLength,
		PeriodOffset:            offset,
		TargetExchangeRate:      target,
		PhaseTwoDurationPercent: duration,
		PhaseTwoRangePercent:    rng,
	}, auction.WithNow(func() int64 { return now }))
	if err != nil {
		logger.Fatalf("Failed to create pair: %v", err)
	}

	rtr := router.New(fac, router.WithTradeStore(tradeStore), router.WithLogger(logger))

	// Takers hold effectively unlimited input token.
	takers := []string{"taker-a", "taker-b", "taker-c"}
	for _, taker := range takers {
		if err := src.Credit(*tokenIn, taker, fixedpoint.FromInt64(1_000_000_000)); err != nil {
			logger.Fatalf("Failed to fund taker: %v", err)
		}
	}

	// Per trade, sell an equal slice of the period's accrual.
	lot, err := accrue.DivInt(int64(*tradesPerPeriod))
	if err != nil {
		logger.Fatalf("Failed to size trade lot: %v", err)
	}
	noLimit := fixedpoint.Max()

	var samples []*domain.RatePoint

	for period := 1; period <= *periods; period++ {
		periodStart := offset + int64(period-1)*(*periodLength)

		if err := src.Accrue(*tokenOut, accrue); err != nil {
			logger.Fatalf("Failed to accrue reserve: %v", err)
		}

		sampleStep := *periodLength / int64(*samplesPerPeriod)
		tradeStep := *periodLength / int64(*tradesPerPeriod+1)
		if sampleStep < 1 || tradeStep < 1 {
			logger.Fatal("period length too short for the requested trade/sample counts")
		}
		nextTrade := 1

		for tick := int64(1); tick <= *periodLength; tick += sampleStep {
			now = periodStart + tick

			// Execute trades at their scheduled instants within the period
			for nextTrade <= *tradesPerPeriod && int64(nextTrade)*tradeStep <= tick {
				now = periodStart + int64(nextTrade)*tradeStep
				taker := takers[(period+nextTrade)%len(takers)]
				trade, err := rtr.SwapExactAmountOut(ctx, info.PairID, taker, lot, noLimit)
				if err != nil {
					logger.Printf("period %d trade %d rejected: %v", period, nextTrade, err)
				} else {
					logger.Printf("period %d trade %d: %s pays %s for %s at rate %s",
						period, nextTrade, taker, trade.AmountIn, trade.AmountOut, trade.Rate)
				}
				nextTrade++
				now = periodStart + tick
			}

			snap, err := rtr.State(info.PairID)
			if err != nil {
				logger.Fatalf("Failed to snapshot pair: %v", err)
			}
			samples = append(samples, &domain.RatePoint{
				PairID:           info.PairID,
				TimestampMs:      now * 1000,
				Period:           snap.Period,
				Phase:            snap.Phase,
				PercentCompleted: snap.PercentCompleted.Float64(),
				Rate:             snap.Rate.Float64(),
				TargetRate:       snap.TargetRate.Float64(),
				MaxAmountOut:     snap.MaxAmountOut.Float64(),
			})
		}
	}

	// Final pending target for the report
	finalSnap, err := rtr.State(info.PairID)
	if err != nil {
		logger.Fatalf("Failed to snapshot pair: %v", err)
	}

	report, err := reporting.NewGenerator(pairStore, tradeStore).
		Generate(ctx, info.PairID, finalSnap.NextTargetRate.String())
	if err != nil {
		logger.Fatalf("Failed to generate report: %v", err)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		logger.Fatalf("Failed to create output directory: %v", err)
	}

	samplesPath := filepath.Join(*outputDir, "samples.csv")
	if err := os.WriteFile(samplesPath, []byte(reporting.RenderSamplesCSV(samples)), 0644); err != nil {
		logger.Fatalf("Failed to write %s: %v", samplesPath, err)
	}

	tradesPath := filepath.Join(*outputDir, "trades.csv")
	if err := os.WriteFile(tradesPath, []byte(reporting.RenderTradesCSV(report.Trades)), 0644); err != nil {
		logger.Fatalf("Failed to write %s: %v", tradesPath, err)
	}

	reportPath := filepath.Join(*outputDir, "report.md")
	if err := os.WriteFile(reportPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
		logger.Fatalf("Failed to write %s: %v", reportPath, err)
	}

	fmt.Printf("Simulated %d periods, %d trades, %d samples in %v\n",
		*periods, report.Summary.TotalTrades, len(samples), time.Since(start))
	fmt.Printf("Reports written to %s/\n", *outputDir)
}
