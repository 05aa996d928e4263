// Package reporting renders auction activity as CSV and Markdown for the
// offline simulator and operator tooling.
package reporting

import "time"

// Report summarizes the auction activity of one pair over a time window.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	PairID      string
	TokenIn     string
	TokenOut    string

	// Activity summary
	Summary Summary

	// Per-period aggregates (sorted by period)
	Periods []PeriodRow

	// Executed trades (sorted by timestamp)
	Trades []TradeRow
}

// Summary contains whole-window aggregates.
type Summary struct {
	TotalTrades     int
	TradedPeriods   int     // periods with at least one trade
	TotalAmountIn   float64 // input token volume
	TotalAmountOut  float64 // output token volume
	FinalTargetRate string  // pending target after the last trade
}

// PeriodRow aggregates one auction period.
type PeriodRow struct {
	Period     int64
	Trades     int
	AmountIn   float64
	AmountOut  float64
	FirstRate  string // rate of the period's earliest trade
	LastRate   string // rate of the period's latest trade
}

// TradeRow is one executed trade in report form.
type TradeRow struct {
	TradeID          string
	Account          string
	Kind             string
	Period           int64
	Timestamp        int64
	Phase            int
	PercentCompleted string
	Rate             string
	AmountIn         string
	AmountOut        string
}
