package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Liquidation Auction Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Pair: %s (%s -> %s)\n\n", r.PairID, r.TokenIn, r.TokenOut))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", r.Summary.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Traded Periods | %d |\n", r.Summary.TradedPeriods))
	sb.WriteString(fmt.Sprintf("| Total Amount In | %.6f |\n", r.Summary.TotalAmountIn))
	sb.WriteString(fmt.Sprintf("| Total Amount Out | %.6f |\n", r.Summary.TotalAmountOut))
	sb.WriteString(fmt.Sprintf("| Final Target Rate | %s |\n", r.Summary.FinalTargetRate))
	sb.WriteString("\n")

	// Per-period aggregates
	sb.WriteString("## Periods\n\n")
	if len(r.Periods) > 0 {
		sb.WriteString("| Period | Trades | Amount In | Amount Out | First Rate | Last Rate |\n")
		sb.WriteString("|--------|--------|-----------|------------|------------|----------|\n")
		for _, p := range r.Periods {
			sb.WriteString(fmt.Sprintf("| %d | %d | %.6f | %.6f | %s | %s |\n",
				p.Period, p.Trades, p.AmountIn, p.AmountOut, p.FirstRate, p.LastRate))
		}
	} else {
		sb.WriteString("No periods with activity.\n")
	}
	sb.WriteString("\n")

	// Trades
	sb.WriteString("## Trades\n\n")
	if len(r.Trades) > 0 {
		sb.WriteString("| Trade | Account | Kind | Period | Phase | Percent | Rate | In | Out |\n")
		sb.WriteString("|-------|---------|------|--------|-------|---------|------|----|----|\n")
		for _, t := range r.Trades {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %d | %s | %s | %s | %s |\n",
				shortID(t.TradeID), t.Account, t.Kind, t.Period, t.Phase,
				t.PercentCompleted, t.Rate, t.AmountIn, t.AmountOut))
		}
	} else {
		sb.WriteString("No trades executed.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// shortID truncates a hex trade ID for table readability.
func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}
