package reporting

import (
	"fmt"
	"strings"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/domain"
)

// RenderSamplesCSV renders curve samples as CSV string.
func RenderSamplesCSV(points []*domain.RatePoint) string {
	var sb strings.Builder

	sb.WriteString("pair_id,timestamp_ms,period,phase,percent_completed,rate,target_rate,max_amount_out\n")

	for _, p := range points {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%d,%.6f,%.6f,%.6f,%.6f\n",
			p.PairID,
			p.TimestampMs,
			p.Period,
			p.Phase,
			p.PercentCompleted,
			p.Rate,
			p.TargetRate,
			p.MaxAmountOut,
		))
	}

	return sb.String()
}

// RenderTradesCSV renders executed trades as CSV string.
func RenderTradesCSV(trades []TradeRow) string {
	var sb strings.Builder

	sb.WriteString("trade_id,account,kind,period,timestamp,phase,percent_completed,rate,amount_in,amount_out\n")

	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%d,%d,%s,%s,%s,%s\n",
			t.TradeID,
			t.Account,
			t.Kind,
			t.Period,
			t.Timestamp,
			t.Phase,
			t.PercentCompleted,
			t.Rate,
			t.AmountIn,
			t.AmountOut,
		))
	}

	return sb.String()
}
