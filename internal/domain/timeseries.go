package domain

// RatePoint represents a sampled auction state observation.
// Corresponds to rate_timeseries table in ClickHouse. Amounts are float64:
// the timeseries feeds analytics, not pricing.
type RatePoint struct {
	PairID           string  // pair the sample belongs to
	TimestampMs      int64   // sample time, unix milliseconds
	Period           int64   // committed period index at sample time
	Phase            int     // curve phase (1, 2 or 3)
	PercentCompleted float64 // progress within the period
	Rate             float64 // instantaneous curve rate, 0 when singular
	TargetRate       float64 // phase-2 center of the current period
	MaxAmountOut     float64 // remaining liquidity cap
}
