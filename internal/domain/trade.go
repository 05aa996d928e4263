package domain

// LiquidationTrade represents one executed swap against a liquidation pair.
// Corresponds to liquidation_trades table in PostgreSQL.
type LiquidationTrade struct {
	TradeID          string // deterministic SHA256-derived identifier
	PairID           string // FK to the pair registry
	Account          string // taker account receiving the output token
	Kind             string // "exact_in" | "exact_out"
	Period           int64  // auction period the trade executed in
	Timestamp        int64  // execution time, unix seconds
	Phase            int    // curve phase at execution (1, 2 or 3)
	PercentCompleted string // progress within the period, fixed-point decimal
	Rate             string // execution rate, fixed-point decimal string
	AmountIn         string // input token amount, fixed-point decimal string
	AmountOut        string // output token amount, fixed-point decimal string
	CreatedAt        int64  // record creation timestamp (ms)
}

// Trade kind constants
const (
	TradeKindExactIn  = "exact_in"
	TradeKindExactOut = "exact_out"
)
