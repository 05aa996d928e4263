package domain

// PairInfo describes a registered liquidation pair.
type PairInfo struct {
	PairID       string // deterministic identifier assigned at creation
	TokenIn      string // token takers pay with
	TokenOut     string // token sold by the auction
	PeriodLength int64  // period length in seconds
	PeriodOffset int64  // unix timestamp where period counting starts
	TargetRate   string // initial target exchange rate, fixed-point decimal
	CreatedAt    int64  // registration timestamp (ms)
}
