package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(pair_id|account|kind|period|timestamp)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	pairID string,
	account string,
	kind string,
	period int64,
	timestamp int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d",
		pairID,
		account,
		kind,
		period,
		timestamp,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
