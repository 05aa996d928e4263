package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputePairID computes a deterministic pair identifier using SHA256.
// Formula: SHA256(token_in|token_out|period_length|period_offset), rendered
// as base58 over the first 20 bytes so IDs look like short addresses.
func ComputePairID(
	tokenIn string,
	tokenOut string,
	periodLength int64,
	periodOffset int64,
) string {
	data := fmt.Sprintf("%s|%s|%d|%d",
		tokenIn,
		tokenOut,
		periodLength,
		periodOffset,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:20])
}
