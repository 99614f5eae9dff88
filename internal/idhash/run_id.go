package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"

	"pbv-lab/internal/profile"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(symbol|mode|from_ms|to_ms|window|bins|center|round|pct|n)
// Returns the base58-encoded hash (43 or 44 characters).
func ComputeRunID(
	symbol string,
	mode string,
	params profile.TopNParams,
	fromMs int64,
	toMs int64,
) string {
	data := fmt.Sprintf("%s|%s|%d|%d|%d|%d|%t|%d|%t|%d",
		symbol,
		mode,
		fromMs,
		toMs,
		params.WindowSize,
		params.Bins,
		params.CenterLabel,
		params.Round,
		params.Pct,
		params.N,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
