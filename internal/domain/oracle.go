package domain

import "math"

// OracleSnapshot is a point-in-time benchmark rate from the market data
// oracle. The timestamp is the oracle's own and is carried as-is to preserve
// provenance; it is never re-derived locally.
type OracleSnapshot struct {
	LiveYield        float64 `json:"live_yield"`
	TimestampSeconds int64   `json:"timestamp_seconds"`
}

// YieldToBasisPoints converts a percentage yield to integer basis points
// (7.20% -> 720). The ledger stores yields in basis points only.
func YieldToBasisPoints(percent float64) int64 {
	return int64(math.Round(percent * 100))
}
