package models

// -----------------------------------------------------------------------------
// Server State Structure
// -----------------------------------------------------------------------------

// MSnapshot is the unit of replacement: every fetch cycle produces one and
// the server swaps it in whole. Clients always see a complete, consistent
// table set.
type MSnapshot struct {
	Type                  string        `json:"type"` // "INITIAL" or "UPDATE"
	GeneratedAt           int64         `json:"generated_at"`
	TopVolume24h          []MMarketRow  `json:"top_volume_24h"`
	TopVolume7d           []MMarketRow  `json:"top_volume_7d"`
	Movers                []MMarketRow  `json:"movers"`
	MoversThresholdUsed   float64       `json:"movers_threshold_used"`
	MoversThresholdBumped bool          `json:"movers_threshold_bumped"` // true when the configured floor was above every pair
	Metrics               MFetchMetrics `json:"fetch_metrics"`
	Error                 string        `json:"error,omitempty"` // set when the cycle failed; rows then carry the previous data
}

// -----------------------------------------------------------------------------

type MFetchMetrics struct {
	FetchSeconds  float64 `json:"fetch_seconds"`
	PairsTotal    int     `json:"pairs_total"`  // rows returned by the exchange
	PairsRanked   int     `json:"pairs_ranked"` // rows surviving the quote filter + parse
	KlineRequests int     `json:"kline_requests"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for dashboard clients
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command string `json:"command"`
	View    string `json:"view"`   // "top_volume" or "movers"
	Period  string `json:"period"` // "24h" or "7d"
	Limit   int    `json:"limit"`
}
