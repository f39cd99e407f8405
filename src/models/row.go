package models

// -----------------------------------------------------------------------------
// Parsed, display-ready rows. A snapshot replaces all rows wholesale on
// every refresh; nothing here is merged or persisted.
// -----------------------------------------------------------------------------

// MMarketRow is one table row of the dashboard.
type MMarketRow struct {
	Symbol        string  `json:"symbol"`         // e.g. "BTCUSDT"
	Coin          string  `json:"coin"`           // base asset, e.g. "BTC"
	Price         float64 `json:"price"`          // last price in quote asset
	ChangePercent float64 `json:"change_percent"` // percent change over the window
	QuoteVolume   float64 `json:"quote_volume"`   // traded volume in quote asset
	BaseVolume    float64 `json:"base_volume"`    // traded volume in base asset
	Window        string  `json:"window"`         // "24h" or "7d"
}

// -----------------------------------------------------------------------------

// MWeeklyStats is the 7-day aggregate derived from daily candles.
type MWeeklyStats struct {
	Symbol        string  `json:"symbol"`
	Volume        float64 `json:"volume"` // sum of daily base volumes
	ChangePercent float64 `json:"change_percent"`
}
