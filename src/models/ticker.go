package models

// -----------------------------------------------------------------------------
// Raw exchange payloads. Numeric fields arrive as strings and are kept that
// way here; parsing happens in the analysis layer.
// -----------------------------------------------------------------------------

// MTicker24h is one row of the 24-hour rolling ticker endpoint.
type MTicker24h struct {
	Symbol             string `json:"symbol"`
	PriceChange        string `json:"priceChange"`
	PriceChangePercent string `json:"priceChangePercent"`
	WeightedAvgPrice   string `json:"weightedAvgPrice"`
	LastPrice          string `json:"lastPrice"`
	LastQty            string `json:"lastQty"`
	OpenPrice          string `json:"openPrice"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	Volume             string `json:"volume"`      // base asset volume
	QuoteVolume        string `json:"quoteVolume"` // quote asset (USDT) volume
	OpenTime           int64  `json:"openTime"`
	CloseTime          int64  `json:"closeTime"`
	Count              int64  `json:"count"`
}

// -----------------------------------------------------------------------------

// MKline is one candlestick. The wire format is a positional array with
// mixed number/string entries; the data source decodes it into this struct.
type MKline struct {
	OpenTime    int64   `json:"open_time"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`       // base asset volume
	CloseTime   int64   `json:"close_time"`
	QuoteVolume float64 `json:"quote_volume"` // quote asset volume
}

// -----------------------------------------------------------------------------

// MExchangeInfo carries the subset of the exchangeInfo endpoint we use.
type MExchangeInfo struct {
	Symbols []MSymbolInfo `json:"symbols"`
}

type MSymbolInfo struct {
	Symbol     string `json:"symbol"`
	Status     string `json:"status"` // "TRADING" while the pair is live
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
}
