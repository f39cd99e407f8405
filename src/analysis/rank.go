package analysis

import (
	"sort"
	"strconv"
	"strings"

	"volume-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// Row building
// -----------------------------------------------------------------------------

// BuildRows turns raw ticker rows into parsed market rows. Pairs not quoted
// in one of quoteAssets are skipped. A row whose quote volume does not parse
// is excluded (it cannot be ranked); unparsable price or change fields
// degrade to zero so the row still shows up.
func BuildRows(tickers []models.MTicker24h, quoteAssets []string) []models.MMarketRow {
	rows := make([]models.MMarketRow, 0, len(tickers))

	for _, t := range tickers {
		quote := matchQuote(t.Symbol, quoteAssets)
		if quote == "" {
			continue
		}

		quoteVolume, err := strconv.ParseFloat(t.QuoteVolume, 64)
		if err != nil {
			continue
		}

		rows = append(rows, models.MMarketRow{
			Symbol:        t.Symbol,
			Coin:          BaseAsset(t.Symbol, quote),
			Price:         parseOrZero(t.LastPrice),
			ChangePercent: parseOrZero(t.PriceChangePercent),
			QuoteVolume:   quoteVolume,
			BaseVolume:    parseOrZero(t.Volume),
			Window:        "24h",
		})
	}

	return rows
}

// -----------------------------------------------------------------------------

// matchQuote returns the quote asset the symbol is priced in, or "" when the
// pair is quoted in none of the configured assets. Futures symbols may carry
// a delivery suffix ("BTCUSDT_250926"), which still counts.
func matchQuote(symbol string, quoteAssets []string) string {
	base := symbol
	if i := strings.Index(base, "_"); i >= 0 {
		base = base[:i]
	}
	for _, q := range quoteAssets {
		if strings.HasSuffix(base, q) && len(base) > len(q) {
			return q
		}
	}
	return ""
}

// -----------------------------------------------------------------------------

// BaseAsset extracts the base asset from a symbol, e.g. "BTC" from
// "BTCUSDT" or "BTCUSDT_250926".
func BaseAsset(symbol, quote string) string {
	if i := strings.Index(symbol, "_"); i >= 0 {
		symbol = symbol[:i]
	}
	return strings.TrimSuffix(symbol, quote)
}

// -----------------------------------------------------------------------------

func parseOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// -----------------------------------------------------------------------------
// Ranking
// -----------------------------------------------------------------------------

// TopByVolume returns up to limit rows ordered by quote volume, largest
// first. The input slice is not modified.
func TopByVolume(rows []models.MMarketRow, limit int) []models.MMarketRow {
	out := make([]models.MMarketRow, len(rows))
	copy(out, rows)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].QuoteVolume > out[j].QuoteVolume
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// -----------------------------------------------------------------------------

// HighVolumeMovers returns up to limit rows with quote volume at or above
// minVolume, ordered by percent change, largest first. When minVolume is
// above every pair's volume the 75th-percentile volume is used instead; if
// that still selects nothing, the top 20 by volume are taken. The returned
// threshold is the floor actually applied and bumped reports whether it
// differs from minVolume.
func HighVolumeMovers(rows []models.MMarketRow, minVolume float64, limit int) (movers []models.MMarketRow, threshold float64, bumped bool) {
	threshold = minVolume

	if len(rows) == 0 {
		return nil, threshold, false
	}

	maxVolume := rows[0].QuoteVolume
	for _, r := range rows[1:] {
		if r.QuoteVolume > maxVolume {
			maxVolume = r.QuoteVolume
		}
	}

	if maxVolume < minVolume {
		// Nothing clears the configured floor; fall back to the top quartile
		volumes := make([]float64, 0, len(rows))
		for _, r := range rows {
			volumes = append(volumes, r.QuoteVolume)
		}
		threshold = quantile(volumes, 0.75)
		bumped = true
	}

	filtered := make([]models.MMarketRow, 0, len(rows))
	for _, r := range rows {
		if r.QuoteVolume >= threshold {
			filtered = append(filtered, r)
		}
	}

	if len(filtered) == 0 {
		filtered = TopByVolume(rows, 20)
		bumped = true
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].ChangePercent > filtered[j].ChangePercent
	})

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, threshold, bumped
}

// -----------------------------------------------------------------------------

// WeeklyStats folds daily candles into a 7-day aggregate. The percent
// change is close-over-first-close, matching the 24h ticker's convention.
func WeeklyStats(symbol string, klines []models.MKline) (models.MWeeklyStats, bool) {
	if len(klines) == 0 {
		return models.MWeeklyStats{}, false
	}

	var volume float64
	for _, k := range klines {
		volume += k.QuoteVolume
	}

	first := klines[0].Close
	last := klines[len(klines)-1].Close

	var change float64
	if first > 0 {
		change = (last - first) / first * 100
	}

	return models.MWeeklyStats{
		Symbol:        symbol,
		Volume:        volume,
		ChangePercent: change,
	}, true
}

// -----------------------------------------------------------------------------

// WeeklyRows joins the 24h rows with their 7-day aggregates and re-ranks by
// 7-day volume. Symbols without weekly data (failed kline fetches) are
// dropped rather than shown with holes.
func WeeklyRows(rows []models.MMarketRow, weekly map[string]models.MWeeklyStats, limit int) []models.MMarketRow {
	out := make([]models.MMarketRow, 0, len(rows))

	for _, r := range rows {
		w, ok := weekly[r.Symbol]
		if !ok {
			continue
		}
		out = append(out, models.MMarketRow{
			Symbol:        r.Symbol,
			Coin:          r.Coin,
			Price:         r.Price,
			ChangePercent: w.ChangePercent,
			QuoteVolume:   w.Volume,
			BaseVolume:    r.BaseVolume,
			Window:        "7d",
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].QuoteVolume > out[j].QuoteVolume
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// -----------------------------------------------------------------------------

// quantile computes the q-quantile with linear interpolation over a copy of
// the values.
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
