package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"volume-dashboard/src/analysis"
	"volume-dashboard/src/helpers"
	"volume-dashboard/src/metrics"
	"volume-dashboard/src/models"
	"volume-dashboard/src/network"

	"go.uber.org/zap"
)

// -----------------------------------------------------------------------------
// BinanceSource
// -----------------------------------------------------------------------------

type BinanceSource struct {
	Config  *models.MConfig
	Network *network.Manager
	Logger  *zap.Logger

	refresh chan struct{}

	// symbol -> status from exchangeInfo, loaded at Start. Empty map means
	// the lookup failed and no status filtering is applied.
	statusMu     sync.RWMutex
	symbolStatus map[string]string
}

// -----------------------------------------------------------------------------

func NewBinanceSource(cfg *models.MConfig, nm *network.Manager, log *zap.Logger) *BinanceSource {
	return &BinanceSource{
		Config:       cfg,
		Network:      nm,
		Logger:       log,
		refresh:      make(chan struct{}, 1),
		symbolStatus: make(map[string]string),
	}
}

// -----------------------------------------------------------------------------

func (s *BinanceSource) Name() string {
	return "binance-futures"
}

// -----------------------------------------------------------------------------
// REST endpoints
// -----------------------------------------------------------------------------

// FetchTicker24h fetches 24-hour rolling statistics for all symbols.
func (s *BinanceSource) FetchTicker24h(ctx context.Context) ([]models.MTicker24h, error) {
	body, err := s.Network.Get(ctx, s.Config.Exchange.BaseURL+"/ticker/24hr", nil)
	if err != nil {
		return nil, err
	}

	var tickers []models.MTicker24h
	if err := json.Unmarshal(body, &tickers); err != nil {
		return nil, helpers.NewDataSourceError("decode ticker response", err)
	}

	return tickers, nil
}

// -----------------------------------------------------------------------------

// FetchKlines fetches candlestick data for one symbol.
func (s *BinanceSource) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]models.MKline, error) {
	params := map[string]string{
		"symbol":   symbol,
		"interval": interval,
		"limit":    strconv.Itoa(limit),
	}

	body, err := s.Network.Get(ctx, s.Config.Exchange.BaseURL+"/klines", params)
	if err != nil {
		return nil, err
	}

	var raw [][]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, helpers.NewDataSourceError("decode klines response", err)
	}

	klines := make([]models.MKline, 0, len(raw))
	for _, fields := range raw {
		k, err := parseKline(fields)
		if err != nil {
			return nil, helpers.NewDataSourceError(fmt.Sprintf("parse kline for %s", symbol), err)
		}
		klines = append(klines, k)
	}

	return klines, nil
}

// -----------------------------------------------------------------------------

// FetchExchangeInfo fetches symbol metadata (trading status, base/quote).
func (s *BinanceSource) FetchExchangeInfo(ctx context.Context) (*models.MExchangeInfo, error) {
	body, err := s.Network.Get(ctx, s.Config.Exchange.BaseURL+"/exchangeInfo", nil)
	if err != nil {
		return nil, err
	}

	var info models.MExchangeInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, helpers.NewDataSourceError("decode exchangeInfo response", err)
	}

	return &info, nil
}

// -----------------------------------------------------------------------------
// Snapshot assembly
// -----------------------------------------------------------------------------

// FetchSnapshot performs one full cycle: ticker fetch, reshape, 7d kline
// fan-out for the top symbols, movers ranking.
func (s *BinanceSource) FetchSnapshot(ctx context.Context) (*models.MSnapshot, error) {
	start := time.Now()

	tickers, err := s.FetchTicker24h(ctx)
	if err != nil {
		return nil, err
	}

	rows := analysis.BuildRows(tickers, s.Config.Exchange.QuoteAssets)
	rows = s.filterTrading(rows)

	maxLimit := s.Config.Exchange.MaxLimit
	top24 := analysis.TopByVolume(rows, maxLimit)

	weekly, klineRequests := s.fetchWeeklyBatch(ctx, top24)
	top7 := analysis.WeeklyRows(top24, weekly, maxLimit)

	movers, threshold, bumped := analysis.HighVolumeMovers(rows, s.Config.Exchange.MinMoverVolume, maxLimit)

	elapsed := time.Since(start)
	metrics.IncrementCycles()
	metrics.SetPairsRanked(len(rows))
	metrics.RecordCycleDuration(elapsed)

	return &models.MSnapshot{
		Type:                  "UPDATE",
		GeneratedAt:           time.Now().Unix(),
		TopVolume24h:          top24,
		TopVolume7d:           top7,
		Movers:                movers,
		MoversThresholdUsed:   threshold,
		MoversThresholdBumped: bumped,
		Metrics: models.MFetchMetrics{
			FetchSeconds:  elapsed.Seconds(),
			PairsTotal:    len(tickers),
			PairsRanked:   len(rows),
			KlineRequests: klineRequests,
		},
	}, nil
}

// -----------------------------------------------------------------------------

// fetchWeeklyBatch fetches 7 daily candles per symbol, bounded by the
// configured concurrency. Individual failures only drop that symbol from
// the 7d view.
func (s *BinanceSource) fetchWeeklyBatch(ctx context.Context, rows []models.MMarketRow) (map[string]models.MWeeklyStats, int) {
	results := make(map[string]models.MWeeklyStats, len(rows))
	if len(rows) == 0 {
		return results, 0
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	// Semaphore for concurrency limit
	sem := make(chan struct{}, s.Config.Network.ConcurrentRequests)

	for _, row := range rows {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			klines, err := s.FetchKlines(ctx, symbol, "1d", 7)
			if err != nil {
				s.Logger.Warn("weekly kline fetch failed",
					zap.String("symbol", symbol), zap.Error(err))
				return
			}

			if stats, ok := analysis.WeeklyStats(symbol, klines); ok {
				mu.Lock()
				results[symbol] = stats
				mu.Unlock()
			}
		}(row.Symbol)
	}

	wg.Wait()

	s.Logger.Debug("weekly batch complete",
		zap.Int("requested", len(rows)), zap.Int("resolved", len(results)))

	return results, len(rows)
}

// -----------------------------------------------------------------------------

// filterTrading drops pairs the exchange reports as not trading. A missing
// status map (exchangeInfo unavailable) leaves rows untouched.
func (s *BinanceSource) filterTrading(rows []models.MMarketRow) []models.MMarketRow {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()

	if len(s.symbolStatus) == 0 {
		return rows
	}

	out := rows[:0]
	for _, r := range rows {
		status, known := s.symbolStatus[r.Symbol]
		if !known || status == "TRADING" {
			out = append(out, r)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

func (s *BinanceSource) loadExchangeInfo(ctx context.Context) {
	info, err := s.FetchExchangeInfo(ctx)
	if err != nil {
		s.Logger.Warn("exchangeInfo unavailable, skipping status filter", zap.Error(err))
		return
	}

	statuses := make(map[string]string, len(info.Symbols))
	for _, sym := range info.Symbols {
		statuses[sym.Symbol] = sym.Status
	}

	s.statusMu.Lock()
	s.symbolStatus = statuses
	s.statusMu.Unlock()

	s.Logger.Info("exchangeInfo loaded", zap.Int("symbols", len(statuses)))
}

// -----------------------------------------------------------------------------
// Polling loop
// -----------------------------------------------------------------------------

// TriggerRefresh requests an immediate cycle. Non-blocking; a pending
// trigger is enough, extra ones coalesce.
func (s *BinanceSource) TriggerRefresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// -----------------------------------------------------------------------------

// Start runs the poll loop until ctx is cancelled. The first cycle runs
// immediately; afterwards cycles fire on the update interval or on a manual
// refresh trigger.
func (s *BinanceSource) Start(ctx context.Context, outputChan chan<- *models.MSnapshot, wg *sync.WaitGroup) error {
	interval := time.Duration(s.Config.DataSource.UpdateIntervalSeconds) * time.Second

	wg.Add(1)
	go func() {
		defer wg.Done()

		s.loadExchangeInfo(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.runCycle(ctx, outputChan)

		for {
			select {
			case <-ctx.Done():
				s.Logger.Info("data source stopped")
				return
			case <-ticker.C:
			case <-s.refresh:
				// Manual refresh restarts the countdown
				ticker.Reset(interval)
			}
			s.runCycle(ctx, outputChan)
		}
	}()

	return nil
}

// -----------------------------------------------------------------------------

func (s *BinanceSource) runCycle(ctx context.Context, outputChan chan<- *models.MSnapshot) {
	snapshot, err := s.FetchSnapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.IncrementErrors()
		s.Logger.Error("fetch cycle failed", zap.Error(err))

		// Push an error-only snapshot; the server keeps the previous rows
		// and surfaces the message on screen.
		snapshot = &models.MSnapshot{
			Type:        "UPDATE",
			GeneratedAt: time.Now().Unix(),
			Error:       err.Error(),
		}
	}

	select {
	case outputChan <- snapshot:
	case <-ctx.Done():
	}
}

// -----------------------------------------------------------------------------
// Kline wire format
// -----------------------------------------------------------------------------

// parseKline decodes one positional candle array. Timestamps arrive as JSON
// numbers, prices and volumes as quoted strings.
func parseKline(fields []interface{}) (models.MKline, error) {
	if len(fields) < 8 {
		return models.MKline{}, fmt.Errorf("kline has %d fields, want at least 8", len(fields))
	}

	openTime, err := asInt64(fields[0])
	if err != nil {
		return models.MKline{}, fmt.Errorf("open time: %w", err)
	}
	closeTime, err := asInt64(fields[6])
	if err != nil {
		return models.MKline{}, fmt.Errorf("close time: %w", err)
	}

	k := models.MKline{OpenTime: openTime, CloseTime: closeTime}

	for i, dst := range map[int]*float64{
		1: &k.Open, 2: &k.High, 3: &k.Low, 4: &k.Close, 5: &k.Volume, 7: &k.QuoteVolume,
	} {
		v, err := asFloat(fields[i])
		if err != nil {
			return models.MKline{}, fmt.Errorf("field %d: %w", i, err)
		}
		*dst = v
	}

	return k, nil
}

// -----------------------------------------------------------------------------

func asFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case string:
		return strconv.ParseFloat(t, 64)
	case float64:
		return t, nil
	case json.Number:
		return t.Float64()
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func asInt64(v interface{}) (int64, error) {
	f, err := asFloat(v)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
