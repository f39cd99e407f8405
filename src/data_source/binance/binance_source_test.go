package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"volume-dashboard/src/models"
	"volume-dashboard/src/network"

	"go.uber.org/zap"
)

const tickerBody = `[
	{"symbol":"BTCUSDT","lastPrice":"65000","priceChangePercent":"2.5","volume":"120000","quoteVolume":"7800000000","openTime":1,"closeTime":2,"count":10},
	{"symbol":"ETHUSDT","lastPrice":"3200","priceChangePercent":"-1.2","volume":"900000","quoteVolume":"2880000000","openTime":1,"closeTime":2,"count":10},
	{"symbol":"ETHBTC","lastPrice":"0.049","priceChangePercent":"0.8","volume":"1000","quoteVolume":"49","openTime":1,"closeTime":2,"count":10}
]`

// Two daily candles per symbol, wire format: positional arrays with mixed
// number/string entries.
const klinesBody = `[
	[1700000000000,"100.0","110.0","90.0","100.0","1000",1700086399999,"100000",500,"1","1","0"],
	[1700086400000,"100.0","130.0","95.0","125.0","2000",1700172799999,"250000",700,"1","1","0"]
]`

const exchangeInfoBody = `{"symbols":[
	{"symbol":"BTCUSDT","status":"TRADING","baseAsset":"BTC","quoteAsset":"USDT"},
	{"symbol":"ETHUSDT","status":"BREAK","baseAsset":"ETH","quoteAsset":"USDT"}
]}`

// -----------------------------------------------------------------------------

func testConfig(baseURL string) *models.MConfig {
	return &models.MConfig{
		Name: "test",
		Host: "127.0.0.1",
		Port: 8050,
		Network: models.MNetworkConfig{
			RequestTimeout:     5,
			MaxRetries:         0,
			ConcurrentRequests: 4,
			UserAgent:          "test-agent",
		},
		Exchange: models.MExchangeConfig{
			BaseURL:        baseURL,
			QuoteAssets:    []string{"USDT", "BUSD"},
			MinMoverVolume: 1_000_000_000,
			DefaultLimit:   20,
			MaxLimit:       50,
		},
		DataSource: models.MDataSourceConfig{UpdateIntervalSeconds: 60},
	}
}

func newTestSource(t *testing.T, handler http.Handler) (*BinanceSource, *httptest.Server) {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	cfg := testConfig(ts.URL)
	nm := network.NewManager(cfg, zap.NewNop())
	return NewBinanceSource(cfg, nm, zap.NewNop()), ts
}

func fixtureHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ticker/24hr", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tickerBody))
	})
	mux.HandleFunc("/klines", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(klinesBody))
	})
	mux.HandleFunc("/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(exchangeInfoBody))
	})
	return mux
}

// -----------------------------------------------------------------------------

func TestFetchTicker24h(t *testing.T) {
	source, _ := newTestSource(t, fixtureHandler())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tickers, err := source.FetchTicker24h(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tickers) != 3 {
		t.Fatalf("expected 3 tickers, got %d", len(tickers))
	}
	if tickers[0].Symbol != "BTCUSDT" || tickers[0].QuoteVolume != "7800000000" {
		t.Errorf("unexpected first ticker: %+v", tickers[0])
	}
}

func TestFetchKlines(t *testing.T) {
	source, _ := newTestSource(t, fixtureHandler())

	klines, err := source.FetchKlines(context.Background(), "BTCUSDT", "1d", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(klines) != 2 {
		t.Fatalf("expected 2 klines, got %d", len(klines))
	}

	k := klines[0]
	if k.OpenTime != 1700000000000 {
		t.Errorf("open time = %d", k.OpenTime)
	}
	if k.Close != 100 || k.Volume != 1000 || k.QuoteVolume != 100000 {
		t.Errorf("unexpected parsed kline: %+v", k)
	}
}

func TestFetchSnapshot(t *testing.T) {
	source, _ := newTestSource(t, fixtureHandler())

	snapshot, err := source.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// ETHBTC is filtered by quote asset
	if snapshot.Metrics.PairsTotal != 3 || snapshot.Metrics.PairsRanked != 2 {
		t.Errorf("metrics = %+v, want 3 total / 2 ranked", snapshot.Metrics)
	}

	if len(snapshot.TopVolume24h) != 2 {
		t.Fatalf("expected 2 rows in 24h view, got %d", len(snapshot.TopVolume24h))
	}
	if snapshot.TopVolume24h[0].Symbol != "BTCUSDT" {
		t.Errorf("24h view not ranked by volume: %s first", snapshot.TopVolume24h[0].Symbol)
	}

	// Both symbols get the same kline fixture: 7d volume 350000 each,
	// change (125-100)/100 = +25%
	if len(snapshot.TopVolume7d) != 2 {
		t.Fatalf("expected 2 rows in 7d view, got %d", len(snapshot.TopVolume7d))
	}
	if snapshot.TopVolume7d[0].QuoteVolume != 350000 {
		t.Errorf("7d volume = %v, want 350000", snapshot.TopVolume7d[0].QuoteVolume)
	}
	if snapshot.TopVolume7d[0].ChangePercent != 25 {
		t.Errorf("7d change = %v, want 25", snapshot.TopVolume7d[0].ChangePercent)
	}

	// Movers floor is 1B: both ranked pairs clear it, ETH ranked by change below BTC
	if len(snapshot.Movers) != 2 || snapshot.Movers[0].Symbol != "BTCUSDT" {
		t.Errorf("unexpected movers view: %+v", snapshot.Movers)
	}
	if snapshot.MoversThresholdBumped {
		t.Errorf("threshold should not have been bumped")
	}

	if snapshot.Metrics.KlineRequests != 2 {
		t.Errorf("kline requests = %d, want 2", snapshot.Metrics.KlineRequests)
	}
}

func TestFetchSnapshotEmptyResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ticker/24hr", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	source, _ := newTestSource(t, mux)

	snapshot, err := source.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("empty upstream response must not fail: %v", err)
	}
	if len(snapshot.TopVolume24h) != 0 || len(snapshot.Movers) != 0 {
		t.Errorf("expected empty views, got %+v", snapshot)
	}
}

func TestFetchSnapshotUpstreamError(t *testing.T) {
	source, _ := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "teapot", http.StatusTeapot)
	}))

	if _, err := source.FetchSnapshot(context.Background()); err == nil {
		t.Fatalf("expected error from failing upstream")
	}
}

func TestFilterTradingDropsHaltedPairs(t *testing.T) {
	source, _ := newTestSource(t, fixtureHandler())

	source.loadExchangeInfo(context.Background())

	snapshot, err := source.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// ETHUSDT is in BREAK status in the fixture
	for _, r := range snapshot.TopVolume24h {
		if r.Symbol == "ETHUSDT" {
			t.Errorf("halted pair ETHUSDT should have been dropped")
		}
	}
	if len(snapshot.TopVolume24h) != 1 {
		t.Errorf("expected 1 row after status filter, got %d", len(snapshot.TopVolume24h))
	}
}

// -----------------------------------------------------------------------------

func TestStartPushesSnapshotAndHonorsTrigger(t *testing.T) {
	source, _ := newTestSource(t, fixtureHandler())
	source.Config.DataSource.UpdateIntervalSeconds = 3600 // only manual cycles

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan *models.MSnapshot, 4)
	wg := &sync.WaitGroup{}

	if err := source.Start(ctx, out, wg); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Initial cycle fires immediately
	select {
	case snapshot := <-out:
		if snapshot.Error != "" {
			t.Fatalf("initial snapshot carries error: %s", snapshot.Error)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no initial snapshot")
	}

	source.TriggerRefresh()
	select {
	case <-out:
	case <-time.After(5 * time.Second):
		t.Fatal("manual refresh produced no snapshot")
	}

	cancel()
	wg.Wait()
}

// -----------------------------------------------------------------------------

func TestParseKlineRejectsShortArray(t *testing.T) {
	if _, err := parseKline([]interface{}{1.0, "2"}); err == nil {
		t.Fatal("expected error for short kline array")
	}
}

func TestParseKlineRejectsBadField(t *testing.T) {
	fields := []interface{}{1.0, "not-a-price", "1", "1", "1", "1", 2.0, "1"}
	if _, err := parseKline(fields); err == nil {
		t.Fatal("expected error for unparsable price")
	}
}
