package network

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"volume-dashboard/src/models"

	"go.uber.org/zap"
)

func testConfig() *models.MConfig {
	return &models.MConfig{
		Network: models.MNetworkConfig{
			RequestTimeout:     5,
			MaxRetries:         3,
			ConcurrentRequests: 4,
			UserAgent:          "test-agent",
		},
	}
}

// -----------------------------------------------------------------------------

func TestGetRetriesTransientFailures(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	nm := NewManager(testConfig(), zap.NewNop())

	body, err := nm.Get(context.Background(), ts.URL, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("unexpected body: %s", body)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("server called %d times, want 3", got)
	}
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "no such route", http.StatusNotFound)
	}))
	defer ts.Close()

	nm := NewManager(testConfig(), zap.NewNop())

	if _, err := nm.Get(context.Background(), ts.URL, nil); err == nil {
		t.Fatal("expected error for 404")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server called %d times, want 1 (no retries on 4xx)", got)
	}
}

func TestGetSetsHeadersAndParams(t *testing.T) {
	var gotUA, gotAccept, gotParam string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		gotParam = r.URL.Query().Get("symbol")
		w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	nm := NewManager(testConfig(), zap.NewNop())

	if _, err := nm.Get(context.Background(), ts.URL, map[string]string{"symbol": "BTCUSDT"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUA != "test-agent" {
		t.Errorf("user agent = %q", gotUA)
	}
	if gotAccept != "application/json" {
		t.Errorf("accept = %q", gotAccept)
	}
	if gotParam != "BTCUSDT" {
		t.Errorf("query param = %q", gotParam)
	}
}

func TestGetContextCancel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	nm := NewManager(testConfig(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := nm.Get(ctx, ts.URL, nil); err == nil {
		t.Fatal("expected error with cancelled context")
	}
}

// -----------------------------------------------------------------------------

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound) // permanent, no retries
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.Network.MaxRetries = 0
	nm := NewManager(cfg, zap.NewNop())

	// Five consecutive failures trip the breaker
	for i := 0; i < 5; i++ {
		if _, err := nm.Get(context.Background(), ts.URL, nil); err == nil {
			t.Fatalf("call %d should have failed", i)
		}
	}

	_, err := nm.Get(context.Background(), ts.URL, nil)
	if err == nil {
		t.Fatal("expected breaker-open error")
	}
}

func TestGetInvalidURL(t *testing.T) {
	nm := NewManager(testConfig(), zap.NewNop())
	if _, err := nm.Get(context.Background(), "http://exam ple.invalid", nil); err == nil {
		t.Fatal("expected error for invalid URL")
	}
}
