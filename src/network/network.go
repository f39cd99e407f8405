package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"volume-dashboard/src/helpers"
	"volume-dashboard/src/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// -----------------------------------------------------------------------------
// Manager
// -----------------------------------------------------------------------------

// Manager performs outbound GETs against the exchange with retry and a
// circuit breaker. A cycle that exhausts retries is reported back to the
// caller; the dashboard keeps showing the previous snapshot meanwhile.
type Manager struct {
	Config  *models.MConfig
	Logger  *zap.Logger
	Client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// -----------------------------------------------------------------------------

func NewManager(cfg *models.MConfig, log *zap.Logger) *Manager {
	nm := &Manager{
		Config: cfg,
		Logger: log,
		Client: &http.Client{
			Timeout: time.Duration(cfg.Network.RequestTimeout) * time.Second,
		},
	}

	nm.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "exchange-api",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return nm
}

// -----------------------------------------------------------------------------

// Get performs a GET request with query params, bounded retries and the
// circuit breaker around the whole attempt sequence.
func (nm *Manager) Get(ctx context.Context, urlStr string, params map[string]string) ([]byte, error) {
	reqURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, helpers.NewNetworkError("invalid request URL", err)
	}

	q := reqURL.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	reqURL.RawQuery = q.Encode()
	finalURL := reqURL.String()

	body, err := nm.breaker.Execute(func() (interface{}, error) {
		return nm.getWithRetry(ctx, finalURL)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, helpers.NewNetworkError("exchange temporarily unavailable (breaker open)", err)
		}
		return nil, err
	}

	return body.([]byte), nil
}

// -----------------------------------------------------------------------------

func (nm *Manager) getWithRetry(ctx context.Context, finalURL string) ([]byte, error) {
	operation := func() ([]byte, error) {
		return nm.doGet(ctx, finalURL)
	}

	retry := backoff.WithContext(
		backoff.WithMaxRetries(newExponentialBackOff(), uint64(nm.Config.Network.MaxRetries)),
		ctx,
	)

	body, err := backoff.RetryNotifyWithData(operation, retry,
		func(err error, wait time.Duration) {
			nm.Logger.Info("request failed, retrying",
				zap.String("url", finalURL),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		})
	if err != nil {
		return nil, helpers.NewNetworkError(fmt.Sprintf("GET %s failed", finalURL), err)
	}

	return body, nil
}

// -----------------------------------------------------------------------------

func (nm *Manager) doGet(ctx context.Context, finalURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	// Browser-like headers; the exchange geo-blocks bare clients.
	req.Header.Set("User-Agent", nm.Config.Network.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Referer", "https://www.binance.com/")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := nm.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fallthrough to read
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		// Transient: rate limit or upstream hiccup, worth another attempt
		return nil, fmt.Errorf("transient status %d", resp.StatusCode)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, backoff.Permanent(fmt.Errorf("bad status %d: %s", resp.StatusCode, msg))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return body, nil
}

// -----------------------------------------------------------------------------

// newExponentialBackOff keeps the whole retry sequence well under one
// refresh interval.
func newExponentialBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.1
	return b
}
