package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_fetch_cycles_total",
		Help: "The total number of completed fetch cycles",
	})

	fetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_fetch_errors_total",
		Help: "Total number of fetch cycles that failed",
	})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dashboard_fetch_cycle_seconds",
		Help:    "Time spent building each snapshot",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	pairsRanked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_pairs_ranked",
		Help: "Pairs surviving the quote filter in the latest snapshot",
	})

	wsClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_websocket_clients",
		Help: "Currently connected websocket clients",
	})
)

func IncrementCycles() { fetchCycles.Inc() }

func IncrementErrors() { fetchErrors.Inc() }

func SetPairsRanked(n int) { pairsRanked.Set(float64(n)) }

func SetWSClients(n int) { wsClients.Set(float64(n)) }

func RecordCycleDuration(d time.Duration) { cycleDuration.Observe(d.Seconds()) }
