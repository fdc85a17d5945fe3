package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Prometheus metrics
	refreshPassesMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyprice_refresh_passes_total",
		Help: "The total number of completed refresh passes",
	})

	tokensUpdatedMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyprice_updated_passes_total",
		Help: "Total number of refresh passes that changed at least one tracked token",
	})

	fetchErrorsMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyprice_fetch_errors_total",
		Help: "Total number of failed upstream price fetches",
	})

	cacheHitsMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyprice_cache_hits_total",
		Help: "Total number of price cache hits",
	})

	cacheMissesMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyprice_cache_misses_total",
		Help: "Total number of price cache misses",
	})

	deliveriesMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyprice_deliveries_total",
		Help: "Total number of rendered views handed to the presentation sink",
	})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hyprice_fetch_duration_seconds",
		Help:    "Time spent fetching one token price upstream",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	// Internal counters
	refreshPasses uint64
	fetchErrors   uint64
	lastRefresh   atomic.Int64
	startTime     = time.Now()
)

func IncrementRefreshPasses() {
	atomic.AddUint64(&refreshPasses, 1)
	refreshPassesMetric.Inc()
	lastRefresh.Store(time.Now().UnixNano())
}

func IncrementTokensUpdated() {
	tokensUpdatedMetric.Inc()
}

func IncrementFetchErrors() {
	atomic.AddUint64(&fetchErrors, 1)
	fetchErrorsMetric.Inc()
}

func IncrementCacheHits() {
	cacheHitsMetric.Inc()
}

func IncrementCacheMisses() {
	cacheMissesMetric.Inc()
}

func IncrementDeliveries() {
	deliveriesMetric.Inc()
}

func RecordFetchDuration(duration time.Duration) {
	fetchDuration.Observe(duration.Seconds())
}

func GetStats() (uint64, uint64, time.Time, time.Duration) {
	return atomic.LoadUint64(&refreshPasses),
		atomic.LoadUint64(&fetchErrors),
		time.Unix(0, lastRefresh.Load()),
		time.Since(startTime)
}
