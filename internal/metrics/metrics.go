// Package metrics exposes Prometheus collectors for the catalog service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup outcomes.
const (
	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheBypass = "bypass"
)

var (
	queryCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_query_cache_lookups_total",
			Help: "Query cache lookups, labeled by result (hit, miss, bypass).",
		},
		[]string{"result"},
	)

	queryCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_query_cache_entries",
			Help: "Number of result sets currently held by the query cache.",
		},
	)

	snapshotLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_snapshot_loads_total",
			Help: "Reference table snapshots loaded from the database, labeled by table.",
		},
		[]string{"table"},
	)

	snapshotRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_snapshot_rows",
			Help: "Rows held in memory per reference table snapshot.",
		},
		[]string{"table"},
	)

	dedupLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_dedup_lookups_total",
			Help: "Existing-identifier lookups, labeled by page type.",
		},
		[]string{"page_type"},
	)

	dedupExistingIDs = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_dedup_existing_ids",
			Help:    "Number of identifiers already present per lookup.",
			Buckets: []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
		},
		[]string{"page_type"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"method", "route"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCacheLookup counts one query cache lookup.
func ObserveCacheLookup(result string) {
	queryCacheLookupsTotal.WithLabelValues(result).Inc()
}

// SetCacheEntries records the current query cache size.
func SetCacheEntries(n int) {
	queryCacheEntries.Set(float64(n))
}

// ObserveSnapshotLoad records a snapshot population.
func ObserveSnapshotLoad(table string, rows int) {
	snapshotLoadsTotal.WithLabelValues(table).Inc()
	snapshotRows.WithLabelValues(table).Set(float64(rows))
}

// ForgetSnapshot clears the row gauge of an invalidated snapshot.
func ForgetSnapshot(table string) {
	snapshotRows.DeleteLabelValues(table)
}

// ObserveDedupLookup records an existing-identifier lookup.
func ObserveDedupLookup(pageType string, existing int) {
	dedupLookupsTotal.WithLabelValues(pageType).Inc()
	dedupExistingIDs.WithLabelValues(pageType).Observe(float64(existing))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
