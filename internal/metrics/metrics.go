// Package metrics provides Prometheus metrics for the pokstore backend.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokstore_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pokstore_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Store Metrics
	StoreCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokstore_store_calls_total",
			Help: "Item store calls by operation and outcome",
		},
		[]string{"operation", "result"}, // result: success, offline, session_expired, conflict, unreachable, error
	)

	StoreRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokstore_store_retries_total",
			Help: "Retries of transient store failures",
		},
		[]string{"operation"},
	)

	// Auth Metrics
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokstore_auth_attempts_total",
			Help: "Sign-in and sign-up attempts",
		},
		[]string{"kind", "result"},
	)

	RateLimitRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokstore_rate_limit_rejections_total",
			Help: "Auth attempts rejected by the rate limiter",
		},
	)

	// Inventory Metrics
	InventoryItemsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pokstore_inventory_items_total",
			Help: "Total quantity of items in the inventory",
		},
	)

	InventoryValueEUR = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pokstore_inventory_value_eur",
			Help: "Total value of the inventory in EUR",
		},
	)

	ImportedRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokstore_csv_rows_total",
			Help: "CSV import rows by outcome",
		},
		[]string{"result"}, // "imported", "skipped"
	)

	// Price Worker Metrics
	PriceUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokstore_price_updates_total",
			Help: "Total number of item prices updated",
		},
	)

	PriceUpdatesToday = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pokstore_price_updates_today",
			Help: "Number of item prices updated today (resets at midnight)",
		},
	)

	PriceBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pokstore_price_batch_duration_seconds",
			Help:    "Time taken to process a price update batch",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// eBay API Metrics
	MarketPriceLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokstore_market_price_lookups_total",
			Help: "eBay market price lookups by outcome",
		},
		[]string{"result"}, // "found", "empty", "error", "quota"
	)

	MarketQuotaRemaining = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pokstore_market_quota_remaining",
			Help: "Remaining eBay API requests for today",
		},
	)

	// Snapshot Metrics
	SnapshotsTakenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokstore_snapshots_taken_total",
			Help: "Daily value snapshots recorded",
		},
	)
)
