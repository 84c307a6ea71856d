// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Cycle metrics
	CyclesTotal   *prometheus.CounterVec
	CycleDuration prometheus.Histogram

	// Pipeline metrics
	TransactionsFetched prometheus.Counter
	TransactionsAlerted prometheus.Counter
	CacheEntriesSwept   prometheus.Counter

	// State gauges
	DedupCacheSize  prometheus.Gauge
	SubscriberCount prometheus.Gauge

	// Provider metrics
	ProviderErrors  *prometheus.CounterVec
	ProviderLatency *prometheus.HistogramVec

	// Delivery metrics
	DeliveriesTotal *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "wallet_tracker"
	}

	return &Metrics{
		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Polling cycles by outcome",
		}, []string{"status"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one polling cycle",
			Buckets:   prometheus.DefBuckets,
		}),
		TransactionsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_fetched_total",
			Help:      "New transactions surviving dedup",
		}),
		TransactionsAlerted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_alerted_total",
			Help:      "Transactions included in dispatched alerts",
		}),
		CacheEntriesSwept: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_entries_swept_total",
			Help:      "Expired dedup entries removed by the periodic sweep",
		}),
		DedupCacheSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dedup_cache_size",
			Help:      "Current dedup cache entry count",
		}),
		SubscriberCount: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Current subscriber count",
		}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Exhausted provider fetches by provider",
		}, []string{"provider"}),
		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_fetch_duration_seconds",
			Help:      "Wall time of one provider fetch including retries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		DeliveriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Per-subscriber delivery outcomes",
		}, []string{"result"}),
	}
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
