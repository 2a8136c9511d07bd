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
	// Remote API metrics
	RemoteRequests *prometheus.CounterVec
	RemoteRetries  *prometheus.CounterVec
	RemoteLatency  *prometheus.HistogramVec
	CacheFallbacks *prometheus.CounterVec
	Online         prometheus.Gauge

	// Deck metrics
	Swipes        *prometheus.CounterVec
	Undos         prometheus.Counter
	DeckLoads     *prometheus.CounterVec
	DeckRemaining prometheus.Gauge

	// Store metrics
	MaintenanceRemovals *prometheus.CounterVec
	StoreErrors         *prometheus.CounterVec
	StorageDegraded     prometheus.Gauge

	// Health metrics
	LastSuccessfulFetch prometheus.Gauge
	UptimeSeconds       prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "dividend_hunter"
	}

	return &Metrics{
		// Remote API metrics
		RemoteRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "requests_total",
			Help:      "Total number of remote API requests by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		RemoteRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "retries_total",
			Help:      "Total number of remote API retry attempts by endpoint",
		}, []string{"endpoint"}),
		RemoteLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "request_latency_seconds",
			Help:      "Remote API request latency in seconds, retries included",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"endpoint"}),
		CacheFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "cache_fallbacks_total",
			Help:      "Total number of requests answered from the local store by result",
		}, []string{"endpoint", "result"}),
		Online: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "online",
			Help:      "1 when the remote API is reachable",
		}),

		// Deck metrics
		Swipes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deck",
			Name:      "swipes_total",
			Help:      "Total number of committed swipes by direction",
		}, []string{"direction"}),
		Undos: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deck",
			Name:      "undos_total",
			Help:      "Total number of undone swipes",
		}),
		DeckLoads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deck",
			Name:      "loads_total",
			Help:      "Total number of deck loads by status",
		}, []string{"status"}),
		DeckRemaining: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "deck",
			Name:      "remaining_cards",
			Help:      "Number of cards left in the deck",
		}),

		// Store metrics
		MaintenanceRemovals: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "maintenance_removed_total",
			Help:      "Total number of records removed by maintenance by collection",
		}, []string{"collection"}),
		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Total number of failed store operations",
		}, []string{"operation"}),
		StorageDegraded: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "degraded",
			Help:      "1 when running without persistence",
		}),

		// Health metrics
		LastSuccessfulFetch: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_fetch_timestamp",
			Help:      "Unix timestamp of last successful stock fetch",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRemoteRequest records a finished remote request.
func RecordRemoteRequest(endpoint, outcome string, seconds float64) {
	DefaultMetrics.RemoteRequests.WithLabelValues(endpoint, outcome).Inc()
	DefaultMetrics.RemoteLatency.WithLabelValues(endpoint).Observe(seconds)
}

// RecordRemoteRetry increments the retry counter of endpoint.
func RecordRemoteRetry(endpoint string) {
	DefaultMetrics.RemoteRetries.WithLabelValues(endpoint).Inc()
}

// RecordCacheFallback records a request answered (or not) from the local store.
func RecordCacheFallback(endpoint string, served bool) {
	result := "empty"
	if served {
		result = "served"
	}
	DefaultMetrics.CacheFallbacks.WithLabelValues(endpoint, result).Inc()
}

// SetOnline updates the connectivity gauge.
func SetOnline(online bool) {
	DefaultMetrics.Online.Set(boolGauge(online))
}

// RecordSwipe increments the swipe counter of direction.
func RecordSwipe(direction string) {
	DefaultMetrics.Swipes.WithLabelValues(direction).Inc()
}

// RecordUndo increments the undo counter.
func RecordUndo() {
	DefaultMetrics.Undos.Inc()
}

// RecordDeckLoad records a deck load and the resulting deck size.
func RecordDeckLoad(status string, remaining int) {
	DefaultMetrics.DeckLoads.WithLabelValues(status).Inc()
	DefaultMetrics.DeckRemaining.Set(float64(remaining))
}

// UpdateDeckRemaining updates the remaining cards gauge.
func UpdateDeckRemaining(n int) {
	DefaultMetrics.DeckRemaining.Set(float64(n))
}

// RecordMaintenance records records removed by store maintenance.
func RecordMaintenance(historyRemoved, trendsRemoved int) {
	DefaultMetrics.MaintenanceRemovals.WithLabelValues("swipe_history").Add(float64(historyRemoved))
	DefaultMetrics.MaintenanceRemovals.WithLabelValues("trend_snapshots").Add(float64(trendsRemoved))
}

// RecordStoreError increments the store error counter of operation.
func RecordStoreError(operation string) {
	DefaultMetrics.StoreErrors.WithLabelValues(operation).Inc()
}

// SetStorageDegraded updates the degraded storage gauge.
func SetStorageDegraded(degraded bool) {
	DefaultMetrics.StorageDegraded.Set(boolGauge(degraded))
}

// RecordSuccessfulFetch stores the unix timestamp of the last successful fetch.
func RecordSuccessfulFetch(unixSeconds float64) {
	DefaultMetrics.LastSuccessfulFetch.Set(unixSeconds)
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
