package metrics

import "github.com/prometheus/client_golang/prometheus"

// Engine Prometheus metrics.
var (
	SyncNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "facetdex",
			Name:      "sync_notifications_total",
			Help:      "Total change notifications processed, by outcome",
		},
		[]string{"kind", "outcome"}, // outcome: "applied" / "stale" / "deleted" / "dead_lettered"
	)

	SyncRetryTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "facetdex",
			Name:      "sync_retries_total",
			Help:      "Total sync attempt retries",
		},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "facetdex",
			Name:      "notification_queue_depth",
			Help:      "Pending notifications awaiting processing",
		},
	)

	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "facetdex",
			Name:      "result_cache_total",
			Help:      "Result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	FacetComputeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "facetdex",
			Name:      "facet_compute_duration_seconds",
			Help:      "Facet calculation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	FacetDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "facetdex",
			Name:      "facet_degraded_total",
			Help:      "Filter responses returned without facets due to deadline",
		},
	)

	SweepRepairedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "facetdex",
			Name:      "sweep_repaired_total",
			Help:      "Documents repaired by the reindex sweeper",
		},
	)
)

var engineMetricsRegistered bool

// RegisterEngineMetrics registers Prometheus engine metrics. Must be called once from main.
func RegisterEngineMetrics() {
	if engineMetricsRegistered {
		return
	}
	prometheus.MustRegister(SyncNotificationsTotal)
	prometheus.MustRegister(SyncRetryTotal)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(ResultCacheTotal)
	prometheus.MustRegister(FacetComputeDuration)
	prometheus.MustRegister(FacetDegradedTotal)
	prometheus.MustRegister(SweepRepairedTotal)
	engineMetricsRegistered = true
}
