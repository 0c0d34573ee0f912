package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catspot_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catspot_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ReactionToggles counts optimistic reaction toggles by entity and direction (like/unlike).
	ReactionToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catspot_reaction_toggles_total",
		Help: "Total number of optimistic reaction toggles",
	}, []string{"entity", "direction"})

	// OptimisticRollbacks counts optimistic mutations reverted after a remote failure.
	OptimisticRollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catspot_optimistic_rollbacks_total",
		Help: "Total number of optimistic mutations rolled back",
	}, []string{"entity", "operation"})

	// EnrichmentFailures counts liked-set lookups that failed and were degraded to "not liked".
	EnrichmentFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catspot_enrichment_failures_total",
		Help: "Total number of viewer enrichment failures",
	}, []string{"entity"})

	// FetchFailures counts base fetches that failed.
	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catspot_fetch_failures_total",
		Help: "Total number of failed base fetches",
	}, []string{"entity"})

	// ActiveWebSockets is the gauge of open panel connections.
	ActiveWebSockets = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "catspot_active_websockets",
		Help: "Number of open WebSocket panel connections",
	}, []string{"hub"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catspot_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// CacheResults counts cache lookups by key family and outcome (hit/miss/error).
	CacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catspot_cache_results_total",
		Help: "Total number of cache lookups by result",
	}, []string{"family", "result"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
