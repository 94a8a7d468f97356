package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsevote_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pulsevote_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// MutationsTotal counts reconciler mutations by kind and outcome.
	MutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsevote_mutations_total",
		Help: "Vote, reaction and comment mutations by outcome",
	}, []string{"kind", "outcome"})

	// FeedFetchesTotal counts feed assemblies by outcome.
	FeedFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsevote_feed_fetches_total",
		Help: "Feed assemblies by outcome",
	}, []string{"outcome"})

	// GenerationRequestsTotal counts calls to the generation API by kind and outcome.
	GenerationRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsevote_generation_requests_total",
		Help: "Calls to the text/image generation API",
	}, []string{"kind", "outcome"})

	// GenerationLatency records generation API latency by kind.
	GenerationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pulsevote_generation_latency_seconds",
		Help:    "Generation API latency in seconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
	}, []string{"kind"})

	// SurveysPublishedTotal counts published surveys by source.
	SurveysPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsevote_surveys_published_total",
		Help: "Published surveys by source (manual, draft, auto, group)",
	}, []string{"source"})

	// CacheLookupsTotal counts cache reads by result (hit, miss, error, corrupt).
	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsevote_cache_lookups_total",
		Help: "Redis cache lookups by result",
	}, []string{"result"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RecordMutation increments the mutation counter.
func RecordMutation(kind string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	MutationsTotal.WithLabelValues(kind, outcome).Inc()
}
