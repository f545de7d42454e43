package observability

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mu sync.RWMutex

	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	upstreamLatencySeconds     *prometheus.HistogramVec
	cacheResults               *prometheus.CounterVec
	cacheEvictions             *prometheus.CounterVec
	fallbacksTotal             *prometheus.CounterVec
	assessmentsTotal           *prometheus.CounterVec
	invalidationsTotal         *prometheus.CounterVec
	assessmentEventsTotal      *prometheus.CounterVec
	redisOpSeconds             *prometheus.HistogramVec
	hotCells                   *prometheus.GaugeVec
)

func init() {
	Init(prometheus.DefaultRegisterer)
}

// Init (re)creates every collector on reg. Call it once at startup when the
// service exposes a dedicated registry; tests use it with a fresh registry.
func Init(reg prometheus.Registerer) {
	f := promauto.With(reg)

	mu.Lock()
	defer mu.Unlock()

	httpRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream", "outcome"},
	)

	cacheResults = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_results_total",
			Help: "Cache lookups by partition and outcome.",
		},
		[]string{"partition", "outcome"},
	)

	cacheEvictions = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Entries evicted because a partition was at capacity.",
		},
		[]string{"partition"},
	)

	fallbacksTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envdata_fallbacks_total",
			Help: "Synthetic data substitutions by data category and reason.",
		},
		[]string{"category", "reason"},
	)

	assessmentsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_assessments_total",
			Help: "Freshly computed risk assessments by overall level.",
		},
		[]string{"level"},
	)

	invalidationsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidation_events_total",
			Help: "Invalidation events consumed by op and result.",
		},
		[]string{"op", "result"},
	)

	assessmentEventsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_events_total",
			Help: "Assessment events handed to the publisher by result.",
		},
		[]string{"result"},
	)

	redisOpSeconds = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_op_duration_seconds",
			Help:    "Latency of Redis operations used for cache snapshots.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op", "result"},
	)

	hotCells = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hotness_tracked_cells",
			Help: "Number of H3 cells with a live demand score.",
		},
		[]string{"tracker"},
	)
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	mu.RLock()
	defer mu.RUnlock()
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream, outcome string, durationSeconds float64) {
	mu.RLock()
	defer mu.RUnlock()
	upstreamLatencySeconds.WithLabelValues(upstream, outcome).Observe(durationSeconds)
}

func IncCacheHit(partition string) {
	mu.RLock()
	defer mu.RUnlock()
	cacheResults.WithLabelValues(partition, "hit").Inc()
}

func IncCacheMiss(partition string) {
	mu.RLock()
	defer mu.RUnlock()
	cacheResults.WithLabelValues(partition, "miss").Inc()
}

func IncCacheEviction(partition string) {
	mu.RLock()
	defer mu.RUnlock()
	cacheEvictions.WithLabelValues(partition).Inc()
}

func IncFallback(category, reason string) {
	mu.RLock()
	defer mu.RUnlock()
	fallbacksTotal.WithLabelValues(category, reason).Inc()
}

func IncAssessment(level string) {
	mu.RLock()
	defer mu.RUnlock()
	assessmentsTotal.WithLabelValues(level).Inc()
}

func IncInvalidation(op, result string) {
	mu.RLock()
	defer mu.RUnlock()
	invalidationsTotal.WithLabelValues(op, result).Inc()
}

func IncAssessmentEvent(result string) {
	mu.RLock()
	defer mu.RUnlock()
	assessmentEventsTotal.WithLabelValues(result).Inc()
}

// ObserveCacheOp records one Redis round trip; result is "ok" or "error".
func ObserveCacheOp(op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	mu.RLock()
	defer mu.RUnlock()
	redisOpSeconds.WithLabelValues(op, result).Observe(durationSeconds)
}

func SetHotCells(tracker string, n int) {
	mu.RLock()
	defer mu.RUnlock()
	hotCells.WithLabelValues(tracker).Set(float64(n))
}
