package kafka

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// runnerMetrics are scoped to one Runner. Message outcomes are counted
// process-wide by observability.IncInvalidation.
type runnerMetrics struct {
	removed  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lag      *prometheus.GaugeVec
}

func newRunnerMetrics(r prometheus.Registerer) *runnerMetrics {
	m := &runnerMetrics{
		removed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_invalidation_removed_entries_total",
			Help: "Cache entries removed by invalidation events.",
		}, []string{"op", "partition"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "risk_invalidation_apply_seconds",
			Help:    "Time from decode to applied for one invalidation event.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}, []string{"op"}),
		lag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "risk_invalidation_lag_seconds",
			Help: "Age of the last consumed message per topic partition.",
		}, []string{"kafka_partition"}),
	}
	if r != nil {
		r.MustRegister(m.removed, m.duration, m.lag)
	}
	return m
}

func (m *runnerMetrics) observeLag(kafkaPartition int32, produced time.Time) {
	if produced.IsZero() {
		return
	}
	m.lag.WithLabelValues(strconv.Itoa(int(kafkaPartition))).Set(time.Since(produced).Seconds())
}

func (m *runnerMetrics) applied(op, cachePartition string, removed int, since time.Time) {
	if cachePartition == "" {
		cachePartition = "all"
	}
	m.removed.WithLabelValues(op, cachePartition).Add(float64(removed))
	m.duration.WithLabelValues(op).Observe(time.Since(since).Seconds())
}
