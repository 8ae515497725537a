// Package metrics exposes the judging service's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nmj"

type Metrics struct {
	registry *prometheus.Registry

	submissions       *prometheus.CounterVec
	recomputeConflict prometheus.Counter
	feedbackFailures  prometheus.Counter
	leaderboardBuild  prometheus.Histogram
	liveSubscribers   prometheus.Gauge
}

// New registers every collector in a fresh registry, so several instances can
// coexist in tests.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "submissions_total",
			Help:      "Panel score submissions by result.",
		}, []string{"result"}),
		recomputeConflict: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "recompute_conflicts_total",
			Help:      "Average writes retried because the aggregate changed underneath.",
		}),
		feedbackFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feedback",
			Name:      "failures_total",
			Help:      "Failed feedback generation or consolidation calls.",
		}),
		leaderboardBuild: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "leaderboard",
			Name:      "build_duration_seconds",
			Help:      "Time spent building event standings on cache miss.",
			Buckets:   prometheus.DefBuckets,
		}),
		liveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "subscribers",
			Help:      "Active live update subscribers.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.submissions,
		m.recomputeConflict,
		m.feedbackFailures,
		m.leaderboardBuild,
		m.liveSubscribers,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveSubmission(result string) {
	m.submissions.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRecomputeConflict() {
	m.recomputeConflict.Inc()
}

func (m *Metrics) ObserveFeedbackFailure() {
	m.feedbackFailures.Inc()
}

func (m *Metrics) ObserveLeaderboardBuild(d time.Duration) {
	m.leaderboardBuild.Observe(d.Seconds())
}

func (m *Metrics) SetSubscribers(count int) {
	m.liveSubscribers.Set(float64(count))
}
