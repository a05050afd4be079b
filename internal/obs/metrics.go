// Copyright 2025 James Ross
package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every counter/gauge/histogram emitted by the pipeline.
// A single instance is created per process and threaded through the
// components that need it.
type Metrics struct {
	Registry *prometheus.Registry

	JobsSubmitted   *prometheus.CounterVec
	JobsCompleted   *prometheus.CounterVec
	JobsFailed      *prometheus.CounterVec
	JobDuration     *prometheus.HistogramVec
	StageDuration    *prometheus.HistogramVec
	QueueDepth      prometheus.Gauge
	RetryQueueDepth prometheus.Gauge
	InFlightBatches prometheus.Gauge
	ExternalCalls   *prometheus.CounterVec
	ExternalLatency *prometheus.HistogramVec
	BreakerState    *prometheus.GaugeVec
	RateLimited     *prometheus.CounterVec
	CacheHits       *prometheus.CounterVec
	ProfilesScored  prometheus.Counter
	EventsAppended  prometheus.Counter
}

// NewMetrics constructs and registers all metrics against a fresh
// registry so tests can spin up isolated instances.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		JobsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_jobs_submitted_total",
			Help: "Jobs accepted by the admission service.",
		}, []string{"source"}),
		JobsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_jobs_completed_total",
			Help: "Jobs that reached a terminal state.",
		}, []string{"status"}),
		JobsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_jobs_failed_total",
			Help: "Jobs that failed permanently, by reason.",
		}, []string{"reason"}),
		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scout_job_duration_seconds",
			Help:    "Wall-clock time from admitted to terminal.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}, []string{"status"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scout_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		}, []string{"stage"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scout_queue_depth",
			Help: "Pending jobs on the primary list.",
		}),
		RetryQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scout_retry_queue_depth",
			Help: "Jobs waiting in the delayed-retry set.",
		}),
		InFlightBatches: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scout_inflight_batches",
			Help: "Batches currently in enrichment+scoring.",
		}),
		ExternalCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_external_calls_total",
			Help: "Calls made to external providers.",
		}, []string{"provider", "outcome"}),
		ExternalLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scout_external_call_latency_seconds",
			Help:    "Latency of external provider calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		BreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scout_circuit_breaker_state",
			Help: "0=closed 1=open 2=half-open, by provider.",
		}, []string{"provider"}),
		RateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_rate_limited_total",
			Help: "Requests rejected by the token bucket limiter.",
		}, []string{"principal"}),
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_cache_hits_total",
			Help: "Profile cache lookups, by hit/miss.",
		}, []string{"result"}),
		ProfilesScored: factory.NewCounter(prometheus.CounterOpts{
			Name: "scout_profiles_scored_total",
			Help: "Profiles that completed scoring.",
		}),
		EventsAppended: factory.NewCounter(prometheus.CounterOpts{
			Name: "scout_events_appended_total",
			Help: "Rows appended to the job event log.",
		}),
	}
}

// Handler exposes the registry on /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
