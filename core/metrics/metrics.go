// Package metrics exposes Prometheus counters for the report conversation and
// serves them together with a health endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reportbot"

// Recorder implements the conversation driver's metrics hooks on Prometheus.
type Recorder struct {
	registry *prometheus.Registry

	started          prometheus.Counter
	cancelled        prometheus.Counter
	validation       *prometheus.CounterVec
	reports          *prometheus.CounterVec
	deliveryDuration prometheus.Histogram
	active           prometheus.Gauge
}

// NewRecorder registers every collector on a private registry together
// with the Go runtime and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		started: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Conversations opened with /start.",
		}),
		cancelled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_cancelled_total",
			Help:      "Conversations discarded with /cancel.",
		}),
		validation: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_rejects_total",
			Help:      "Inputs rejected by stage.",
		}, []string{"stage"}),
		reports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Finalized reports by delivery outcome and message kind.",
		}, []string{"outcome", "kind"}),
		deliveryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Time spent posting a report to the destination chat.",
			Buckets:   prometheus.DefBuckets,
		}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Conversations currently in progress.",
		}),
	}
}

// Registry returns the registry backing the recorder.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// SessionStarted counts a new conversation.
func (r *Recorder) SessionStarted() { r.started.Inc() }

// SessionCancelled counts a conversation dropped by the user.
func (r *Recorder) SessionCancelled() { r.cancelled.Inc() }

// InputRejected counts a validation failure at stage.
func (r *Recorder) InputRejected(stage string) { r.validation.WithLabelValues(stage).Inc() }

// ReportFinished records a delivery attempt. kind is "text" or "photo".
func (r *Recorder) ReportFinished(kind string, err error, took time.Duration) {
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	r.reports.WithLabelValues(outcome, kind).Inc()
	r.deliveryDuration.Observe(took.Seconds())
}

// ActiveSessions sets the in-flight conversation gauge.
func (r *Recorder) ActiveSessions(n int) { r.active.Set(float64(n)) }

// ObserveCounter exports a monotonically increasing value read on scrape.
func (r *Recorder) ObserveCounter(name, help string, read func() uint64) {
	r.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, func() float64 { return float64(read()) }))
}
