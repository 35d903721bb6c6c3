package redaction

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes redaction activity to Prometheus.
type Metrics struct {
	rewritten   *prometheus.CounterVec
	runs        *prometheus.CounterVec
	pendingJobs prometheus.Gauge
}

// NewMetrics registers the redaction collectors with reg. A nil registerer
// yields working but unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		rewritten: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lexcircle",
			Subsystem: "redaction",
			Name:      "rewritten_total",
			Help:      "Author references rewritten to the sentinel account.",
		}, []string{"collection"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lexcircle",
			Subsystem: "redaction",
			Name:      "runs_total",
			Help:      "Account redaction passes by outcome.",
		}, []string{"outcome"}),
		pendingJobs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "lexcircle",
			Subsystem: "redaction",
			Name:      "pending_jobs",
			Help:      "Redaction jobs waiting at the start of the last reconcile pass.",
		}),
	}
}

func (m *Metrics) observeReport(r *Report) {
	if m == nil || r == nil {
		return
	}
	m.rewritten.WithLabelValues("messages").Add(float64(r.MessagesRewritten))
	m.rewritten.WithLabelValues("comments").Add(float64(r.CommentsRewritten))
	m.rewritten.WithLabelValues("posts").Add(float64(r.PostsRewritten))
}

func (m *Metrics) observeRun(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) setPending(n int) {
	if m == nil {
		return
	}
	m.pendingJobs.Set(float64(n))
}
