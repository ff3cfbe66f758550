package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tjfontaine/estimate-executor/internal/core/result"
)

const namespace = "estimate_executor"

// Metrics records pipeline step outcomes. It implements pipeline.Observer.
type Metrics struct {
	steps    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	emails   *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_steps_total",
			Help:      "Pipeline steps run, by outcome.",
		}, []string{"pipeline", "step", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_step_duration_seconds",
			Help:      "Time spent in each pipeline step.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"pipeline", "step"}),
		emails: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Emails handed to the delivery provider, by status.",
		}, []string{"status"}),
	}
}

// StepFinished implements pipeline.Observer.
func (m *Metrics) StepFinished(_ context.Context, pipeline, step string, kind result.Kind, elapsed time.Duration) {
	m.steps.WithLabelValues(pipeline, step, kind.String()).Inc()
	m.duration.WithLabelValues(pipeline, step).Observe(elapsed.Seconds())
}

// EmailSent counts one delivery attempt.
func (m *Metrics) EmailSent(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.emails.WithLabelValues(status).Inc()
}
