// Package telemetry records evaluation metrics in Prometheus and traces runs
// with OpenTelemetry.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values for metric executions.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Recorder collects per-metric and per-run measurements.
//
// Collectors are registered on the Registerer passed to NewRecorder, so tests
// and embedders can use an isolated registry. A nil *Recorder is a no-op.
type Recorder struct {
	// Labels: metric, status (ok|failed)
	MetricExecutions *prometheus.CounterVec

	// Labels: metric
	MetricDuration *prometheus.HistogramVec

	// Open score of the most recent run.
	OpenScore prometheus.Gauge

	// Labels: aggregation
	Evaluations *prometheus.CounterVec
}

// NewRecorder creates and registers the evaluation collectors on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		MetricExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "caterya_metric_executions_total",
				Help: "Total metric computations by metric and outcome",
			},
			[]string{"metric", "status"},
		),
		MetricDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "caterya_metric_duration_seconds",
				Help:    "Duration of metric computations in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"metric"},
		),
		OpenScore: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "caterya_open_score",
				Help: "Open score of the most recent evaluation run",
			},
		),
		Evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "caterya_evaluations_total",
				Help: "Total evaluation runs by aggregation method",
			},
			[]string{"aggregation"},
		),
	}
}

// MetricExecuted records one metric computation.
func (r *Recorder) MetricExecuted(metric string, ok bool, d time.Duration) {
	if r == nil {
		return
	}
	status := StatusOK
	if !ok {
		status = StatusFailed
	}
	r.MetricExecutions.WithLabelValues(metric, status).Inc()
	r.MetricDuration.WithLabelValues(metric).Observe(d.Seconds())
}

// EvaluationCompleted records a finished run.
func (r *Recorder) EvaluationCompleted(aggregation string, openScore float64) {
	if r == nil {
		return
	}
	r.Evaluations.WithLabelValues(aggregation).Inc()
	r.OpenScore.Set(openScore)
}
