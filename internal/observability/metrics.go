package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for generation calls, roadmap loops
// and pipeline runs. It satisfies llm.Observer and roadmap.Observer.
type Metrics struct {
	GenerationCalls    *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	GenerationInFlight *prometheus.GaugeVec
	RoadmapAttempts    *prometheus.CounterVec
	RoadmapOutcomes    *prometheus.CounterVec
	PipelineRuns       *prometheus.CounterVec
	PipelineDuration   prometheus.Histogram
}

// NewMetrics registers the collectors with reg. A nil reg uses a private registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		GenerationCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exposure_generation_calls_total",
				Help: "Generation calls by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		GenerationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "exposure_generation_duration_seconds",
				Help:    "Duration of generation calls in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
			},
			[]string{"operation"},
		),
		GenerationInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "exposure_generation_in_flight",
				Help: "Generation calls currently outstanding",
			},
			[]string{"operation"},
		),
		RoadmapAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exposure_roadmap_attempts_total",
				Help: "Roadmap drafts by the stage that ended them",
			},
			[]string{"stage"},
		),
		RoadmapOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exposure_roadmap_outcomes_total",
				Help: "Roadmap loops by result and attempts used",
			},
			[]string{"accepted", "attempts"},
		),
		PipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exposure_pipeline_runs_total",
				Help: "Analyze calls by outcome",
			},
			[]string{"outcome"},
		),
		PipelineDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "exposure_pipeline_duration_seconds",
				Help:    "End-to-end duration of Analyze calls in seconds",
				Buckets: []float64{5, 10, 20, 40, 60, 120, 240, 480},
			},
		),
	}
}

func (m *Metrics) GenerationStarted(operation string) {
	m.GenerationInFlight.WithLabelValues(operation).Inc()
}

func (m *Metrics) GenerationFinished(operation, outcome string, elapsed time.Duration) {
	m.GenerationInFlight.WithLabelValues(operation).Dec()
	m.GenerationCalls.WithLabelValues(operation, outcome).Inc()
	m.GenerationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) RoadmapAttempt(stage string) {
	m.RoadmapAttempts.WithLabelValues(stage).Inc()
}

func (m *Metrics) RoadmapFinished(accepted bool, attempts int) {
	m.RoadmapOutcomes.WithLabelValues(strconv.FormatBool(accepted), strconv.Itoa(attempts)).Inc()
}

// PipelineFinished records one Analyze call.
func (m *Metrics) PipelineFinished(outcome string, elapsed time.Duration) {
	m.PipelineRuns.WithLabelValues(outcome).Inc()
	m.PipelineDuration.Observe(elapsed.Seconds())
}
