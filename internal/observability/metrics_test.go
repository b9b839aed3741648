package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Generation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.GenerationStarted("score_task")
	m.GenerationStarted("score_task")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.GenerationInFlight.WithLabelValues("score_task")))

	m.GenerationFinished("score_task", "success", 300*time.Millisecond)
	m.GenerationFinished("score_task", "timeout", 2*time.Second)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.GenerationInFlight.WithLabelValues("score_task")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationCalls.WithLabelValues("score_task", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationCalls.WithLabelValues("score_task", "timeout")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.GenerationDuration))
}

func TestMetrics_RoadmapAndPipeline(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RoadmapAttempt("validator")
	m.RoadmapAttempt("accepted")
	m.RoadmapFinished(true, 2)
	m.RoadmapFinished(false, 3)
	m.PipelineFinished("success", 42*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoadmapAttempts.WithLabelValues("validator")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoadmapOutcomes.WithLabelValues("true", "2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoadmapOutcomes.WithLabelValues("false", "3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PipelineRuns.WithLabelValues("success")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "exposure_pipeline_duration_seconds")
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(nil)
		NewMetrics(nil)
	})
}
