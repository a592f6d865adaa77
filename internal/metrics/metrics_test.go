package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/morningbrew/internal/tools"
)

var _ tools.Observer = (*Metrics)(nil)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("morningbrew", reg)

	m.JobStarted()
	m.JobStarted()
	m.JobFinished("done", 3*time.Second)
	m.AgentRounds(3)
	m.ObserveToolCall("weather", "ok", 100*time.Millisecond)
	m.ObserveToolCall("weather", "error", time.Second)
	m.ObserveToolCall("generate_image", "ok", 8*time.Second)
	m.RateLimited()
	m.ConcurrencyConflict()
	m.ConcurrencyConflict()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.jobsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobsInProgress))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobsFinished.WithLabelValues("done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("weather", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("weather", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.concurrencyDenied))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["morningbrew_job_duration_seconds"])
	assert.True(t, names["morningbrew_agent_rounds"])
	assert.True(t, names["morningbrew_tool_call_duration_seconds"])
}

func TestMetrics_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New("x", reg)
	assert.Panics(t, func() { New("x", reg) })
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.JobStarted()
		m.JobFinished("error", time.Second)
		m.AgentRounds(1)
		m.ObserveToolCall("weather", "ok", time.Millisecond)
		m.RateLimited()
		m.ConcurrencyConflict()
	})
}
