// Package metrics exposes Prometheus collectors for jobs, agent rounds and
// tool calls. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	jobsStarted       prometheus.Counter
	jobsFinished      *prometheus.CounterVec
	jobDuration       *prometheus.HistogramVec
	jobsInProgress    prometheus.Gauge
	agentRounds       prometheus.Histogram
	toolCalls         *prometheus.CounterVec
	toolDuration      *prometheus.HistogramVec
	rateLimited       prometheus.Counter
	concurrencyDenied prometheus.Counter
}

// New creates the collectors and registers them on reg
// (prometheus.DefaultRegisterer when nil).
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		jobsStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_started_total",
				Help:      "Total number of image jobs started",
			},
		),
		jobsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_finished_total",
				Help:      "Total number of image jobs finished, by terminal status",
			},
			[]string{"status"},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Duration of image jobs",
				Buckets:   []float64{1, 5, 10, 20, 30, 60, 120, 300},
			},
			[]string{"status"},
		),
		jobsInProgress: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "jobs_in_progress",
				Help:      "Number of jobs currently processing",
			},
		),
		agentRounds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "agent_rounds",
				Help:      "Model rounds needed by successful agent runs",
				Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
			},
		),
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of tool calls, by tool and status",
			},
			[]string{"tool", "status"},
		),
		toolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_call_duration_seconds",
				Help:      "Duration of tool calls",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"tool"},
		),
		rateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_rejections_total",
				Help:      "Start requests rejected by the rate limiter",
			},
		),
		concurrencyDenied: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "concurrency_conflicts_total",
				Help:      "Start requests rejected because a job was processing",
			},
		),
	}

	reg.MustRegister(
		m.jobsStarted,
		m.jobsFinished,
		m.jobDuration,
		m.jobsInProgress,
		m.agentRounds,
		m.toolCalls,
		m.toolDuration,
		m.rateLimited,
		m.concurrencyDenied,
	)

	return m
}

func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.jobsStarted.Inc()
	m.jobsInProgress.Inc()
}

func (m *Metrics) JobFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobsInProgress.Dec()
	m.jobsFinished.WithLabelValues(status).Inc()
	m.jobDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (m *Metrics) AgentRounds(rounds int) {
	if m == nil {
		return
	}
	m.agentRounds.Observe(float64(rounds))
}

// ObserveToolCall implements tools.Observer.
func (m *Metrics) ObserveToolCall(tool, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, status).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *Metrics) ConcurrencyConflict() {
	if m == nil {
		return
	}
	m.concurrencyDenied.Inc()
}
