package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mcpflow"

// Metrics holds the pipeline's prometheus collectors. A nil *Metrics is a
// valid no-op.
type Metrics struct {
	Runs              *prometheus.CounterVec
	Steps             *prometheus.CounterVec
	DiscoveryFailures prometheus.Counter
	StageDuration     *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Executed plan steps by outcome.",
		}, []string{"outcome"}),
		DiscoveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_failures_total",
			Help:      "Manifest fetches that fell back to an empty descriptor.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent per pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
	if reg != nil {
		reg.MustRegister(m.Runs, m.Steps, m.DiscoveryFailures, m.StageDuration)
	}
	return m
}

func (m *Metrics) RunFinished(outcome string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StepFinished(outcome string) {
	if m == nil {
		return
	}
	m.Steps.WithLabelValues(outcome).Inc()
}

func (m *Metrics) DiscoveryFailed() {
	if m == nil {
		return
	}
	m.DiscoveryFailures.Inc()
}

// ObserveStage records the time since start under stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
