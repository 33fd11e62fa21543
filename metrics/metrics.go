package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ============================================================================
// Prometheus Metrics for Pipeline Phases
// ============================================================================

// Label constants for metrics.
const (
	LabelPhase   = "phase"
	LabelPrimary = "primary"
)

// Phase names reported by the pipeline.
const (
	PhaseCreate   = "create"
	PhasePopulate = "populate"
	PhaseBuild    = "build"
	PhaseAlign    = "align"
	PhaseRemap    = "remap"
)

// PhaseMetrics provides Prometheus metrics for the remap pipeline. A nil
// *PhaseMetrics is valid and records nothing.
type PhaseMetrics struct {
	phaseDuration *prometheus.HistogramVec
	phaseTasks    *prometheus.CounterVec
	phaseFailures *prometheus.CounterVec
	alignedRanges *prometheus.GaugeVec
}

// NewPhaseMetrics creates and registers pipeline metrics.
// If registry is nil, metrics will be created but not registered (useful for testing).
func NewPhaseMetrics(registry prometheus.Registerer) *PhaseMetrics {
	m := &PhaseMetrics{
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "blockremap",
				Subsystem: "phase",
				Name:      "duration_seconds",
				Help:      "Wall time of a pipeline phase",
				Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5},
			},
			[]string{LabelPhase},
		),

		phaseTasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blockremap",
				Subsystem: "phase",
				Name:      "tasks_total",
				Help:      "Total number of tasks launched per phase",
			},
			[]string{LabelPhase},
		),

		phaseFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blockremap",
				Subsystem: "phase",
				Name:      "failures_total",
				Help:      "Number of phases aborted by a task error",
			},
			[]string{LabelPhase},
		),

		alignedRanges: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "blockremap",
				Name:      "aligned_ranges",
				Help:      "Number of coalesced secondary ranges visible to each primary block",
			},
			[]string{LabelPrimary},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.phaseDuration,
			m.phaseTasks,
			m.phaseFailures,
			m.alignedRanges,
		)
	}
	return m
}

// ObservePhase records one completed or failed phase
func (m *PhaseMetrics) ObservePhase(phase string, tasks int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
	m.phaseTasks.WithLabelValues(phase).Add(float64(tasks))
	if err != nil {
		m.phaseFailures.WithLabelValues(phase).Inc()
	}
}

// SetAlignedRanges records the number of ranges in a primary block's cell
func (m *PhaseMetrics) SetAlignedRanges(primary, ranges int) {
	if m == nil {
		return
	}
	m.alignedRanges.WithLabelValues(strconv.Itoa(primary)).Set(float64(ranges))
}
