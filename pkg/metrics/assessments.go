package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded by assessment_create_total.
const (
	CreateOutcomeCreated   = "created"
	CreateOutcomeBypassed  = "bypassed"
	CreateOutcomeDuplicate = "duplicate"
)

// AssessmentMetrics records workflow activity.
type AssessmentMetrics struct {
	transitions *prometheus.CounterVec
	creates     *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
	orphans     prometheus.Gauge
}

// NewAssessmentMetrics registers the assessment metrics on the provided registerer.
func NewAssessmentMetrics(reg prometheus.Registerer) *AssessmentMetrics {
	if reg == nil {
		return &AssessmentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assessment_transitions_total",
		Help: "Committed assessment status transitions.",
	}, []string{"from", "to"})
	creates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assessment_create_total",
		Help: "Assessment creation attempts by outcome.",
	}, []string{"outcome"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assessment_transition_conflicts_total",
		Help: "Transitions refused because the status moved underneath the caller.",
	}, []string{"action"})
	orphans := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "assessment_orphans_found",
		Help: "Listings without an assessment at the last reconciliation scan.",
	})
	reg.MustRegister(transitions, creates, conflicts, orphans)
	return &AssessmentMetrics{
		transitions: transitions,
		creates:     creates,
		conflicts:   conflicts,
		orphans:     orphans,
	}
}

// IncTransition counts a committed transition.
func (m *AssessmentMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncCreate counts a creation attempt by outcome.
func (m *AssessmentMetrics) IncCreate(outcome string) {
	if m == nil || m.creates == nil {
		return
	}
	m.creates.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncConflict counts a refused transition.
func (m *AssessmentMetrics) IncConflict(action string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(action)).Inc()
}

// SetOrphans records the size of the last orphan scan.
func (m *AssessmentMetrics) SetOrphans(count int) {
	if m == nil || m.orphans == nil {
		return
	}
	m.orphans.Set(float64(count))
}
