package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the orchestrator module.
type Metrics struct {
	// Inbound messages by the stage they arrived in
	MessagesTotal *prometheus.CounterVec

	// Stage transitions by from/to pair
	Transitions *prometheus.CounterVec

	// Flow outcomes: manual_review, declined, sanctioned
	Outcomes *prometheus.CounterVec

	// Full message handling latency
	HandleLatency prometheus.Histogram
}

// New creates a new Metrics instance with all orchestrator metrics registered.
func New() *Metrics {
	return &Metrics{
		MessagesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "greenlight_orchestrator_messages_total",
			Help: "Total inbound messages by the session stage they arrived in",
		}, []string{"stage"}),

		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "greenlight_orchestrator_stage_transitions_total",
			Help: "Total stage transitions by from/to stage",
		}, []string{"from", "to"}),

		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "greenlight_orchestrator_outcomes_total",
			Help: "Total terminal flow outcomes",
		}, []string{"outcome"}),

		HandleLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "greenlight_orchestrator_handle_duration_seconds",
			Help:    "Duration of full message handling including stage work",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// IncrementMessages records an inbound message for a stage.
func (m *Metrics) IncrementMessages(stage string) {
	if m != nil {
		m.MessagesTotal.WithLabelValues(stage).Inc()
	}
}

// IncrementTransition records a stage transition.
func (m *Metrics) IncrementTransition(from, to string) {
	if m != nil {
		m.Transitions.WithLabelValues(from, to).Inc()
	}
}

// IncrementOutcome records a terminal flow outcome.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(outcome).Inc()
	}
}

// ObserveHandleLatency records the total message handling duration.
func (m *Metrics) ObserveHandleLatency(d time.Duration) {
	if m != nil {
		m.HandleLatency.Observe(d.Seconds())
	}
}
