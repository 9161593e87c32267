package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Context's Prometheus instruments. A nil *Metrics records
// nothing.
type Metrics struct {
	transitions   *prometheus.CounterVec
	failures      *prometheus.CounterVec
	depth         *prometheus.GaugeVec
	states        prometheus.Histogram
	journalErrors prometheus.Counter
}

// NewMetrics registers the engine metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Labels: op (commit, undo, redo, evict, invalidate)
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floorplan",
			Subsystem: "history",
			Name:      "transitions_total",
			Help:      "History transitions by operation",
		}, []string{"op"}),

		// Labels: op (commit, undo, redo)
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floorplan",
			Subsystem: "history",
			Name:      "failures_total",
			Help:      "Failed commits, undos and redos",
		}, []string{"op"}),

		// Labels: stack (undo, redo)
		depth: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "floorplan",
			Subsystem: "history",
			Name:      "depth",
			Help:      "Requests on each history stack",
		}, []string{"stack"}),

		states: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "floorplan",
			Subsystem: "txn",
			Name:      "states_per_commit",
			Help:      "Transaction states recorded by one committed request",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
		}),

		journalErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "floorplan",
			Subsystem: "journal",
			Name:      "errors_total",
			Help:      "History events the journal failed to record",
		}),
	}
}

func (m *Metrics) transition(op string) {
	if m != nil {
		m.transitions.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) failure(op string) {
	if m != nil {
		m.failures.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) observe(h *History) {
	if m != nil {
		m.depth.WithLabelValues("undo").Set(float64(h.UndoLen()))
		m.depth.WithLabelValues("redo").Set(float64(h.RedoLen()))
	}
}

func (m *Metrics) committed(states int) {
	if m != nil {
		m.states.Observe(float64(states))
	}
}

func (m *Metrics) journalError() {
	if m != nil {
		m.journalErrors.Inc()
	}
}
