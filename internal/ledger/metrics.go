package ledger

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/splitwiser/internal/models"
)

// Metrics holds the ledger's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	mutations *prometheus.CounterVec
	conflicts *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitwiser",
			Subsystem: "ledger",
			Name:      "mutations_total",
			Help:      "Ledger mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitwiser",
			Subsystem: "ledger",
			Name:      "conflicts_total",
			Help:      "Transactions retried after a concurrency conflict.",
		}, []string{"op"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "splitwiser",
			Subsystem: "ledger",
			Name:      "tx_duration_seconds",
			Help:      "Time spent in ledger transactions, including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(m.mutations, m.conflicts, m.duration)
	return m
}

func (m *Metrics) conflict(op string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(op).Inc()
}

func (m *Metrics) observe(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, outcome(err)).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrValidation):
		return "invalid"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrConcurrencyConflict):
		return "conflict"
	case errors.Is(err, models.ErrInvariantViolation):
		return "invariant"
	case errors.Is(err, models.ErrOutstandingBalance):
		return "outstanding"
	default:
		return "error"
	}
}
