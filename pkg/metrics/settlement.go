package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records wallet debit attempts and their outcomes.
type SettlementMetrics struct {
	outcomes      *prometheus.CounterVec
	debitDuration prometheus.Histogram
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_charge_outcomes_total",
		Help: "Wallet charge attempts by outcome.",
	}, []string{"outcome"})
	debitDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "settlement_debit_duration_seconds",
		Help:    "Duration of wallet ledger debit calls in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(outcomes, debitDuration)
	return &SettlementMetrics{
		outcomes:      outcomes,
		debitDuration: debitDuration,
	}
}

// IncOutcome increments the counter for the given charge outcome.
func (s *SettlementMetrics) IncOutcome(outcome string) {
	if s == nil || s.outcomes == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	s.outcomes.WithLabelValues(outcome).Inc()
}

// ObserveDebitDuration records how long a ledger debit call took.
func (s *SettlementMetrics) ObserveDebitDuration(duration time.Duration) {
	if s == nil || s.debitDuration == nil {
		return
	}
	s.debitDuration.Observe(duration.Seconds())
}
