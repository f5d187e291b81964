package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SessionStartedTotal counts payment session launches by result (opened/blocked).
	SessionStartedTotal *prometheus.CounterVec
	// SessionOutcomeTotal counts terminal session outcomes by resolution path.
	SessionOutcomeTotal *prometheus.CounterVec
	// VerificationTotal counts fallback verification results.
	VerificationTotal *prometheus.CounterVec
	// BreakerState exposes the verification breaker state (0 closed, 1 open, 2 half-open).
	BreakerState *prometheus.GaugeVec
	// SimTransactionsTotal counts transactions recorded by the checkout simulator.
	SimTransactionsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SessionStartedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_sessions_started_total",
			Help:      "Count of payment session launch attempts by result.",
		}, []string{"result"})
		SessionOutcomeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_session_outcomes_total",
			Help:      "Count of terminal session outcomes by resolution path.",
		}, []string{"outcome", "path"})
		VerificationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_verification_total",
			Help:      "Count of fallback verification calls by result.",
		}, []string{"result"})
		BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "verification_breaker_state",
			Help:      "Circuit breaker state for the verification endpoint.",
		}, []string{"target"})
		SimTransactionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sim_transactions_total",
			Help:      "Count of transactions recorded by the checkout simulator.",
		}, []string{"status"})

		mustRegisterCollector(reg, SessionStartedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SessionStartedTotal = v
			}
		})
		mustRegisterCollector(reg, SessionOutcomeTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SessionOutcomeTotal = v
			}
		})
		mustRegisterCollector(reg, VerificationTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				VerificationTotal = v
			}
		})
		mustRegisterCollector(reg, BreakerState, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.GaugeVec); ok {
				BreakerState = v
			}
		})
		mustRegisterCollector(reg, SimTransactionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SimTransactionsTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
