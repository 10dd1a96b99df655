// Package metrics provides the gateway's Prometheus instrumentation. This
// package is internal and should not be imported by external projects.
// Grounded on the teacher's internal/metrics.Collector
// (agentflow/internal/metrics/collector.go): one promauto-built CounterVec,
// HistogramVec or GaugeVec per concern, constructed once and shared across
// requests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the gateway's metric instruments. The embedding binary
// decides how (or whether) to expose them; the Collector itself never opens
// an HTTP listener.
type Collector struct {
	routeDecisionsTotal *prometheus.CounterVec
	retryAttemptsTotal  *prometheus.CounterVec
	failOpensTotal      *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	circuitBreakerState *prometheus.GaugeVec
}

// NewCollector registers the gateway's instruments under namespace with the
// default Prometheus registry.
func NewCollector(namespace string) *Collector {
	return &Collector{
		routeDecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "route_decisions_total",
				Help:      "Total number of models chosen by the router, by tier and provider.",
			},
			[]string{"tier", "provider"},
		),
		retryAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retry_attempts_total",
				Help:      "Total number of retry-loop attempts, by outcome.",
			},
			[]string{"outcome"},
		),
		failOpensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fail_opens_total",
				Help:      "Total number of terminal fail-open attempts, by outcome.",
			},
			[]string{"outcome"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "End-to-end Executor.Create duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		circuitBreakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_open",
				Help:      "1 if the Health Tracker currently reports the provider unhealthy, 0 otherwise.",
			},
			[]string{"provider"},
		),
	}
}

// ObserveRouteDecision records a successful router selection.
func (c *Collector) ObserveRouteDecision(tier, provider string) {
	c.routeDecisionsTotal.WithLabelValues(tier, provider).Inc()
}

// ObserveRetryAttempt records one retry-loop iteration's outcome
// ("success", "no_healthy_model", "retriable_failure", "other_failure").
func (c *Collector) ObserveRetryAttempt(outcome string) {
	c.retryAttemptsTotal.WithLabelValues(outcome).Inc()
}

// ObserveFailOpen records the outcome of the terminal fail-open attempt
// ("success" or "failure").
func (c *Collector) ObserveFailOpen(outcome string) {
	c.failOpensTotal.WithLabelValues(outcome).Inc()
}

// ObserveRequestDuration records the end-to-end duration of one
// Executor.Create call, in seconds.
func (c *Collector) ObserveRequestDuration(outcome string, seconds float64) {
	c.requestDuration.WithLabelValues(outcome).Observe(seconds)
}

// SetCircuitBreakerState records whether provider is currently excluded by
// the Health Tracker.
func (c *Collector) SetCircuitBreakerState(provider string, open bool) {
	v := 0.0
	if open {
		v = 1.0
	}
	c.circuitBreakerState.WithLabelValues(provider).Set(v)
}
