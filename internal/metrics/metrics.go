// Package metrics exposes Prometheus instruments for control evaluation and
// resource gateway calls.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// GatewayCallDuration is the latency of a gateway operation including retries.
	GatewayCallDuration *prometheus.HistogramVec

	// GatewayErrors counts failed gateway operations by operation and cause
	// (timeout, breaker_open, rate_limit, error).
	GatewayErrors *prometheus.CounterVec

	// BreakerState is 0 while the region's breaker is closed, 1 while half-open
	// and 2 while open.
	BreakerState *prometheus.GaugeVec

	// Verdicts counts evaluated controls by control and status.
	Verdicts *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg gets a private registry
// that is never exported.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		GatewayCallDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "alertchain_gateway_call_duration_seconds",
			Help:    "Latency of resource gateway operations.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"region", "operation"}),

		GatewayErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "alertchain_gateway_errors_total",
			Help: "Resource gateway operations that failed, by cause.",
		}, []string{"region", "operation", "cause"}),

		BreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "alertchain_gateway_breaker_state",
			Help: "Circuit breaker state per region (0=closed, 1=half-open, 2=open).",
		}, []string{"region"}),

		Verdicts: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "alertchain_verdicts_total",
			Help: "Evaluated controls by verdict status.",
		}, []string{"control_id", "status"}),
	}
}

// ObserveGatewayCall records the latency of one operation.
func (m *Metrics) ObserveGatewayCall(region, operation string, seconds float64) {
	if m == nil {
		return
	}
	m.GatewayCallDuration.WithLabelValues(region, operation).Observe(seconds)
}

// IncGatewayError counts one failed operation.
func (m *Metrics) IncGatewayError(region, operation, cause string) {
	if m == nil {
		return
	}
	m.GatewayErrors.WithLabelValues(region, operation, cause).Inc()
}

// SetBreakerState records the breaker state for region.
func (m *Metrics) SetBreakerState(region string, state float64) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(region).Set(state)
}

// IncVerdict counts one evaluated control.
func (m *Metrics) IncVerdict(controlID, status string) {
	if m == nil {
		return
	}
	m.Verdicts.WithLabelValues(controlID, status).Inc()
}
