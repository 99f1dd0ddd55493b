package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveGatewayCall("us-east-1", "list_trails", 0.1)
	m.IncGatewayError("us-east-1", "list_trails", "timeout")
	m.SetBreakerState("us-east-1", 2)
	m.IncVerdict("3.10", "PASSED")
}

func TestNew_NilRegistererUsesPrivateRegistry(t *testing.T) {
	// Two instances must not collide on registration.
	_ = New(nil)
	_ = New(nil)
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncVerdict("4.1", "FAILED")
	m.IncVerdict("4.1", "FAILED")
	m.IncGatewayError("eu-west-1", "find_alarm", "breaker_open")
	m.SetBreakerState("eu-west-1", 2)

	if got := testutil.ToFloat64(m.Verdicts.WithLabelValues("4.1", "FAILED")); got != 2 {
		t.Errorf("verdicts = %v; want 2", got)
	}
	if got := testutil.ToFloat64(m.GatewayErrors.WithLabelValues("eu-west-1", "find_alarm", "breaker_open")); got != 1 {
		t.Errorf("gateway errors = %v; want 1", got)
	}
	if got := testutil.ToFloat64(m.BreakerState.WithLabelValues("eu-west-1")); got != 2 {
		t.Errorf("breaker state = %v; want 2", got)
	}
	if n := testutil.CollectAndCount(m.Verdicts); n != 1 {
		t.Errorf("verdict series = %d; want 1", n)
	}
}
