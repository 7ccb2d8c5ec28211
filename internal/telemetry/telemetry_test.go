package telemetry

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func TestNewMetricsRegistersAllCollectors(t *testing.T) {
	m := NewMetrics()
	// A CounterVec is gathered only once it has at least one child.
	m.CallCounts.WithLabelValues("vault::deposit")
	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) != 6 {
		t.Fatalf("expected 6 registered metric families, got %d", len(families))
	}
}

func TestCallCountsIncrementsPerFunction(t *testing.T) {
	m := NewMetrics()
	m.CallCounts.WithLabelValues("vault::withdraw").Inc()
	m.CallCounts.WithLabelValues("vault::withdraw").Inc()
	m.CallCounts.WithLabelValues("vault::deposit").Inc()

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var got *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "movefuzz_function_calls_total" {
			got = f
		}
	}
	if got == nil {
		t.Fatalf("expected movefuzz_function_calls_total to be registered")
	}
	if len(got.Metric) != 2 {
		t.Fatalf("expected 2 label combinations, got %d", len(got.Metric))
	}
}
