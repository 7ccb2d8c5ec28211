// Package telemetry provides the ambient logging and metrics surface
// (SPEC_FULL.md §10.1): structured logging via github.com/rs/zerolog,
// grounded on the medusa manifest's fuzzer-status-logging split between
// an interactive console writer and batch JSON; and a small Prometheus
// registry (github.com/prometheus/client_golang) for per-cycle fuzz-loop
// metrics, grounded on oriys-nova's metrics wiring.
package telemetry

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// NewLogger builds a zerolog.Logger: a human-readable console writer
// when interactive is true (TTY sessions), structured JSON otherwise
// (batch/CI), mirroring medusa's fuzzer-status logging split.
func NewLogger(interactive bool) zerolog.Logger {
	if interactive {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Metrics is the fuzz loop's per-cycle Prometheus instrumentation.
type Metrics struct {
	Registry       *prometheus.Registry
	CyclesTotal    prometheus.Counter
	CorpusSize     prometheus.Gauge
	CrashesTotal   prometheus.Counter
	CoverageEdges  prometheus.Gauge
	ExecsPerSecond prometheus.Gauge
	CallCounts     *prometheus.CounterVec
}

// NewMetrics registers and returns a fresh Metrics set on its own
// registry, so multiple FuzzLoop instances (future parallel-corpus mode,
// SPEC_FULL.md §10.3) don't collide on global default-registry names.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "movefuzz_cycles_total",
			Help: "Total fuzz loop cycles executed.",
		}),
		CorpusSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "movefuzz_corpus_size",
			Help: "Current number of inputs in the live corpus.",
		}),
		CrashesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "movefuzz_crashes_total",
			Help: "Total Crash-verdict executions recorded.",
		}),
		CoverageEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "movefuzz_coverage_edges",
			Help: "Number of non-zero coverage map edges observed so far.",
		}),
		ExecsPerSecond: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "movefuzz_execs_per_second",
			Help: "Rolling executions-per-second rate.",
		}),
		CallCounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "movefuzz_function_calls_total",
			Help: "Per-function invocation counts (SPEC_FULL.md §12 meta-tracking).",
		}, []string{"function"}),
	}
	reg.MustRegister(m.CyclesTotal, m.CorpusSize, m.CrashesTotal, m.CoverageEdges, m.ExecsPerSecond, m.CallCounts)
	return m
}
