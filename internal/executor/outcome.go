package executor

import (
	"github.com/movy/movefuzz/internal/concolic"
	"github.com/movy/movefuzz/internal/oracle"
	"github.com/movy/movefuzz/pkg/move"
)

// Verdict classifies a completed execution (spec.md §3 TraceOutcome).
type Verdict uint8

const (
	VerdictOk Verdict = iota
	VerdictCrash
)

// ExecutionOutcome is the Result<{effects, store, gas_status}> the
// Executor contract returns (spec.md §6), minus the store (owned
// internally and committed to the ledger, not surfaced to the core).
type ExecutionOutcome struct {
	Effects Effects
	Gas     GasStatus
}

// TraceOutcome is the Executor's full per-execution report (spec.md §3):
// a verdict, the findings that produced it, every captured comparison/
// cast/shift log keyed by function, the final concolic state, and any
// pending tracer-surfaced error.
type TraceOutcome struct {
	Verdict      Verdict
	Findings     []oracle.Finding
	Logs         map[move.Ident][]concolic.Log
	Concolic     *concolic.State
	PendingError error
}

// ExecutionExtraOutcome is TraceOutcome's projection for the mutator
// (spec.md §3): the logs, the final concolic state, the failing
// command's stage index (nil when the execution succeeded), and whether
// the command sequence ran to completion.
type ExecutionExtraOutcome struct {
	Logs     map[move.Ident][]concolic.Log
	Solver   *concolic.State
	StageIdx *int
	Success  bool
}

// GlobalOutcome is the single mutable slot produced by the Executor,
// read by the next mutator call, and cleared by the fuzz loop between
// cycles (spec.md §3/§5 "Shared-resource policy").
type GlobalOutcome struct {
	Exec  ExecutionOutcome
	Extra ExecutionExtraOutcome
	Trace TraceOutcome
}
