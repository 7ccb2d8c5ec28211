// Package executor implements the Executor + Tracer pipeline (spec.md
// §4.3, component C8): running a PTB through a Move VM with tracing
// enabled, maintaining the coverage map, and packaging the run into the
// GlobalOutcome/TraceOutcome/ExecutionExtraOutcome lifecycle the mutator
// and fuzz loop consume. No VM bytecode interpreter is implemented here
// — that is an explicit Non-goal (spec.md §1/§13) — only the wiring of
// internal/tracer into whatever VM implementation satisfies the VM
// interface below. Grounded on the teacher's
// internal/vybium-starks-vm/vm/vm_state.go drive-loop (a struct owning
// both "run the program" and "record what happened"), adapted from a
// STARK execution trace into Move PTB execution plus fuzzer feedback.
package executor

import (
	"github.com/shopspring/decimal"

	"github.com/movy/movefuzz/internal/concolic"
	"github.com/movy/movefuzz/internal/ledger"
	"github.com/movy/movefuzz/internal/oracle"
	"github.com/movy/movefuzz/internal/tracer"
	"github.com/movy/movefuzz/pkg/move"
)

// VM is the externally supplied Move bytecode interpreter this Executor
// drives. internal/executor never re-implements VM semantics; it only
// constructs a Tracer and hands it to the VM's Execute call, then
// packages the returned Effects.
type VM interface {
	Execute(seq *move.MoveSequence, led ledger.View, sender, gasID move.Address, epoch, epochMs uint64, tr *tracer.Tracer) (Effects, error)
}

// Executor owns the coverage map and runs PTBs through a VM, per
// spec.md §5's shared-resource policy: the coverage map and the
// GlobalOutcome slot are uniquely owned here and passed by reference
// into the mutator between cycles.
type Executor struct {
	Coverage *CoverageMap
	Oracles  *oracle.Pipeline
	Ledger   ledger.View
	VM       VM
}

// New creates an Executor with a freshly sized coverage map.
func New(coverageSize int, oracles *oracle.Pipeline, led ledger.View, vm VM) *Executor {
	return &Executor{
		Coverage: NewCoverageMap(coverageSize),
		Oracles:  oracles,
		Ledger:   led,
		VM:       vm,
	}
}

// ledgerBalanceView adapts ledger.View to oracle.LedgerView; only
// *ledger.FakeLedger exposes BalanceOf today, so nil-asserted views
// degrade to "no balance information" rather than a panic.
type ledgerBalanceView struct {
	led ledger.View
}

func (v ledgerBalanceView) BalanceOf(addr move.Address, coinType move.SignatureToken) (int64, error) {
	if b, ok := v.led.(oracle.LedgerView); ok {
		return b.BalanceOf(addr, coinType)
	}
	return 0, nil
}

// Run implements run_ptb_with_gas(P, epoch, epoch_ms, sender, gas_id,
// tracer?) (spec.md §6): executes seq, arms the tracer's coverage and
// oracle hooks, and returns the GlobalOutcome the mutator reads next.
//
// Errors returned here are hard failures of *this* execution (e.g. a
// missing ledger object) — per spec.md §7, these are not fatal to the
// fuzzer; the caller should simply skip feedback for this cycle. A Move
// abort surfaces as a non-error Effects.Status == StatusFailure instead.
func (e *Executor) Run(seq *move.MoveSequence, epoch, epochMs uint64, sender, gasID move.Address) (*GlobalOutcome, error) {
	e.Coverage.Calibrate()

	con := concolic.New()
	state := &oracle.State{Sender: sender, BalanceDelta: map[move.Address]map[string]decimal.Decimal{}}
	tr := tracer.New(con, e.Oracles, e.Coverage, ledgerBalanceView{e.Ledger}, state)

	tr.PreExecution(seq)

	effects, err := e.VM.Execute(seq, e.Ledger, sender, gasID, epoch, epochMs, tr)
	if err != nil {
		e.Coverage.Reset()
		return nil, err
	}

	for _, bc := range effects.BalanceChanges {
		if state.BalanceDelta[bc.Address] == nil {
			state.BalanceDelta[bc.Address] = map[string]decimal.Decimal{}
		}
		key := bc.CoinType.String()
		state.BalanceDelta[bc.Address][key] = state.BalanceDelta[bc.Address][key].Add(decimal.NewFromInt(bc.Delta))
	}
	state.GasUsed = effects.Gas.Used

	findings, crash := tr.DoneExecution(oracle.Effects{Success: effects.succeeded()})
	if tr.PendingError != nil {
		crash = true // a pending tracer error elevates the verdict to Crash
	}

	verdict := VerdictOk
	if crash {
		verdict = VerdictCrash
	}

	var stageIdx *int
	if effects.Status.Kind == StatusFailure && effects.Status.Command != nil {
		idx := *effects.Status.Command
		stageIdx = &idx
	}

	trace := TraceOutcome{
		Verdict:      verdict,
		Findings:     findings,
		Logs:         con.Logs,
		Concolic:     con,
		PendingError: tr.PendingError,
	}

	return &GlobalOutcome{
		Exec: ExecutionOutcome{Effects: effects, Gas: effects.Gas},
		Extra: ExecutionExtraOutcome{
			Logs:     con.Logs,
			Solver:   con,
			StageIdx: stageIdx,
			Success:  effects.succeeded(),
		},
		Trace: trace,
	}, nil
}
