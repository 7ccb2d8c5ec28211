// Package tracer bridges the raw VM trace callback surface (spec.md §6:
// open_frame/close_frame/before_instruction/on_effect/on_raw_event) into
// internal/concolic's shadow-stack simulation and internal/oracle's
// pipeline, and arms coverage-map writes on branch and frame-boundary
// events (spec.md §4.3). Grounded on the teacher's
// internal/vybium-starks-vm/vm/trace_recorder.go recording shape,
// adapted from a STARK execution trace (one row per VM step) to a
// callback-driven event stream.
package tracer

import (
	"github.com/movy/movefuzz/internal/concolic"
	"github.com/movy/movefuzz/internal/oracle"
	"github.com/movy/movefuzz/pkg/move"
)

// CoverageSink receives an edge hit. Implemented by internal/executor's
// CoverageMap; declared here (rather than importing internal/executor)
// so internal/executor can depend on internal/tracer without a cycle.
type CoverageSink interface {
	Hit(prevPC uint64, pc uint64, pkg move.Address)
}

// ArmingEvent classifies which VM events arm the next coverage write, per
// spec.md §4.3: "Branches and Frame Open/Close are the only events that
// arm a coverage write (next instruction hits)."
type ArmingEvent uint8

const (
	ArmBranch ArmingEvent = iota
	ArmFrameOpen
	ArmFrameClose
)

// Tracer implements the callback surface the VM drives during PTB
// execution.
type Tracer struct {
	Concolic *concolic.State
	Oracles  *oracle.Pipeline
	Coverage CoverageSink
	State    *oracle.State
	Ledger   oracle.LedgerView

	armed      bool
	currentPkg move.Address
	prevPC     uint64

	PendingError error
}

// New creates a Tracer wired to a fresh concolic state, the oracle
// pipeline, and the coverage sink.
func New(con *concolic.State, oracles *oracle.Pipeline, coverage CoverageSink, ledger oracle.LedgerView, state *oracle.State) *Tracer {
	return &Tracer{Concolic: con, Oracles: oracles, Coverage: coverage, Ledger: ledger, State: state}
}

// PreExecution runs every oracle's pre_execution hook (spec.md §4.8).
func (t *Tracer) PreExecution(seq *move.MoveSequence) {
	t.Oracles.PreExecution(t.Ledger, t.State, seq)
}

// OpenFrame implements open_frame(frame, gas_left): updates the shadow
// call stack and arms a coverage write.
func (t *Tracer) OpenFrame(ev concolic.OpenFrameEvent, pkg move.Address) {
	t.Concolic.OpenFrame(ev)
	t.currentPkg = pkg
	t.armed = true
}

// CloseFrame implements close_frame(frame_id, return, gas_left).
func (t *Tracer) CloseFrame(ev concolic.CloseFrameEvent) {
	t.Concolic.CloseFrame(ev)
	t.armed = true
}

// BeforeInstruction implements before_instruction(vm_state, tys, pc,
// gas_left, op): advances the coverage map if armed, dispatches the
// event to every oracle (operating on the pre-mutation shadow stack, so
// e.g. BoolJudgementOracle sees comparison operands still on top), then
// lets ConcolicState simulate the instruction's abstract semantics, and
// finally re-synchronizes the stack-length invariant.
func (t *Tracer) BeforeInstruction(ev concolic.InstrEvent, vmStackLenAfter int, currentFunc move.Ident) {
	if t.armed {
		if t.Coverage != nil {
			t.Coverage.Hit(t.prevPC, ev.PC, t.currentPkg)
		}
		t.prevPC = ev.PC
		t.armed = false
	}

	t.Oracles.Event(ev, currentFunc, t.Concolic, t.State)

	t.Concolic.BeforeInstruction(ev)
	t.Concolic.AssertStackLen(vmStackLenAfter)

	switch ev.Op {
	case concolic.OpBrTrue, concolic.OpBrFalse:
		t.armed = true
	}
}

// OnEffect implements on_effect(effect): surfaces an ExecutionError to
// the concolic state for resynchronization (spec.md §4.2 Effect row).
func (t *Tracer) OnEffect(isError bool) {
	t.Concolic.Effect(concolic.EffectEvent{IsError: isError})
	if isError {
		t.PendingError = errExecution
	}
}

// OnRawEvent implements on_raw_event(vm_state, event): forwards named
// out-of-band signals, notably "MoveCallStart" per spec.md §4.2.
func (t *Tracer) OnRawEvent(name string) {
	t.Concolic.External(concolic.ExternalEvent{Name: name})
}

// DoneExecution runs every oracle's done_execution hook.
func (t *Tracer) DoneExecution(effects oracle.Effects) ([]oracle.Finding, bool) {
	return t.Oracles.DoneExecution(t.Ledger, t.State, effects)
}

var errExecution = &tracerError{"tracer: pending execution error"}

type tracerError struct{ msg string }

func (e *tracerError) Error() string { return e.msg }
