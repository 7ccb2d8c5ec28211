// Package refvm is a minimal reference implementation of executor.VM:
// enough of a Move-call/native-command driving loop to exercise
// internal/executor's Tracer wiring end to end against a fixture
// ledger, without re-implementing real Move bytecode semantics (that
// remains an explicit Non-goal, spec.md §1/§13 — "no VM re-
// implementation"). A production deployment swaps this for the real
// on-chain execution engine; cmd/movefuzz only depends on the VM
// interface, never on this package's internals.
//
// Grounded on the teacher's internal/vybium-starks-vm/vm/vm_state.go
// drive loop (a struct owning both "run the program" and "record what
// happened", one cycle per instruction), generalized from a STARK
// instruction stream into one frame pair per PTB command: each
// CommandCall opens and closes a concolic call frame sized from the
// resolved FunctionAbi, and every command deducts a flat gas cost,
// mirroring the cycle-count/gas-budget bookkeeping VMState keeps.
package refvm

import (
	"github.com/movy/movefuzz/internal/concolic"
	"github.com/movy/movefuzz/internal/executor"
	"github.com/movy/movefuzz/internal/ledger"
	"github.com/movy/movefuzz/internal/tracer"
	"github.com/movy/movefuzz/pkg/move"
)

// GasPerCommand is the flat per-command charge this reference VM
// applies; there is no real gas schedule to model.
const GasPerCommand uint64 = 1000

// Ref is a reference VM: every Move call succeeds and opens/closes a
// concolic frame using its resolved FunctionAbi's parameter/return
// shape; native commands (transfer/split/merge/make-vec/publish/
// upgrade) succeed unconditionally and report no balance deltas beyond
// what a caller pre-seeds on the ledger. Resolver supplies FunctionAbi
// lookups the same way internal/fuzzloop.LedgerResolver does.
type Ref struct {
	Resolver move.AbiResolver
	GasBudget uint64
}

// New builds a Ref VM over resolver, with gasBudget as the PTB's total
// gas budget (spec.md §6's gas_status.budget); zero means unbounded.
func New(resolver move.AbiResolver, gasBudget uint64) *Ref {
	return &Ref{Resolver: resolver, GasBudget: gasBudget}
}

// Execute implements executor.VM. It never errors on well-formed input;
// a malformed Call (unresolvable function) surfaces as
// Effects.Status == StatusFailure at that command's index, the same
// shape a real abort would take.
func (r *Ref) Execute(seq *move.MoveSequence, led ledger.View, sender, gasID move.Address, epoch, epochMs uint64, tr *tracer.Tracer) (executor.Effects, error) {
	var used uint64
	for i, cmd := range seq.Commands {
		used += GasPerCommand
		if r.GasBudget > 0 && used > r.GasBudget {
			idx := i
			return executor.Effects{
				Status: executor.Status{Kind: executor.StatusFailure, Command: &idx, Err: errOutOfGas},
				Gas:    executor.GasStatus{Used: used, Budget: r.GasBudget, Overage: true},
			}, nil
		}

		if cmd.Kind != move.CommandCall || cmd.Call == nil {
			continue
		}

		tr.OnRawEvent("MoveCallStart")
		abi, ok := r.Resolver.ResolveFunction(cmd.Call.Package, cmd.Call.Module, cmd.Call.Function)
		if !ok {
			idx := i
			return executor.Effects{
				Status: executor.Status{Kind: executor.StatusFailure, Command: &idx, Err: errUnresolvedFunction},
				Gas:    executor.GasStatus{Used: used, Budget: r.GasBudget},
			}, nil
		}

		isInt := make([]bool, len(abi.Params))
		for pi, p := range abi.Params {
			isInt[pi] = p.Dereference().Kind.IsInteger()
		}
		tr.OpenFrame(concolic.OpenFrameEvent{
			Func:        abi.Ident(),
			ParamCount:  len(abi.Params),
			IsIntParam:  isInt,
			ReturnCount: len(abi.Returns),
		}, cmd.Call.Package)
		tr.CloseFrame(concolic.CloseFrameEvent{})
	}

	return executor.Effects{
		Status: executor.Status{Kind: executor.StatusSuccess},
		Gas:    executor.GasStatus{Used: used, Budget: r.GasBudget},
	}, nil
}

type refError struct{ msg string }

func (e *refError) Error() string { return e.msg }

var (
	errOutOfGas           = &refError{"refvm: gas budget exceeded"}
	errUnresolvedFunction = &refError{"refvm: unresolved function in Call command"}
)
