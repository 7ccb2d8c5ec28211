package oracle

import (
	"github.com/movy/movefuzz/internal/concolic"
	"github.com/movy/movefuzz/pkg/move"
)

// noopOracle implements Oracle with every hook a no-op; embedding it lets
// each stub oracle override only Name.
type noopOracle struct{}

func (noopOracle) PreExecution(LedgerView, *State, *move.MoveSequence) {}
func (noopOracle) Event(concolic.InstrEvent, move.Ident, *concolic.State, *State) []Finding {
	return nil
}
func (noopOracle) DoneExecution(LedgerView, *State, Effects) []Finding { return nil }

// OverflowOracle, InfiniteLoopOracle, PrecisionLossOracle,
// TypeConversionOracle, and TypedBugOracle are stubbed by interface per
// spec.md §4.8 ("stubbed by interface; implementers may add") — the
// spec's Open Questions leave their concrete detection policy
// unspecified, and this implementation does not invent one rather than
// guess at a policy the spec never states.
type OverflowOracle struct{ noopOracle }

func (OverflowOracle) Name() string { return "OverflowOracle" }

type InfiniteLoopOracle struct{ noopOracle }

func (InfiniteLoopOracle) Name() string { return "InfiniteLoopOracle" }

type PrecisionLossOracle struct{ noopOracle }

func (PrecisionLossOracle) Name() string { return "PrecisionLossOracle" }

type TypeConversionOracle struct{ noopOracle }

func (TypeConversionOracle) Name() string { return "TypeConversionOracle" }

type TypedBugOracle struct{ noopOracle }

func (TypedBugOracle) Name() string { return "TypedBugOracle" }
