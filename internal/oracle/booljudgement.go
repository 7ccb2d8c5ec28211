package oracle

import (
	"fmt"

	"github.com/movy/movefuzz/internal/concolic"
	"github.com/movy/movefuzz/pkg/move"
)

// BoolJudgementOracle raises a Minor finding at every comparison whose
// operands are both fully concrete (no uninterpreted constants): the
// comparison is constant-folded and dead (spec.md §4.8).
type BoolJudgementOracle struct{}

func (BoolJudgementOracle) Name() string { return "BoolJudgementOracle" }

func (BoolJudgementOracle) PreExecution(LedgerView, *State, *move.MoveSequence) {}

func (BoolJudgementOracle) Event(ev concolic.InstrEvent, currentFunc move.Ident, con *concolic.State, state *State) []Finding {
	if ev.Op != concolic.OpCompare {
		return nil
	}
	n := len(con.Stack)
	if n < 2 {
		return nil
	}
	l, r := con.Stack[n-2], con.Stack[n-1]
	if !l.Known || !r.Known || l.Expr == nil || r.Expr == nil {
		return nil
	}
	if !l.Expr.IsConcrete() || !r.Expr.IsConcrete() {
		return nil
	}
	return []Finding{{
		Oracle:   "BoolJudgementOracle",
		Severity: SeverityMinor,
		Message:  fmt.Sprintf("comparison %s %s at pc %d in %s is constant-folded", l.Expr, ev.CompareOp, ev.PC, currentFunc.Func),
	}}
}

func (BoolJudgementOracle) DoneExecution(LedgerView, *State, Effects) []Finding { return nil }
