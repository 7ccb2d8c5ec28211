package solver

import (
	"testing"

	"github.com/movy/movefuzz/internal/concolic"
	"github.com/movy/movefuzz/pkg/move"
)

func TestSolveEmptyConstraintsIsUnsat(t *testing.T) {
	s := New(1)
	abi := &move.FunctionAbi{Params: []move.SignatureToken{move.U64()}}
	args := map[uint16]concolic.Sym{0: concolic.Known(concolic.Var("call_0.param_0"))}

	outcome, assignment := s.Solve(abi, args, nil)
	if outcome != OutcomeUNSAT {
		t.Fatalf("expected UNSAT for empty constraint set, got %v", outcome)
	}
	if assignment != nil {
		t.Fatalf("expected nil assignment, got %v", assignment)
	}
}

func TestSolveFindsSatisfyingAssignment(t *testing.T) {
	s := New(42)
	abi := &move.FunctionAbi{Params: []move.SignatureToken{move.U64()}}
	x := concolic.Var("call_0.param_0")
	args := map[uint16]concolic.Sym{0: concolic.Known(x)}

	constraints := []concolic.Constraint{
		concolic.NewConstraint(concolic.OpGt, x, concolic.ConstU64(1000)),
		concolic.NewConstraint(concolic.OpLt, x, concolic.ConstU64(2000)),
	}

	outcome, assignment := s.Solve(abi, args, constraints)
	if outcome != OutcomeSAT {
		t.Fatalf("expected SAT, got %v", outcome)
	}
	arg, ok := assignment[0]
	if !ok {
		t.Fatalf("expected an assignment for parameter 0")
	}
	if arg.Kind != move.InputPureU64 {
		t.Fatalf("expected InputPureU64, got %v", arg.Kind)
	}
}

func TestSolveUnsatisfiableBoundsIsUnsat(t *testing.T) {
	s := New(7)
	abi := &move.FunctionAbi{Params: []move.SignatureToken{move.U8()}}
	x := concolic.Var("call_0.param_0")
	args := map[uint16]concolic.Sym{0: concolic.Known(x)}

	// u8 is bounded to 0..255 by the default parameter bound; asking for a
	// value above that range is unsatisfiable regardless of the search
	// budget.
	constraints := []concolic.Constraint{
		concolic.NewConstraint(concolic.OpGt, x, concolic.ConstU64(1000)),
	}

	outcome, _ := s.Solve(abi, args, constraints)
	if outcome != OutcomeUNSAT {
		t.Fatalf("expected UNSAT, got %v", outcome)
	}
}

func TestSolveWithNoFreeVariablesChecksConcretely(t *testing.T) {
	s := New(3)
	abi := &move.FunctionAbi{}

	trueConstraint := []concolic.Constraint{
		concolic.NewConstraint(concolic.OpEq, concolic.ConstU64(5), concolic.ConstU64(5)),
	}
	outcome, _ := s.Solve(abi, nil, trueConstraint)
	if outcome != OutcomeSAT {
		t.Fatalf("expected SAT for a trivially-true concrete constraint, got %v", outcome)
	}

	falseConstraint := []concolic.Constraint{
		concolic.NewConstraint(concolic.OpEq, concolic.ConstU64(5), concolic.ConstU64(6)),
	}
	outcome, _ = s.Solve(abi, nil, falseConstraint)
	if outcome != OutcomeUNSAT {
		t.Fatalf("expected UNSAT for a trivially-false concrete constraint, got %v", outcome)
	}
}
