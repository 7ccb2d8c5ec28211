package concolic

import (
	"fmt"
	"math/big"
)

// CompareOp names a comparison instruction's relational operator.
type CompareOp uint8

const (
	OpEq CompareOp = iota
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return "?"
	}
}

func (op CompareOp) Negate() CompareOp {
	switch op {
	case OpEq:
		return OpNeq
	case OpNeq:
		return OpEq
	case OpLt:
		return OpGe
	case OpLe:
		return OpGt
	case OpGt:
		return OpLe
	case OpGe:
		return OpLt
	default:
		return op
	}
}

// Constraint is a single Boolean path constraint over symbolic integer
// expressions: Left <op> Right, optionally negated. Only a comparison's
// relational form is needed, per spec.md §4.2 ("Every Bool constraint
// returned by a comparison, cast, or shift").
type Constraint struct {
	Op       CompareOp
	Left     *SymExpr
	Right    *SymExpr
	Negated  bool
}

func NewConstraint(op CompareOp, left, right *SymExpr) Constraint {
	return Constraint{Op: op, Left: left, Right: right}
}

// FlipPolarity returns the logical negation of c, used by ArgMutator's
// "with probability 0.5 flip one constraint's polarity" step (spec.md
// §4.6 ArgMutator, scenario S1).
func (c Constraint) FlipPolarity() Constraint {
	c.Negated = !c.Negated
	return c
}

// EffectiveOp returns the operator actually asserted once Negated is
// accounted for.
func (c Constraint) EffectiveOp() CompareOp {
	if c.Negated {
		return c.Op.Negate()
	}
	return c.Op
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s %s %s", c.Left, c.EffectiveOp(), c.Right)
}

// Holds evaluates a fully-concrete constraint.
func (c Constraint) Holds() bool {
	return c.evalCmp(c.Left.Eval(), c.Right.Eval())
}

// HoldsWith evaluates c under a free-variable assignment, used by
// ConstraintSolver's candidate-checking loop (spec.md §4.4).
func (c Constraint) HoldsWith(assign map[string]*big.Int) bool {
	return c.evalCmp(c.Left.EvalWith(assign), c.Right.EvalWith(assign))
}

func (c Constraint) evalCmp(l, r *big.Int) bool {
	cmp := l.Cmp(r)
	switch c.EffectiveOp() {
	case OpEq:
		return cmp == 0
	case OpNeq:
		return cmp != 0
	case OpLt:
		return cmp < 0
	case OpLe:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGe:
		return cmp >= 0
	default:
		return false
	}
}

// LogKind discriminates the three events the tracer captures for mutator
// feedback, per spec.md §4.2's "Constraint capture".
type LogKind uint8

const (
	LogCmp LogKind = iota
	LogShl
	LogCast
)

// Log is one captured comparison/cast/shift site, keyed to the function it
// occurred in so the mutator can focus solving/magic-number sampling on a
// specific parameter's symbol.
type Log struct {
	Kind LogKind

	// LogCmp
	Op       CompareOp
	Lhs, Rhs *SymExpr

	// LogCast / LogShl
	Bits uint32

	Constraint Constraint
	PC         uint64
}
