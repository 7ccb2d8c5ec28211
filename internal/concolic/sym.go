// Package concolic maintains the symbolic shadow of the VM operand stack
// and locals during PTB execution (spec.md §4.2, component C2). Grounded
// on the teacher's Stack/Locals layout (internal/vybium-starks-vm/vm/
// vm_state.go) adapted from a STARK-VM register file into a symbolic
// integer shadow stack, and on original_source/crates/movy-replay/src/
// tracer/concolic.rs for exact abstract-semantics and bitmask-decomposition
// algorithms.
package concolic

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// SymExprKind discriminates the node kind of a SymExpr.
type SymExprKind uint8

const (
	ExprConst SymExprKind = iota
	ExprVar
	ExprAdd
	ExprSub
	ExprMul
	ExprDiv
	ExprMod
	ExprBvAndConst
	ExprBvOrConst
	ExprBvXorConst
	ExprBvNot
	ExprShl
	ExprShr
)

// SymExpr is an uninterpreted-constant-aware symbolic integer expression,
// built only from integer arithmetic so a single solver theory (linear
// integer arithmetic plus div/mod by a concrete power of two) suffices —
// per spec.md design note "Concolic value representation".
type SymExpr struct {
	Kind SymExprKind

	// ExprConst
	Const *big.Int

	// ExprVar
	VarName string

	// Binary/unary operand(s).
	Left  *SymExpr
	Right *SymExpr

	// Payload for bitmask ops and shifts.
	Mask  *uint256.Int
	Bits  uint32
	Shift uint32
}

func Const(v *big.Int) *SymExpr {
	return &SymExpr{Kind: ExprConst, Const: new(big.Int).Set(v)}
}

func ConstU64(v uint64) *SymExpr {
	return Const(new(big.Int).SetUint64(v))
}

func Var(name string) *SymExpr {
	return &SymExpr{Kind: ExprVar, VarName: name}
}

func bin(kind SymExprKind, l, r *SymExpr) *SymExpr {
	return &SymExpr{Kind: kind, Left: l, Right: r}
}

func (e *SymExpr) Add(o *SymExpr) *SymExpr { return bin(ExprAdd, e, o) }
func (e *SymExpr) Sub(o *SymExpr) *SymExpr { return bin(ExprSub, e, o) }
func (e *SymExpr) Mul(o *SymExpr) *SymExpr { return bin(ExprMul, e, o) }
func (e *SymExpr) Div(o *SymExpr) *SymExpr { return bin(ExprDiv, e, o) }
func (e *SymExpr) Mod(o *SymExpr) *SymExpr { return bin(ExprMod, e, o) }

func (e *SymExpr) Shl(shift uint32, bits uint32) *SymExpr {
	return &SymExpr{Kind: ExprShl, Left: e, Shift: shift, Bits: bits}
}

func (e *SymExpr) Shr(shift uint32) *SymExpr {
	return &SymExpr{Kind: ExprShr, Left: e, Shift: shift}
}

func (e *SymExpr) BvNot(bits uint32) *SymExpr {
	return &SymExpr{Kind: ExprBvNot, Left: e, Bits: bits}
}

// IsConcrete reports whether this expression tree contains no free
// variable (fully constant-foldable), used by BoolJudgementOracle.
func (e *SymExpr) IsConcrete() bool {
	if e == nil {
		return true
	}
	switch e.Kind {
	case ExprConst:
		return true
	case ExprVar:
		return false
	default:
		return e.Left.IsConcrete() && (e.Right == nil || e.Right.IsConcrete())
	}
}

func (e *SymExpr) String() string {
	if e == nil {
		return "?"
	}
	switch e.Kind {
	case ExprConst:
		return e.Const.String()
	case ExprVar:
		return e.VarName
	case ExprAdd:
		return fmt.Sprintf("(%s + %s)", e.Left, e.Right)
	case ExprSub:
		return fmt.Sprintf("(%s - %s)", e.Left, e.Right)
	case ExprMul:
		return fmt.Sprintf("(%s * %s)", e.Left, e.Right)
	case ExprDiv:
		return fmt.Sprintf("(%s / %s)", e.Left, e.Right)
	case ExprMod:
		return fmt.Sprintf("(%s mod %s)", e.Left, e.Right)
	case ExprShl:
		return fmt.Sprintf("(%s << %d)", e.Left, e.Shift)
	case ExprShr:
		return fmt.Sprintf("(%s >> %d)", e.Left, e.Shift)
	case ExprBvNot:
		return fmt.Sprintf("(~%s)", e.Left)
	default:
		return "expr"
	}
}

// Int2Pow returns 2^bits as a big.Int.
func Int2Pow(bits uint32) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(bits))
}

// bvAndConst computes x & mask under w-bit semantics using only integer
// arithmetic (run-decomposition of the mask's contiguous 1-bit runs), per
// spec.md §4.2's BitAnd/Or/Xor abstract semantics and
// original_source/.../concolic.rs's int_bvand_const.
func bvAndConst(x *big.Int, mask *uint256.Int, bits uint32) *big.Int {
	full := new(big.Int).Sub(Int2Pow(bits), big.NewInt(1))
	x0 := new(big.Int).Mod(x, Int2Pow(bits))

	maskBig := mask.ToBig()
	maskW := new(big.Int).And(maskBig, full)
	if maskW.Sign() == 0 {
		return big.NewInt(0)
	}

	m := new(big.Int).Set(maskW)
	i := uint32(0)
	acc := big.NewInt(0)
	zero := big.NewInt(0)
	one := big.NewInt(1)
	for m.Cmp(zero) != 0 {
		for m.Cmp(zero) != 0 && new(big.Int).And(m, one).Sign() == 0 {
			m.Rsh(m, 1)
			i++
		}
		if m.Cmp(zero) == 0 {
			break
		}
		a := i
		for new(big.Int).And(m, one).Sign() == 1 {
			m.Rsh(m, 1)
			i++
		}
		b := i - 1
		l := b - a + 1

		// term = (((x0 mod 2^(b+1)) / 2^a) mod 2^L) << a
		t := new(big.Int).Mod(x0, Int2Pow(b+1))
		t.Div(t, Int2Pow(a))
		t.Mod(t, Int2Pow(l))
		t.Lsh(t, uint(a))
		acc.Add(acc, t)
	}
	return acc
}

func bvNot(x *big.Int, bits uint32) *big.Int {
	x0 := new(big.Int).Mod(x, Int2Pow(bits))
	full := new(big.Int).Sub(Int2Pow(bits), big.NewInt(1))
	return new(big.Int).Sub(full, x0)
}

func bvOrConst(x *big.Int, mask *uint256.Int, bits uint32) *big.Int {
	full := new(big.Int).Sub(Int2Pow(bits), big.NewInt(1))
	maskW := new(big.Int).And(mask.ToBig(), full)
	notMaskW := new(big.Int).Xor(full, maskW)
	kept := bvAndConst(x, uint256.MustFromBig(notMaskW), bits)
	return new(big.Int).Add(kept, maskW)
}

func bvXorConst(x *big.Int, mask *uint256.Int, bits uint32) *big.Int {
	full := new(big.Int).Sub(Int2Pow(bits), big.NewInt(1))
	maskW := new(big.Int).And(mask.ToBig(), full)
	notMaskW := new(big.Int).Xor(full, maskW)
	partKeep := bvAndConst(x, uint256.MustFromBig(notMaskW), bits)
	xNot := bvNot(x, bits)
	partFlip := bvAndConst(xNot, uint256.MustFromBig(maskW), bits)
	sum := new(big.Int).Add(partKeep, partFlip)
	return sum.Mod(sum, Int2Pow(bits))
}

// Eval folds an expression tree down to a concrete integer, evaluating
// every Var as zero (EvalWith with an empty assignment); the result is
// the expression's exact value only when IsConcrete holds.
func (e *SymExpr) Eval() *big.Int {
	return e.EvalWith(nil)
}

// Vars collects the distinct free variable names appearing in e, used by
// ConstraintSolver to discover which parameters a constraint set
// constrains (spec.md §4.4).
func (e *SymExpr) Vars(into map[string]bool) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ExprVar:
		into[e.VarName] = true
	default:
		e.Left.Vars(into)
		e.Right.Vars(into)
	}
}

// EvalWith folds e to a concrete integer, substituting each ExprVar from
// assign. A variable absent from assign evaluates to zero.
func (e *SymExpr) EvalWith(assign map[string]*big.Int) *big.Int {
	switch e.Kind {
	case ExprConst:
		return new(big.Int).Set(e.Const)
	case ExprVar:
		if v, ok := assign[e.VarName]; ok {
			return new(big.Int).Set(v)
		}
		return big.NewInt(0)
	case ExprAdd:
		return new(big.Int).Add(e.Left.EvalWith(assign), e.Right.EvalWith(assign))
	case ExprSub:
		return new(big.Int).Sub(e.Left.EvalWith(assign), e.Right.EvalWith(assign))
	case ExprMul:
		return new(big.Int).Mul(e.Left.EvalWith(assign), e.Right.EvalWith(assign))
	case ExprDiv:
		r := e.Right.EvalWith(assign)
		if r.Sign() == 0 {
			return big.NewInt(0)
		}
		return new(big.Int).Div(e.Left.EvalWith(assign), r)
	case ExprMod:
		r := e.Right.EvalWith(assign)
		if r.Sign() == 0 {
			return big.NewInt(0)
		}
		return new(big.Int).Mod(e.Left.EvalWith(assign), r)
	case ExprBvAndConst:
		return bvAndConst(e.Left.EvalWith(assign), e.Mask, e.Bits)
	case ExprBvOrConst:
		return bvOrConst(e.Left.EvalWith(assign), e.Mask, e.Bits)
	case ExprBvXorConst:
		return bvXorConst(e.Left.EvalWith(assign), e.Mask, e.Bits)
	case ExprBvNot:
		return bvNot(e.Left.EvalWith(assign), e.Bits)
	case ExprShl:
		v := new(big.Int).Lsh(e.Left.EvalWith(assign), uint(e.Shift))
		if e.Bits > 0 {
			v.Mod(v, Int2Pow(e.Bits))
		}
		return v
	case ExprShr:
		return new(big.Int).Rsh(e.Left.EvalWith(assign), uint(e.Shift))
	default:
		panic(fmt.Sprintf("concolic: cannot eval symbolic expression kind %d", e.Kind))
	}
}
