package concolic

import "math/big"

// BeforeInstruction implements the abstract-semantics table of spec.md
// §4.2. It executes op's effect on the shadow stack and, for
// comparison/cast/shift instructions, records a Log entry (attributed to
// the current top-of-call-stack function) and may return the emitted path
// constraint.
func (s *State) BeforeInstruction(ev InstrEvent) *Constraint {
	if s.Disable {
		return nil
	}

	switch ev.Op {
	case OpLdConst:
		s.push(Unknown())

	case OpLdTrue:
		s.push(KnownConst(1))
	case OpLdFalse:
		s.push(KnownConst(0))

	case OpCast:
		return s.doCast(ev)

	case OpAdd:
		s.binArith(func(l, r *SymExpr) *SymExpr { return l.Add(r) })
	case OpSub:
		s.binArith(func(l, r *SymExpr) *SymExpr { return l.Sub(r) })
	case OpMul:
		s.binArith(func(l, r *SymExpr) *SymExpr { return l.Mul(r) })
	case OpDiv:
		s.binArith(func(l, r *SymExpr) *SymExpr { return l.Div(r) })
	case OpMod:
		s.binArith(func(l, r *SymExpr) *SymExpr { return l.Mod(r) })

	case OpBitAnd:
		s.binBitwiseConst(ev, ExprBvAndConst)
	case OpBitOr:
		s.binBitwiseConst(ev, ExprBvOrConst)
	case OpBitXor:
		s.binBitwiseConst(ev, ExprBvXorConst)

	case OpShl:
		return s.doShl(ev)
	case OpShr:
		s.doShr(ev)

	case OpCompare:
		return s.doCompare(ev)

	case OpCopyLoc:
		s.push(s.getLocal(ev.LocalIdx))
	case OpImmBorrowLoc, OpMutBorrowLoc:
		s.push(s.getLocal(ev.LocalIdx))
	case OpMoveLoc:
		v := s.getLocal(ev.LocalIdx)
		s.push(v)
		s.setLocal(ev.LocalIdx, Unknown())
	case OpStLoc:
		v, _ := s.pop()
		s.setLocal(ev.LocalIdx, v)

	case OpPack:
		for i := 0; i < ev.FieldCount; i++ {
			s.pop()
		}
		s.push(Unknown())
	case OpUnpack:
		s.pop()
		for i := 0; i < ev.FieldCount; i++ {
			s.push(Unknown())
		}
	case OpVecPack:
		for i := 0; i < ev.FieldCount; i++ {
			s.pop()
		}
		s.push(Unknown())
	case OpVecUnpack:
		s.pop()
		for i := 0; i < ev.FieldCount; i++ {
			s.push(Unknown())
		}

	case OpWriteRef, OpVecPushBack:
		s.pop()
		s.pop()

	case OpPop, OpBrTrue, OpBrFalse, OpAbort:
		s.pop()

	default:
		// Unmodeled instruction: leave the stack alone. Callers are
		// expected to only route instructions whose VM-observed stack
		// delta is zero through OpOther; anything else is a desync that
		// AssertStackLen will catch at the next synchronization point.
	}
	return nil
}

func (s *State) binArith(combine func(l, r *SymExpr) *SymExpr) {
	r, _ := s.pop()
	l, _ := s.pop()
	if l.Known && r.Known {
		s.push(Known(combine(l.Expr, r.Expr)))
	} else {
		s.push(Unknown())
	}
}

// resolveOperand returns sym's symbolic expression if known, or a fresh
// constant symbol built from the VM-observed concrete value when sym is
// Unknown but a concrete value was observed (spec.md §4.2 Eq/Neq/.../Cast
// row: "introducing fresh symbols for Unknown via the concrete VM operand
// when available").
func resolveOperand(sym Sym, observed *big.Int) (*SymExpr, bool) {
	if sym.Known {
		return sym.Expr, true
	}
	if observed != nil {
		return Const(observed), true
	}
	return nil, false
}

func (s *State) binBitwiseConst(ev InstrEvent, kind SymExprKind) {
	r, _ := s.pop()
	l, _ := s.pop()
	if !ev.HasMask || !l.Known {
		s.push(Unknown())
		return
	}
	_ = r
	s.push(Known(&SymExpr{Kind: kind, Left: l.Expr, Mask: ev.Mask, Bits: ev.Width}))
}

func (s *State) doCast(ev InstrEvent) *Constraint {
	top, _ := s.pop()
	if !top.Known {
		s.push(Unknown())
		return nil
	}
	s.push(top)
	bound := new(big.Int).Sub(Int2Pow(ev.Width), big.NewInt(1))
	c := NewConstraint(OpLe, top.Expr, Const(bound))
	s.recordLog(Log{Kind: LogCast, Bits: ev.Width, Constraint: c, PC: ev.PC})
	return &c
}

func (s *State) doShl(ev InstrEvent) *Constraint {
	shifter, _ := s.pop()
	base, _ := s.pop()

	if !ev.HasConcreteShift || !base.Known {
		s.push(Unknown())
		return nil
	}
	_ = shifter
	shiftedMod := (&SymExpr{Kind: ExprMod, Left: base.Expr.Shl(ev.ShiftAmount, ev.Width), Right: Const(Int2Pow(ev.Width))})
	s.push(Known(shiftedMod))

	bound := new(big.Int).Sub(Int2Pow(ev.Width), big.NewInt(1))
	c := NewConstraint(OpGt, base.Expr.Shl(ev.ShiftAmount, 0), Const(bound))
	s.recordLog(Log{Kind: LogShl, Bits: ev.Width, Constraint: c, PC: ev.PC})
	return &c
}

func (s *State) doShr(ev InstrEvent) {
	shifter, _ := s.pop()
	base, _ := s.pop()
	if !ev.HasConcreteShift || !base.Known {
		s.push(Unknown())
		return
	}
	_ = shifter
	s.push(Known(base.Expr.Shr(ev.ShiftAmount)))
}

func (s *State) doCompare(ev InstrEvent) *Constraint {
	r, _ := s.pop()
	l, _ := s.pop()

	lExpr, lok := resolveOperand(l, ev.ObservedLeft)
	rExpr, rok := resolveOperand(r, ev.ObservedRight)
	if !lok {
		lExpr = Var("unresolved_lhs")
	}
	if !rok {
		rExpr = Var("unresolved_rhs")
	}

	if ev.ObservedTruth {
		s.push(KnownConst(1))
	} else {
		s.push(KnownConst(0))
	}

	c := NewConstraint(ev.CompareOp, lExpr, rExpr)
	if !ev.ObservedTruth {
		c = c.FlipPolarity()
	}
	s.recordLog(Log{Kind: LogCmp, Op: ev.CompareOp, Lhs: lExpr, Rhs: rExpr, Constraint: c, PC: ev.PC})
	return &c
}
