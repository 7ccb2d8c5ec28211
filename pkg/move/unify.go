package move

// TyArgEquality is a pair of type-parameter indices, one from each side of
// a partial unification, whose substitutions must agree for the
// unification to hold once both sides are fully instantiated.
type TyArgEquality struct {
	LeftParamIdx  uint16
	RightParamIdx uint16
}

// Substitution maps a type-parameter index to the token bound to it.
type Substitution map[uint16]SignatureToken

// UnifyResult is the outcome of a successful partial unification between a
// producer/consumer type-node token (lhs, "sigma" in the spec) and a
// candidate token (rhs, "tau").
type UnifyResult struct {
	LeftSubst  Substitution
	RightSubst Substitution
	Equalities []TyArgEquality
}

// PartialExtractTyArgs implements sigma.partial_extract_ty_args(tau) from
// spec.md §4.1. Only sigma is dereferenced before the structural match, so
// a sigma of &T or &mut T unifies with a tau of T; tau's reference-ness is
// kept, so a bare sigma T does not unify with a tau of &T (the Kind
// comparison fails).
func (sigma SignatureToken) PartialExtractTyArgs(tau SignatureToken) (*UnifyResult, bool) {
	lhs := sigma
	// References are transparent: &T and &mut T unify with T.
	if lhs.IsReference() {
		lhs = lhs.Dereference()
	}
	rhs := tau

	res := &UnifyResult{
		LeftSubst:  Substitution{},
		RightSubst: Substitution{},
	}
	if unifyInto(lhs, rhs, res) {
		return res, true
	}
	return nil, false
}

func unifyInto(lhs, rhs SignatureToken, res *UnifyResult) bool {
	if lhs.Kind == KindTypeParameter && rhs.Kind == KindTypeParameter {
		res.Equalities = append(res.Equalities, TyArgEquality{LeftParamIdx: lhs.ParamIdx, RightParamIdx: rhs.ParamIdx})
		return true
	}
	if lhs.Kind == KindTypeParameter {
		if existing, ok := res.LeftSubst[lhs.ParamIdx]; ok {
			return existing.Equal(rhs)
		}
		res.LeftSubst[lhs.ParamIdx] = rhs
		return true
	}
	if rhs.Kind == KindTypeParameter {
		if existing, ok := res.RightSubst[rhs.ParamIdx]; ok {
			return existing.Equal(lhs)
		}
		res.RightSubst[rhs.ParamIdx] = lhs
		return true
	}
	if lhs.Kind != rhs.Kind {
		return false
	}
	switch lhs.Kind {
	case KindVector:
		if lhs.Elem == nil || rhs.Elem == nil {
			return lhs.Elem == rhs.Elem
		}
		return unifyInto(*lhs.Elem, *rhs.Elem, res)
	case KindStruct:
		if lhs.Struct == nil || rhs.Struct == nil {
			return lhs.Struct == rhs.Struct
		}
		if lhs.Struct.Address != rhs.Struct.Address || lhs.Struct.Module != rhs.Struct.Module || lhs.Struct.Name != rhs.Struct.Name {
			return false
		}
		if len(lhs.Struct.TyArgs) != len(rhs.Struct.TyArgs) {
			return false
		}
		for i := range lhs.Struct.TyArgs {
			if !unifyInto(lhs.Struct.TyArgs[i], rhs.Struct.TyArgs[i], res) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Substitute replaces every TypeParameter in t per subst, leaving
// unmentioned parameters untouched.
func Substitute(t SignatureToken, subst Substitution) SignatureToken {
	switch t.Kind {
	case KindTypeParameter:
		if v, ok := subst[t.ParamIdx]; ok {
			return v
		}
		return t
	case KindVector:
		if t.Elem == nil {
			return t
		}
		e := Substitute(*t.Elem, subst)
		return SignatureToken{Kind: KindVector, Elem: &e}
	case KindReference:
		if t.Elem == nil {
			return t
		}
		e := Substitute(*t.Elem, subst)
		return SignatureToken{Kind: KindReference, Elem: &e}
	case KindMutableReference:
		if t.Elem == nil {
			return t
		}
		e := Substitute(*t.Elem, subst)
		return SignatureToken{Kind: KindMutableReference, Elem: &e}
	case KindStruct:
		if t.Struct == nil {
			return t
		}
		newArgs := make([]SignatureToken, len(t.Struct.TyArgs))
		for i, a := range t.Struct.TyArgs {
			newArgs[i] = Substitute(a, subst)
		}
		ns := *t.Struct
		ns.TyArgs = newArgs
		return SignatureToken{Kind: KindStruct, Struct: &ns}
	default:
		return t
	}
}
