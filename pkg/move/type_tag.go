package move

import (
	"fmt"
	"strings"
)

// Kind discriminates the TypeTag/SignatureToken algebra.
type Kind uint8

const (
	KindBool Kind = iota
	KindU8
	KindU16
	KindU32
	KindU64
	KindU128
	KindU256
	KindAddress
	KindSigner
	KindVector
	KindStruct
	KindTypeParameter
	KindReference
	KindMutableReference
)

func (k Kind) IsInteger() bool {
	return k >= KindU8 && k <= KindU256
}

// IntWidth returns the bit width of an integer kind, or 0 if not integer.
func (k Kind) IntWidth() int {
	switch k {
	case KindU8:
		return 8
	case KindU16:
		return 16
	case KindU32:
		return 32
	case KindU64:
		return 64
	case KindU128:
		return 128
	case KindU256:
		return 256
	default:
		return 0
	}
}

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindU128:
		return "u128"
	case KindU256:
		return "u256"
	case KindAddress:
		return "address"
	case KindSigner:
		return "signer"
	case KindVector:
		return "vector"
	case KindStruct:
		return "struct"
	case KindTypeParameter:
		return "typeparam"
	case KindReference:
		return "&"
	case KindMutableReference:
		return "&mut"
	default:
		return "unknown"
	}
}

// StructTag identifies a Move struct type: its defining package/module,
// its name, and its type-argument instantiation.
type StructTag struct {
	Address Address
	Module  string
	Name    string
	TyArgs  []SignatureToken
}

func (s StructTag) String() string {
	if len(s.TyArgs) == 0 {
		return fmt.Sprintf("%s::%s::%s", s.Address, s.Module, s.Name)
	}
	parts := make([]string, len(s.TyArgs))
	for i, t := range s.TyArgs {
		parts[i] = t.String()
	}
	return fmt.Sprintf("%s::%s::%s<%s>", s.Address, s.Module, s.Name, strings.Join(parts, ","))
}

// SignatureToken is a TypeTag extended with Reference/MutableReference and
// TypeParameter, as consumed by function ABIs and the type graph.
type SignatureToken struct {
	Kind Kind

	// Vector / Reference / MutableReference element.
	Elem *SignatureToken

	// Struct payload.
	Struct *StructTag

	// TypeParameter payload.
	ParamIdx       uint16
	ParamAbilities Abilities
}

func Bool() SignatureToken    { return SignatureToken{Kind: KindBool} }
func U8() SignatureToken      { return SignatureToken{Kind: KindU8} }
func U16() SignatureToken     { return SignatureToken{Kind: KindU16} }
func U32() SignatureToken     { return SignatureToken{Kind: KindU32} }
func U64() SignatureToken     { return SignatureToken{Kind: KindU64} }
func U128() SignatureToken    { return SignatureToken{Kind: KindU128} }
func U256() SignatureToken    { return SignatureToken{Kind: KindU256} }
func AddressTy() SignatureToken { return SignatureToken{Kind: KindAddress} }
func Signer() SignatureToken  { return SignatureToken{Kind: KindSigner} }

func VectorOf(elem SignatureToken) SignatureToken {
	return SignatureToken{Kind: KindVector, Elem: &elem}
}

func StructOf(tag StructTag) SignatureToken {
	return SignatureToken{Kind: KindStruct, Struct: &tag}
}

func TypeParam(idx uint16, abilities Abilities) SignatureToken {
	return SignatureToken{Kind: KindTypeParameter, ParamIdx: idx, ParamAbilities: abilities}
}

func RefOf(inner SignatureToken) SignatureToken {
	return SignatureToken{Kind: KindReference, Elem: &inner}
}

func MutRefOf(inner SignatureToken) SignatureToken {
	return SignatureToken{Kind: KindMutableReference, Elem: &inner}
}

// IsReference reports whether the token is a (mutable or immutable)
// reference.
func (t SignatureToken) IsReference() bool {
	return t.Kind == KindReference || t.Kind == KindMutableReference
}

// Dereference strips one layer of Reference/MutableReference, returning
// the token unchanged if it is not a reference.
func (t SignatureToken) Dereference() SignatureToken {
	if t.IsReference() && t.Elem != nil {
		return *t.Elem
	}
	return t
}

// Equal performs exact structural comparison (no unification).
func (t SignatureToken) Equal(o SignatureToken) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindVector, KindReference, KindMutableReference:
		if (t.Elem == nil) != (o.Elem == nil) {
			return false
		}
		if t.Elem == nil {
			return true
		}
		return t.Elem.Equal(*o.Elem)
	case KindStruct:
		if t.Struct == nil || o.Struct == nil {
			return t.Struct == o.Struct
		}
		if t.Struct.Address != o.Struct.Address || t.Struct.Module != o.Struct.Module || t.Struct.Name != o.Struct.Name {
			return false
		}
		if len(t.Struct.TyArgs) != len(o.Struct.TyArgs) {
			return false
		}
		for i := range t.Struct.TyArgs {
			if !t.Struct.TyArgs[i].Equal(o.Struct.TyArgs[i]) {
				return false
			}
		}
		return true
	case KindTypeParameter:
		return t.ParamIdx == o.ParamIdx
	default:
		return true
	}
}

func (t SignatureToken) String() string {
	switch t.Kind {
	case KindVector:
		if t.Elem != nil {
			return fmt.Sprintf("vector<%s>", t.Elem.String())
		}
		return "vector<?>"
	case KindStruct:
		if t.Struct != nil {
			return t.Struct.String()
		}
		return "struct<?>"
	case KindTypeParameter:
		return fmt.Sprintf("T%d", t.ParamIdx)
	case KindReference:
		if t.Elem != nil {
			return "&" + t.Elem.String()
		}
		return "&?"
	case KindMutableReference:
		if t.Elem != nil {
			return "&mut " + t.Elem.String()
		}
		return "&mut ?"
	default:
		return t.Kind.String()
	}
}

// Abilities returns the ability set of this token given the ability sets
// bound to any type parameters it mentions (structAbilities supplies the
// declared abilities of a Struct kind's own definition, since a struct's
// abilities also depend on whether it requires its type arguments to carry
// particular abilities — callers of this package's ability-checking pass
// in a concrete struct ability lookup via structAbilities).
func (t SignatureToken) Abilities(structAbilities Abilities) Abilities {
	switch t.Kind {
	case KindBool, KindU8, KindU16, KindU32, KindU64, KindU128, KindU256, KindAddress:
		return Abilities(AbilityCopy | AbilityDrop | AbilityStore)
	case KindSigner:
		return Abilities(AbilityDrop)
	case KindTypeParameter:
		return t.ParamAbilities
	case KindStruct:
		return structAbilities
	default:
		return 0
	}
}

// IsHotPotatoStruct reports whether t is a non-reference struct (or a
// vector of one) lacking DROP and STORE.
func IsHotPotatoStruct(t SignatureToken, structAbilities Abilities) bool {
	switch t.Kind {
	case KindStruct:
		return structAbilities.IsHotPotato()
	case KindVector:
		if t.Elem != nil {
			return IsHotPotatoStruct(*t.Elem, structAbilities)
		}
	}
	return false
}
