// Package objectresolver builds the per-PTB object-availability snapshot
// (spec.md §4.5, component C4): given a sequence prefix, it tracks which
// typed values are still live for the suffix to consume, which hot
// potatoes must be drained, and the running set of already-used object
// ids. Grounded on the teacher's multi-derived-table-over-one-walk style
// in internal/vybium-starks-vm/vm/vm_state.go (several views kept in sync
// while walking instructions), adapted here to walk PTB commands instead
// of bytecode.
package objectresolver

import (
	"github.com/movy/movefuzz/pkg/move"
)

// Gate discriminates how an object may be referenced, per spec.md §4.5.
type Gate uint8

const (
	GateOwned Gate = iota
	GateImmutable
	GateShared
)

// GateOf derives the Gate a candidate argument must satisfy from the
// object's owner kind.
func GateOf(o move.Owner) Gate {
	switch o.Kind {
	case move.OwnerShared:
		return GateShared
	case move.OwnerImmutable:
		return GateImmutable
	default:
		return GateOwned
	}
}

// Candidate is one still-live, typed argument available to the suffix.
type Candidate struct {
	Arg  move.SequenceArgument
	Gate Gate
}

// Data is the ObjectResolver snapshot for one PTB prefix (spec.md §4.5's
// ObjectData).
type Data struct {
	ExistingObjects map[string][]Candidate
	HotPotatoes     []move.SignatureToken
	// Balances and KeyStoreObjects are the sub-views the mutator's
	// post-hook injector drains via process_balance/process_key_store
	// (spec.md §4.6 step 6): every live Coin/Balance-shaped candidate and
	// every live non-balance candidate with the key ability, respectively.
	Balances        []Candidate
	KeyStoreObjects []Candidate
	UsedObjectIDs   []move.Address

	// argTypes records, for every live candidate argument this snapshot
	// has ever added, its exact type and struct abilities — the
	// synthesizer's typeOf callback (spec.md §4.5 step 3) is just a
	// lookup into this table, since Build already computed both values
	// while walking inputs/returns.
	argTypes map[string]argType
}

type argType struct {
	Ty              move.SignatureToken
	StructAbilities move.Abilities
}

func tyKey(t move.SignatureToken) string { return t.String() }

func newData(gasID move.Address) *Data {
	return &Data{
		ExistingObjects: map[string][]Candidate{},
		UsedObjectIDs:   []move.Address{gasID},
		argTypes:        map[string]argType{},
	}
}

func (d *Data) addWithAbilities(ty move.SignatureToken, c Candidate, structAbilities move.Abilities) {
	k := tyKey(ty)
	d.ExistingObjects[k] = append(d.ExistingObjects[k], c)
	d.argTypes[c.Arg.String()] = argType{Ty: ty, StructAbilities: structAbilities}
}

// TypeOf implements the synthesizer's InputTypeFn lookup: the exact type
// and struct abilities recorded for arg when it was added to this
// snapshot, per spec.md §4.5 step 3.
func (d *Data) TypeOf(_ *move.MoveSequence, arg move.SequenceArgument) (move.SignatureToken, move.Abilities, bool) {
	at, ok := d.argTypes[arg.String()]
	return at.Ty, at.StructAbilities, ok
}

// remove deletes the first candidate of type ty matching arg, returning
// whether one was found.
func (d *Data) remove(ty move.SignatureToken, arg move.SequenceArgument) bool {
	k := tyKey(ty)
	list := d.ExistingObjects[k]
	for i, c := range list {
		if c.Arg.Equal(arg) {
			d.ExistingObjects[k] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

func isHotPotatoReturn(t move.SignatureToken, structAbilities move.Abilities) bool {
	if t.Kind == move.KindVector && t.Elem != nil {
		return isHotPotatoReturn(*t.Elem, structAbilities)
	}
	return move.IsHotPotatoStruct(t, structAbilities)
}

// isBalanceShaped matches the Coin/Balance struct names the synthesizer's
// split injector recognizes (spec.md §4.5 step 8), independent of ability
// information the caller may not have (e.g. a bare object input).
func isBalanceShaped(tag move.StructTag) bool {
	return tag.Name == "Coin" || tag.Name == "Balance"
}

// isKeyStoreShaped classifies a non-balance struct with the `key` ability
// as a capability-bearing object the post-hook injector must drain
// (spec.md §4.5's `key_store_objects`).
func isKeyStoreShaped(tag move.StructTag, abilities move.Abilities) bool {
	return !isBalanceShaped(tag) && abilities.Has(move.AbilityKey)
}

func removeCandidate(list []Candidate, arg move.SequenceArgument) []Candidate {
	for i, c := range list {
		if c.Arg.Equal(arg) {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func removeHotPotato(list []move.SignatureToken, ty move.SignatureToken) []move.SignatureToken {
	key := tyKey(ty)
	for i, t := range list {
		if tyKey(t) == key {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Build walks a PTB prefix and produces the ObjectData snapshot available
// for the suffix (spec.md §4.5 "Traversal").
func Build(seq *move.MoveSequence, resolver move.AbiResolver, gasID move.Address, inputTypes map[int]move.SignatureToken, inputOwners map[int]move.Owner) *Data {
	d := newData(gasID)

	for i, in := range seq.Inputs {
		if !in.IsObject() {
			continue
		}
		ty, ok := inputTypes[i]
		if !ok {
			continue
		}
		owner := inputOwners[i]
		// Inputs carry no function context to resolve struct abilities from;
		// TypeOf callers treat a zero Abilities here as "unknown, re-derive
		// from the consuming parameter's own ability bound if needed".
		cand := Candidate{Arg: move.Input(i), Gate: GateOf(owner)}
		d.addWithAbilities(ty, cand, move.Abilities(0))
		if ty.Kind == move.KindStruct && ty.Struct != nil && isBalanceShaped(*ty.Struct) {
			d.Balances = append(d.Balances, cand)
		}
		d.UsedObjectIDs = append(d.UsedObjectIDs, in.ObjectID)
	}

	for cmdIdx, cmd := range seq.Commands {
		if cmd.Kind != move.CommandCall || cmd.Call == nil {
			continue
		}
		abi, ok := resolver.ResolveFunction(cmd.Call.Package, cmd.Call.Module, cmd.Call.Function)
		if !ok {
			continue
		}
		subst := move.Substitution{}
		for i, tp := range cmd.Call.TypeArgs {
			subst[uint16(i)] = tp
		}

		for pi, param := range abi.Params {
			if pi >= len(cmd.Call.Args) {
				break
			}
			deref := param.Dereference()
			if param.IsReference() {
				continue // needs_sample() only removes by-value parameters
			}
			if deref.Kind != move.KindStruct && deref.Kind != move.KindVector {
				continue
			}
			consumedTy := move.Substitute(deref, subst)
			d.remove(consumedTy, cmd.Call.Args[pi])
			d.Balances = removeCandidate(d.Balances, cmd.Call.Args[pi])
			d.KeyStoreObjects = removeCandidate(d.KeyStoreObjects, cmd.Call.Args[pi])
			d.HotPotatoes = removeHotPotato(d.HotPotatoes, consumedTy)
		}

		resultCount := cmd.ResultCount(abi)
		for ri := 0; ri < resultCount; ri++ {
			var retTy move.SignatureToken
			if ri < len(abi.Returns) {
				retTy = move.Substitute(abi.Returns[ri], subst)
			} else {
				continue
			}
			arg := move.NextResultRef(cmdIdx, resultCount, ri)
			structAbilities := move.Abilities(0)
			if retTy.Kind == move.KindStruct && retTy.Struct != nil && abi.StructAbilities != nil {
				structAbilities = abi.StructAbilities(*retTy.Struct)
			}
			gate := GateOwned
			cand := Candidate{Arg: arg, Gate: gate}
			d.addWithAbilities(retTy, cand, structAbilities)
			if isHotPotatoReturn(retTy, structAbilities) {
				d.HotPotatoes = append(d.HotPotatoes, retTy)
			}
			if retTy.Kind == move.KindStruct && retTy.Struct != nil {
				switch {
				case isBalanceShaped(*retTy.Struct):
					d.Balances = append(d.Balances, cand)
				case isKeyStoreShaped(*retTy.Struct, structAbilities):
					d.KeyStoreObjects = append(d.KeyStoreObjects, cand)
				}
			}
		}
	}

	return d
}

// Candidates returns the live candidates for ty not present in used.
func (d *Data) Candidates(ty move.SignatureToken, used map[string]bool) []Candidate {
	all := d.ExistingObjects[tyKey(ty)]
	out := make([]Candidate, 0, len(all))
	for _, c := range all {
		if used[c.Arg.String()] {
			continue
		}
		out = append(out, c)
	}
	return out
}
