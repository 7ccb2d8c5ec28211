package mutator

import (
	"math/rand"

	"github.com/movy/movefuzz/internal/concolic"
	"github.com/movy/movefuzz/internal/solver"
	"github.com/movy/movefuzz/pkg/move"
)

// MagicNumberPool accumulates comparison operands seen at EQ/GE/LE sites
// (spec.md §4.6 step 3), bytewise, for use as mutation seeds.
type MagicNumberPool struct {
	bytes [][]byte
}

// Observe records both operands of a comparison if the site is
// EQ/GE/LE, per spec.md §4.6 ArgMutator step 3.
func (p *MagicNumberPool) Observe(l concolic.Log) {
	if l.Kind != concolic.LogCmp {
		return
	}
	switch l.Op {
	case concolic.OpEq, concolic.OpGe, concolic.OpLe:
	default:
		return
	}
	if l.Lhs != nil && l.Lhs.IsConcrete() {
		p.bytes = append(p.bytes, l.Lhs.Eval().Bytes())
	}
	if l.Rhs != nil && l.Rhs.IsConcrete() {
		p.bytes = append(p.bytes, l.Rhs.Eval().Bytes())
	}
}

// Sample returns a random pool entry, or nil if the pool is empty.
func (p *MagicNumberPool) Sample(rng *rand.Rand) []byte {
	if len(p.bytes) == 0 {
		return nil
	}
	return p.bytes[rng.Intn(len(p.bytes))]
}

// ArgMutator implements spec.md §4.6's scalar-argument mutation
// strategy: solver-directed or magic-number/havoc-directed byte edits,
// plus an independent type-argument mutation pass.
type ArgMutator struct {
	Solver *solver.Solver
	Pool   *MagicNumberPool
	Replay *StageReplay
	Rng    *rand.Rand
}

// NewArgMutator creates an ArgMutator.
func NewArgMutator(s *solver.Solver, pool *MagicNumberPool, replay *StageReplay, rng *rand.Rand) *ArgMutator {
	return &ArgMutator{Solver: s, Pool: pool, Replay: replay, Rng: rng}
}

// ParamTarget names the scalar parameter chosen for this mutation round.
type ParamTarget struct {
	CmdIdx   int
	ParamIdx int
	InputIdx int
}

// MutateScalar implements spec.md §4.6 ArgMutator steps 2-3: either
// solve for a constraint-satisfying literal, or fall back to
// magic-number/havoc byte edits, writing the result into seq's input at
// target.InputIdx.
func (m *ArgMutator) MutateScalar(seq *move.MoveSequence, abi *move.FunctionAbi, target ParamTarget, args map[uint16]concolic.Sym, logs []concolic.Log) bool {
	if target.InputIdx < 0 || target.InputIdx >= len(seq.Inputs) {
		return false
	}

	if m.Rng.Float64() < 0.5 && len(logs) > 0 {
		if m.trySolve(seq, abi, target, args, logs) {
			return true
		}
	}
	return m.tryMagicOrHavoc(seq, target)
}

func (m *ArgMutator) trySolve(seq *move.MoveSequence, abi *move.FunctionAbi, target ParamTarget, args map[uint16]concolic.Sym, logs []concolic.Log) bool {
	constraints := make([]concolic.Constraint, 0, len(logs))
	for i, l := range logs {
		c := l.Constraint
		if i == 0 && m.Rng.Float64() < 0.5 {
			c = c.FlipPolarity()
		}
		constraints = append(constraints, c)
	}

	outcome, assignment := m.Solver.Solve(abi, args, constraints)
	if outcome != solver.OutcomeSAT {
		return false
	}
	arg, ok := assignment[uint16(target.ParamIdx)]
	if !ok {
		return false
	}
	seq.Inputs[target.InputIdx] = arg
	return true
}

func (m *ArgMutator) tryMagicOrHavoc(seq *move.MoveSequence, target ParamTarget) bool {
	in := &seq.Inputs[target.InputIdx]
	if sample := m.Pool.Sample(m.Rng); sample != nil && m.Rng.Float64() < 0.5 {
		in.PureBytes = append([]byte(nil), sample...)
		return true
	}
	havocByte(in, m.Rng)
	return true
}

// havocByte applies a bitflip/increment/decrement/havoc byte-level edit
// to one byte of in.PureBytes, per spec.md §4.6 step 3.
func havocByte(in *move.InputArgument, rng *rand.Rand) {
	if len(in.PureBytes) == 0 {
		in.PureBytes = []byte{0}
	}
	idx := rng.Intn(len(in.PureBytes))
	switch rng.Intn(4) {
	case 0:
		in.PureBytes[idx] ^= 1 << uint(rng.Intn(8))
	case 1:
		in.PureBytes[idx]++
	case 2:
		in.PureBytes[idx]--
	default:
		in.PureBytes[idx] = byte(rng.Intn(256))
	}
}

// MutateTypeArg implements spec.md §4.6 step 4: with 10% probability,
// replace a call's type argument with another type tag matching the
// parameter's ability set.
func MutateTypeArg(rng *rand.Rand, call *move.MoveCall, paramAbilities []move.Abilities, candidates []move.SignatureToken) bool {
	if rng.Float64() >= 0.1 || len(call.TypeArgs) == 0 || len(candidates) == 0 {
		return false
	}
	idx := rng.Intn(len(call.TypeArgs))
	var want move.Abilities
	if idx < len(paramAbilities) {
		want = paramAbilities[idx]
	}
	var fits []move.SignatureToken
	for _, c := range candidates {
		if c.Abilities(0).Satisfies(want) {
			fits = append(fits, c)
		}
	}
	if len(fits) == 0 {
		return false
	}
	call.TypeArgs[idx] = fits[rng.Intn(len(fits))]
	return true
}
