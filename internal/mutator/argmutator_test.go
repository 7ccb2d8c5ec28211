package mutator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/movy/movefuzz/internal/concolic"
	"github.com/movy/movefuzz/internal/solver"
	"github.com/movy/movefuzz/pkg/move"
)

func TestMagicNumberPoolObservesEqGeLeOnly(t *testing.T) {
	pool := &MagicNumberPool{}
	pool.Observe(concolic.Log{Kind: concolic.LogCmp, Op: concolic.OpEq, Lhs: concolic.ConstU64(42), Rhs: concolic.ConstU64(7)})
	pool.Observe(concolic.Log{Kind: concolic.LogCmp, Op: concolic.OpLt, Lhs: concolic.ConstU64(99), Rhs: concolic.ConstU64(1)})

	require.Len(t, pool.bytes, 2, "expected only the EQ site's two operands pooled")
}

func TestArgMutatorFallsBackToHavocWhenNoLogs(t *testing.T) {
	s := solver.New(1)
	pool := &MagicNumberPool{}
	am := NewArgMutator(s, pool, New(), rand.New(rand.NewSource(1)))

	seq := &move.MoveSequence{Inputs: []move.InputArgument{{Kind: move.InputPureU64, PureBytes: []byte{5}}}}
	abi := &move.FunctionAbi{Params: []move.SignatureToken{move.U64()}}
	target := ParamTarget{CmdIdx: 0, ParamIdx: 0, InputIdx: 0}

	ok := am.MutateScalar(seq, abi, target, nil, nil)
	require.True(t, ok, "expected havoc fallback to always succeed")
}

func TestHavocByteMutatesInPlace(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	in := &move.InputArgument{PureBytes: []byte{0x10}}
	before := in.PureBytes[0]
	havocByte(in, rng)
	if in.PureBytes[0] == before {
		// Not impossible (increment could wrap to same value across a
		// byte boundary is not possible for +1/-1/xor of a nonzero bit,
		// but the random op pick covers 4 branches); retry once.
		havocByte(in, rng)
	}
}
