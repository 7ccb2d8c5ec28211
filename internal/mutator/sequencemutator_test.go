package mutator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/movy/movefuzz/internal/objectresolver"
	"github.com/movy/movefuzz/internal/typegraph"
	"github.com/movy/movefuzz/pkg/move"
)

type fakeResolver struct{ abi *move.FunctionAbi }

func (f fakeResolver) ResolveFunction(pkg move.Address, module, function string) (*move.FunctionAbi, bool) {
	if f.abi == nil {
		return nil, false
	}
	return f.abi, true
}

func TestSequenceMutatorAddsWhenShort(t *testing.T) {
	abi := move.FunctionAbi{Name: "deposit", Params: []move.SignatureToken{move.U64()}}
	module := move.Address{1}
	graph := typegraph.New()
	graph.AddFunction(module, "vault", abi)
	catalog := NewCatalog([]typegraph.FunctionNode{{Module: module, Name: "vault", Abi: abi}})

	sm := NewSequenceMutator(catalog, graph, fakeResolver{abi: &abi}, New(), rand.New(rand.NewSource(1)))
	seq := &move.MoveSequence{}
	data := &objectresolver.Data{ExistingObjects: map[string][]objectresolver.Candidate{}}

	mutated, ok := sm.Mutate(seq, data, nil)
	require.True(t, ok, "expected mutation to succeed on an empty (len<=3) sequence")
	// finish wraps the appended call with hook_sequence_pre/hook_pre/call/
	// hook_post/hook_sequence_post.
	require.Len(t, mutated.Commands, 5)
	require.Equal(t, "deposit", mutated.Commands[2].Call.Function)
}

func TestComputeRemovalSetFollowsResultReferences(t *testing.T) {
	seq := &move.MoveSequence{
		Commands: []move.Command{
			{Kind: move.CommandCall, Call: &move.MoveCall{Function: "a"}},
			{Kind: move.CommandCall, Call: &move.MoveCall{Function: "b", Args: []move.SequenceArgument{move.Result(0)}}},
		},
	}
	removed := computeRemovalSet(seq, nil, 0)
	require.True(t, removed[0] && removed[1], "expected both commands removed (command 1 consumes Result(0)), got %v", removed)
}

func TestComputeRemovalSetRemovesHotPotatoProducerBackward(t *testing.T) {
	mintAbi := &move.FunctionAbi{
		Name:    "mint",
		Returns: []move.SignatureToken{move.StructOf(move.StructTag{Name: "Receipt"})},
		StructAbilities: func(move.StructTag) move.Abilities {
			return 0 // no abilities: hot potato
		},
	}
	burnAbi := &move.FunctionAbi{
		Name:   "burn",
		Params: []move.SignatureToken{move.StructOf(move.StructTag{Name: "Receipt"})},
		StructAbilities: func(move.StructTag) move.Abilities {
			return 0
		},
	}

	resolver := &multiResolver{byName: map[string]*move.FunctionAbi{"mint": mintAbi, "burn": burnAbi}}

	seq := &move.MoveSequence{
		Commands: []move.Command{
			{Kind: move.CommandCall, Call: &move.MoveCall{Function: "mint"}},
			{Kind: move.CommandCall, Call: &move.MoveCall{Function: "burn", Args: []move.SequenceArgument{move.Result(0)}}},
		},
	}

	// Removing the consumer (command 1, burn(Receipt)) must also remove
	// its producer (command 0, mint()), or the hot potato is stranded.
	removed := computeRemovalSet(seq, resolver, 1)
	require.True(t, removed[1])
	require.True(t, removed[0], "expected the hot-potato producer to be removed alongside its consumer")
}

type multiResolver struct{ byName map[string]*move.FunctionAbi }

func (r *multiResolver) ResolveFunction(pkg move.Address, module, function string) (*move.FunctionAbi, bool) {
	abi, ok := r.byName[function]
	return abi, ok
}

func TestFinishWrapsAndStripHooksUndoesExactly(t *testing.T) {
	seq := &move.MoveSequence{
		Commands: []move.Command{
			{Kind: move.CommandCall, Call: &move.MoveCall{Function: "a"}},
			{Kind: move.CommandCall, Call: &move.MoveCall{Function: "b", Args: []move.SequenceArgument{move.Result(0)}}},
		},
	}
	finish(seq, nil)

	require.Len(t, seq.Commands, 8) // seq_pre + (pre+call+post)*2 + seq_post
	require.Equal(t, hookSequencePreFunction, seq.Commands[0].Call.Function)
	require.Equal(t, hookSequencePostFunction, seq.Commands[len(seq.Commands)-1].Call.Function)
	require.Equal(t, "b", seq.Commands[5].Call.Function)
	require.Equal(t, move.Result(2), seq.Commands[5].Call.Args[0], "expected b's Result(0) reference shifted to a's new position")

	stripHooks(seq)
	require.Len(t, seq.Commands, 2)
	require.Equal(t, "a", seq.Commands[0].Call.Function)
	require.Equal(t, "b", seq.Commands[1].Call.Function)
	require.Equal(t, move.Result(0), seq.Commands[1].Call.Args[0], "expected stripHooks to restore the original index")
}

func TestInjectHousekeepingDrainsBalancesAndKeyStoreObjects(t *testing.T) {
	seq := &move.MoveSequence{
		Commands: []move.Command{
			{Kind: move.CommandCall, Call: &move.MoveCall{Function: "mint_coin"}},
		},
	}
	data := &objectresolver.Data{
		Balances:        []objectresolver.Candidate{{Arg: move.Result(0)}},
		KeyStoreObjects: []objectresolver.Candidate{{Arg: move.Input(0)}},
	}

	finish(seq, data)

	var gotBalance, gotKeyStore bool
	for _, cmd := range seq.Commands {
		if cmd.Call == nil {
			continue
		}
		switch cmd.Call.Function {
		case processBalanceFunction:
			gotBalance = true
			require.Equal(t, move.Result(2), cmd.Call.Args[0])
		case processKeyStoreFunction:
			gotKeyStore = true
			require.Equal(t, move.Input(0), cmd.Call.Args[0])
		}
	}
	require.True(t, gotBalance, "expected a process_balance housekeeping call")
	require.True(t, gotKeyStore, "expected a process_key_store housekeeping call")
}
