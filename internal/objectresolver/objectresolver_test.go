package objectresolver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/movy/movefuzz/pkg/move"
)

type fakeResolver struct {
	abi *move.FunctionAbi
}

func (f fakeResolver) ResolveFunction(pkg move.Address, module, function string) (*move.FunctionAbi, bool) {
	if f.abi == nil {
		return nil, false
	}
	return f.abi, true
}

func TestBuildTracksObjectInputs(t *testing.T) {
	coinTy := move.StructOf(move.StructTag{Name: "Coin"})
	seq := &move.MoveSequence{
		Inputs: []move.InputArgument{
			{Kind: move.InputObjectImmOrOwned, ObjectID: move.Address{1}},
		},
	}
	gasID := move.Address{9}
	d := Build(seq, fakeResolver{}, gasID,
		map[int]move.SignatureToken{0: coinTy},
		map[int]move.Owner{0: {Kind: move.OwnerAddress}},
	)

	cands := d.Candidates(coinTy, nil)
	require.Len(t, cands, 1)
	require.Equal(t, GateOwned, cands[0].Gate)
	require.Len(t, d.UsedObjectIDs, 2, "expected gas id + 1 object id")
	require.Len(t, d.Balances, 1, "expected the Coin-shaped input registered as a balance view candidate")
}

func TestBuildWalksCallReturnsAndConsumption(t *testing.T) {
	potatoTy := move.StructOf(move.StructTag{Name: "Receipt"})
	abi := &move.FunctionAbi{
		Name:    "start",
		Params:  nil,
		Returns: []move.SignatureToken{potatoTy},
		StructAbilities: func(tag move.StructTag) move.Abilities {
			return 0 // no abilities: hot potato
		},
	}
	seq := &move.MoveSequence{
		Commands: []move.Command{
			{Kind: move.CommandCall, Call: &move.MoveCall{Function: "start"}},
		},
	}
	d := Build(seq, fakeResolver{abi: abi}, move.Address{}, nil, nil)

	require.Len(t, d.HotPotatoes, 1)
	cands := d.Candidates(potatoTy, nil)
	require.Len(t, cands, 1, "expected the return value registered as a candidate")
}

func TestBuildClassifiesBalanceAndKeyStoreReturns(t *testing.T) {
	coinTy := move.StructOf(move.StructTag{Name: "Coin"})
	capTy := move.StructOf(move.StructTag{Name: "Cap"})
	abi := &move.FunctionAbi{
		Name:    "mint_and_issue",
		Returns: []move.SignatureToken{coinTy, capTy},
		StructAbilities: func(tag move.StructTag) move.Abilities {
			if tag.Name == "Cap" {
				return move.Abilities(0).With(move.AbilityKey)
			}
			return move.Abilities(0).With(move.AbilityStore).With(move.AbilityDrop)
		},
	}
	seq := &move.MoveSequence{
		Commands: []move.Command{
			{Kind: move.CommandCall, Call: &move.MoveCall{Function: "mint_and_issue"}},
		},
	}
	d := Build(seq, fakeResolver{abi: abi}, move.Address{}, nil, nil)

	require.Len(t, d.Balances, 1, "expected the Coin return classified into Balances")
	require.Len(t, d.KeyStoreObjects, 1, "expected the key-ability Cap return classified into KeyStoreObjects")
}

func TestBuildConsumptionDrainsBalanceAndKeyStoreViews(t *testing.T) {
	coinTy := move.StructOf(move.StructTag{Name: "Coin"})
	startAbi := &move.FunctionAbi{
		Name:    "mint",
		Returns: []move.SignatureToken{coinTy},
		StructAbilities: func(tag move.StructTag) move.Abilities {
			return move.Abilities(0).With(move.AbilityStore).With(move.AbilityDrop)
		},
	}
	burnAbi := &move.FunctionAbi{
		Name:   "burn",
		Params: []move.SignatureToken{coinTy},
		StructAbilities: func(tag move.StructTag) move.Abilities {
			return move.Abilities(0).With(move.AbilityStore).With(move.AbilityDrop)
		},
	}
	seq := &move.MoveSequence{
		Commands: []move.Command{
			{Kind: move.CommandCall, Call: &move.MoveCall{Function: "mint"}},
			{Kind: move.CommandCall, Call: &move.MoveCall{Function: "burn", Args: []move.SequenceArgument{move.Result(0)}}},
		},
	}
	d := Build(seq, multiResolver{byName: map[string]*move.FunctionAbi{"mint": startAbi, "burn": burnAbi}}, move.Address{}, nil, nil)

	require.Empty(t, d.Balances, "expected the minted coin consumed by burn to be drained from Balances")
}

type multiResolver struct{ byName map[string]*move.FunctionAbi }

func (r multiResolver) ResolveFunction(pkg move.Address, module, function string) (*move.FunctionAbi, bool) {
	abi, ok := r.byName[function]
	return abi, ok
}
