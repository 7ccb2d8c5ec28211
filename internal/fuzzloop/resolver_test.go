package fuzzloop

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/movy/movefuzz/internal/ledger"
	"github.com/movy/movefuzz/pkg/move"
)

func samplePackage() move.PackageAbi {
	pkg := move.Address{1}
	return move.PackageAbi{
		ID: pkg,
		Modules: []move.ModuleAbi{{
			Package: pkg,
			Name:    "vault",
			Functions: []move.FunctionAbi{{
				Module:     pkg,
				ModuleName: "vault",
				Name:       "withdraw",
				Params:     []move.SignatureToken{move.U64()},
			}},
		}},
	}
}

func TestLedgerResolverResolvesRegisteredFunction(t *testing.T) {
	led := ledger.NewFakeLedger()
	led.PutPackage(samplePackage())

	r := NewLedgerResolver(led)
	abi, ok := r.ResolveFunction(move.Address{1}, "vault", "withdraw")
	require.True(t, ok, "expected withdraw to resolve")
	require.Equal(t, "withdraw", abi.Name)
	require.Len(t, abi.Params, 1)
}

func TestLedgerResolverMissesUnknownFunction(t *testing.T) {
	led := ledger.NewFakeLedger()
	led.PutPackage(samplePackage())

	r := NewLedgerResolver(led)
	_, ok := r.ResolveFunction(move.Address{1}, "vault", "deposit")
	require.False(t, ok, "expected deposit to be unresolved")
	_, ok = r.ResolveFunction(move.Address{2}, "vault", "withdraw")
	require.False(t, ok, "expected an unregistered package to be unresolved")
}

func TestLedgerResolverCachesAndInvalidates(t *testing.T) {
	led := ledger.NewFakeLedger()
	led.PutPackage(samplePackage())
	r := NewLedgerResolver(led)

	_, ok := r.ResolveFunction(move.Address{1}, "vault", "withdraw")
	require.True(t, ok, "expected first resolve to succeed")
	_, ok = r.cache[move.Address{1}]
	require.True(t, ok, "expected the package abi to be cached after first resolve")

	r.Invalidate()
	_, ok = r.cache[move.Address{1}]
	require.False(t, ok, "expected Invalidate to clear the cache")

	_, ok = r.ResolveFunction(move.Address{1}, "vault", "withdraw")
	require.True(t, ok, "expected resolve to still succeed after invalidation via a fresh lookup")
}

func TestObjectInputTypesSkipsPureInputsAndMissingObjects(t *testing.T) {
	led := ledger.NewFakeLedger()
	objID := move.Address{7}
	led.PutObject(ledger.Object{Info: move.ObjectInfo{
		ID:    objID,
		Type:  move.U64(),
		Owner: move.Owner{Kind: move.OwnerAddress, Address: move.Address{9}},
	}})

	seq := &move.MoveSequence{Inputs: []move.InputArgument{
		{Kind: move.InputPureU64, PureBytes: []byte{1}},
		{Kind: move.InputObjectImmOrOwned, ObjectID: objID},
		{Kind: move.InputObjectImmOrOwned, ObjectID: move.Address{99}}, // not on the ledger
	}}

	types, owners := objectInputTypes(led, seq)
	_, ok := types[0]
	require.False(t, ok, "expected the pure input to be skipped")
	_, ok = types[2]
	require.False(t, ok, "expected the missing ledger object to be skipped")

	ty, ok := types[1]
	require.True(t, ok)
	require.Equal(t, move.KindU64, ty.Kind, "expected input 1's type to resolve to u64")

	require.Equal(t, move.OwnerAddress, owners[1].Kind)
	require.Equal(t, move.Address{9}, owners[1].Address)
}
