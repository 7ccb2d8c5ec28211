package fuzzloop

import (
	"github.com/movy/movefuzz/internal/ledger"
	"github.com/movy/movefuzz/pkg/move"
)

// objectInputTypes resolves the ledger-observed type and owner of every
// object-kind input in seq, per spec.md §4.5 "ObjectData" construction:
// ObjectResolver.Build needs these two maps up front since InputArgument
// itself carries only an id/version/digest, not the object's Move type.
func objectInputTypes(led ledger.View, seq *move.MoveSequence) (map[int]move.SignatureToken, map[int]move.Owner) {
	types := map[int]move.SignatureToken{}
	owners := map[int]move.Owner{}
	for i, in := range seq.Inputs {
		if !in.IsObject() {
			continue
		}
		info, err := led.GetMoveObjectInfo(in.ObjectID)
		if err != nil {
			continue
		}
		types[i] = info.Type
		owners[i] = info.Owner
	}
	return types, owners
}
