package ledger

import (
	"encoding/binary"
	"testing"

	"github.com/movy/movefuzz/pkg/move"
)

func sui() move.SignatureToken {
	return move.SignatureToken{Kind: move.KindStruct, Struct: &move.StructTag{
		Address: move.Address{2}, Module: "sui", Name: "SUI",
	}}
}

func TestFakeLedgerObjectRoundTrip(t *testing.T) {
	l := NewFakeLedger()
	id := move.Address{9}
	l.PutObject(Object{Info: move.ObjectInfo{ID: id, Version: 1, Type: sui()}, Contents: []byte{1}})

	got, ok := l.GetObject(id)
	if !ok || got.Info.Version != 1 {
		t.Fatalf("expected object to round-trip, got %+v ok=%v", got, ok)
	}

	byKey, ok := l.GetObjectByKey(id, 1)
	if !ok || byKey.Info.ID != id {
		t.Fatalf("expected GetObjectByKey to find version 1")
	}
	if _, ok := l.GetObjectByKey(id, 2); ok {
		t.Fatalf("expected no object at version 2")
	}
}

func TestFakeLedgerBalanceOfSumsOwnedCoinsOfType(t *testing.T) {
	l := NewFakeLedger()
	attacker := move.Address{7}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, 40)
	l.PutObject(Object{
		Info:     move.ObjectInfo{ID: move.Address{1}, Type: sui(), Owner: move.Owner{Kind: move.OwnerAddress, Address: attacker}},
		Contents: buf,
	})
	binary.BigEndian.PutUint64(buf, 60)
	l.PutObject(Object{
		Info:     move.ObjectInfo{ID: move.Address{2}, Type: sui(), Owner: move.Owner{Kind: move.OwnerAddress, Address: attacker}},
		Contents: buf,
	})
	// A different owner's coin must not be counted.
	binary.BigEndian.PutUint64(buf, 999)
	l.PutObject(Object{
		Info:     move.ObjectInfo{ID: move.Address{3}, Type: sui(), Owner: move.Owner{Kind: move.OwnerAddress, Address: move.Address{8}}},
		Contents: buf,
	})

	bal, err := l.BalanceOf(attacker, sui())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bal != 100 {
		t.Fatalf("expected balance 100, got %d", bal)
	}
}

func TestFakeLedgerListObjectsIsSorted(t *testing.T) {
	l := NewFakeLedger()
	l.PutObject(Object{Info: move.ObjectInfo{ID: move.Address{9}}})
	l.PutObject(Object{Info: move.ObjectInfo{ID: move.Address{1}}})

	ids, err := l.ListObjects()
	if err != nil || len(ids) != 2 {
		t.Fatalf("expected 2 objects, got %d err=%v", len(ids), err)
	}
	if ids[0] != (move.Address{1}) {
		t.Fatalf("expected deterministic sorted order, got %v", ids)
	}
}
