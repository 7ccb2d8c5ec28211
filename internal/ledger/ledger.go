// Package ledger defines the read-only chain-state contract the core
// consumes (spec.md §6 LedgerView) plus an in-memory FakeLedger used by
// tests and by internal/fuzzloop.Replay. No GraphQL/gRPC client is
// implemented here — on-chain data retrieval is explicitly out of core
// scope (spec.md §1 Non-goals); grounded on the interface-only shape of
// the teacher's internal/vybium-starks-vm/core verifier inputs (a plain
// Go interface the prover core consumes, with a fixture-backed fake used
// throughout its tests).
package ledger

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/movy/movefuzz/pkg/move"
)

// Object is the full on-chain representation of one object: its
// identity/version/digest/type (move.ObjectInfo) plus its raw BCS-style
// contents, as needed to reconstruct balances and field values during
// replay.
type Object struct {
	Info     move.ObjectInfo
	Contents []byte
}

// View is the read-only ledger surface the core consumes (spec.md §6).
// Deliberately a narrow interface — ObjectResolver, Synthesizer, and the
// oracle pipeline's LedgerView are all satisfied by any implementation
// of this contract.
type View interface {
	GetObject(id move.Address) (*Object, bool)
	GetObjectByKey(id move.Address, version uint64) (*Object, bool)
	GetMoveObjectInfo(id move.Address) (move.ObjectInfo, error)
	GetPackageInfo(id move.Address) (*move.PackageAbi, error)
	ListObjects() ([]move.Address, error)
}

// FakeLedger is an in-memory View backed by plain maps, guarded by a
// sync.RWMutex so its readers and writers are safe for concurrent use.
type FakeLedger struct {
	mu       sync.RWMutex
	objects  map[move.Address]*Object
	versions map[move.Address]map[uint64]*Object
	packages map[move.Address]*move.PackageAbi
}

// NewFakeLedger creates an empty in-memory ledger.
func NewFakeLedger() *FakeLedger {
	return &FakeLedger{
		objects:  map[move.Address]*Object{},
		versions: map[move.Address]map[uint64]*Object{},
		packages: map[move.Address]*move.PackageAbi{},
	}
}

// PutObject inserts or overwrites the latest version of an object, and
// records it in the per-version history used by GetObjectByKey.
func (l *FakeLedger) PutObject(o Object) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := o
	l.objects[o.Info.ID] = &cp
	if l.versions[o.Info.ID] == nil {
		l.versions[o.Info.ID] = map[uint64]*Object{}
	}
	l.versions[o.Info.ID][o.Info.Version] = &cp
}

// PutPackage registers a package's ABI surface for GetPackageInfo.
func (l *FakeLedger) PutPackage(p move.PackageAbi) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := p
	l.packages[p.ID] = &cp
}

func (l *FakeLedger) GetObject(id move.Address) (*Object, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	o, ok := l.objects[id]
	return o, ok
}

func (l *FakeLedger) GetObjectByKey(id move.Address, version uint64) (*Object, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	byVersion, ok := l.versions[id]
	if !ok {
		return nil, false
	}
	o, ok := byVersion[version]
	return o, ok
}

func (l *FakeLedger) GetMoveObjectInfo(id move.Address) (move.ObjectInfo, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	o, ok := l.objects[id]
	if !ok {
		return move.ObjectInfo{}, errNotFound(id)
	}
	return o.Info, nil
}

func (l *FakeLedger) GetPackageInfo(id move.Address) (*move.PackageAbi, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.packages[id]
	if !ok {
		return nil, nil
	}
	return p, nil
}

func (l *FakeLedger) ListObjects() ([]move.Address, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]move.Address, 0, len(l.objects))
	for id := range l.objects {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// BalanceOf sums the last-8-bytes-as-u64 contents of every owned object
// of the given coin type held by addr, satisfying internal/oracle.LedgerView
// for ProceedsOracle's balance-delta computation. Objects shorter than 8
// bytes contribute zero.
func (l *FakeLedger) BalanceOf(addr move.Address, coinType move.SignatureToken) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total int64
	for _, o := range l.objects {
		if o.Info.Owner.Kind != move.OwnerAddress || o.Info.Owner.Address != addr {
			continue
		}
		if !o.Info.Type.Equal(coinType) {
			continue
		}
		if len(o.Contents) >= 8 {
			total += int64(binary.BigEndian.Uint64(o.Contents[len(o.Contents)-8:]))
		}
	}
	return total, nil
}

type ledgerError struct {
	msg string
}

func (e *ledgerError) Error() string { return e.msg }

func errNotFound(id move.Address) error {
	return &ledgerError{"ledger: object not found: " + id.String()}
}
