package move

// OwnerKind discriminates an object's owner.
type OwnerKind uint8

const (
	OwnerAddress OwnerKind = iota
	OwnerShared
	OwnerImmutable
	OwnerObject
)

// Owner is the discriminated owner of an object, per spec.md §3 ObjectInfo.
type Owner struct {
	Kind OwnerKind

	// Valid when Kind == OwnerAddress.
	Address Address

	// Valid when Kind == OwnerShared.
	InitialVersion uint64

	// Valid when Kind == OwnerObject.
	Parent Address
}

// Gate classifies how an object may be used as an argument, derived from
// its Owner.
type Gate uint8

const (
	GateOwned Gate = iota
	GateImmutable
	GateShared
)

// GateOf maps an Owner to the Gate used by ObjectResolver's owner-gate
// filter (spec.md §4.5 step 5).
func GateOf(o Owner) Gate {
	switch o.Kind {
	case OwnerShared:
		return GateShared
	case OwnerImmutable:
		return GateImmutable
	default:
		return GateOwned
	}
}

// ObjectInfo is the per-chain-state snapshot of a single object.
type ObjectInfo struct {
	ID      Address
	Version uint64
	Digest  [32]byte
	Type    SignatureToken
	Owner   Owner
}
