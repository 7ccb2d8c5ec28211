package concolic

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/movy/movefuzz/pkg/move"
)

// Op names a bytecode operation relevant to the abstract semantics table
// of spec.md §4.2. Only the subset that affects the symbolic shadow stack
// is modeled; everything else is handled by the generic default case.
type Op uint8

const (
	OpLdConst Op = iota
	OpLdTrue
	OpLdFalse
	OpCast
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpCompare // Eq/Neq/Lt/Le/Gt/Ge, disambiguated via InstrEvent.CompareOp
	OpCopyLoc
	OpImmBorrowLoc
	OpMutBorrowLoc
	OpMoveLoc
	OpStLoc
	OpPack
	OpUnpack
	OpVecPack
	OpVecUnpack
	OpWriteRef
	OpVecPushBack
	OpPop
	OpBrTrue
	OpBrFalse
	OpAbort
	OpOther
)

// OpenFrameEvent is emitted when the VM opens a new call frame.
type OpenFrameEvent struct {
	Func         move.Ident
	ParamCount   int
	IsIntParam   []bool // len == ParamCount; true for non-reference integer params
	IsNative     bool
	ReturnCount  int
}

// CloseFrameEvent is emitted when the VM returns from a call frame.
type CloseFrameEvent struct{}

// InstrEvent is emitted once per instruction, before the VM executes it.
type InstrEvent struct {
	PC  uint64
	Op  Op

	// OpCompare disambiguation.
	CompareOp CompareOp

	// OpCast / OpShl / OpShr bit width.
	Width uint32

	// OpBitAnd/Or/Xor constant-mask operand, when the instruction compares
	// against a compile-time constant.
	Mask        *uint256.Int
	HasMask     bool

	// OpShl/OpShr: the shift amount, when known concrete at trace time.
	ShiftAmount      uint32
	HasConcreteShift bool

	// OpCopyLoc/ImmBorrowLoc/MutBorrowLoc/MoveLoc/StLoc local slot index.
	LocalIdx int

	// OpPack/Unpack/VecPack/VecUnpack field/element count.
	FieldCount int

	// The VM-observed concrete boolean result of an OpCompare, used to
	// select which literal (1/0) is pushed onto the (real) VM stack, and
	// mirrored onto the shadow stack.
	ObservedTruth bool

	// Concrete operand values observed on the real VM stack, used to
	// concretize an Unknown operand into a fresh symbol carrying that
	// value (spec.md §4.2: "introducing fresh symbols for Unknown via the
	// concrete VM operand when available").
	ObservedLeft  *big.Int
	ObservedRight *big.Int
}

// EffectEvent signals an ExecutionError surfaced mid-instruction.
type EffectEvent struct {
	IsError bool
}

// ExternalEvent carries a named out-of-band signal; "MoveCallStart" marks
// a new PTB call boundary.
type ExternalEvent struct {
	Name string
}
