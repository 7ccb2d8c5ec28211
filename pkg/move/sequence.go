package move

import "fmt"

// MoveSequence is a PTB: an ordered list of inputs and commands sharing a
// single input pool and per-command result slots.
type MoveSequence struct {
	Inputs   []InputArgument
	Commands []Command
}

// AbiResolver looks up a FunctionAbi by package/module/function name, used
// by Validate to check call arity and by-value consumption of prior
// results (invariant d). Implementations are expected to consult a
// TypeGraph or LedgerView-backed package cache.
type AbiResolver interface {
	ResolveFunction(pkg Address, module, function string) (*FunctionAbi, bool)
}

// consumed tracks, for each SequenceArgument identity, whether it has
// already been taken by value.
type consumedSet map[string]bool

func argKey(a SequenceArgument) string {
	return fmt.Sprintf("%d:%d:%d", a.Kind, a.I, a.J)
}

// Validate checks invariants (a), (b) and (d) of spec.md §3: input indices
// in range, Result/NestedResult referring only to strictly earlier
// commands, and (when resolver is non-nil) the argument count of every
// resolved call plus no double by-value consumption of a prior result.
// It does not compare a bound argument's type with the declared parameter
// type (invariant c).
func (s *MoveSequence) Validate(resolver AbiResolver) error {
	consumed := consumedSet{}

	checkArgInRange := func(cmdIdx int, a SequenceArgument) error {
		switch a.Kind {
		case ArgInput:
			if a.I < 0 || a.I >= len(s.Inputs) {
				return newError(ErrIndexOutOfRange, fmt.Sprintf("command %d: Input(%d) out of range (%d inputs)", cmdIdx, a.I, len(s.Inputs)), nil)
			}
		case ArgResult, ArgNestedResult:
			if a.I < 0 || a.I >= cmdIdx {
				return newError(ErrIndexOutOfRange, fmt.Sprintf("command %d: %s does not refer to a strictly earlier command", cmdIdx, a.String()), nil)
			}
		}
		return nil
	}

	for i, cmd := range s.Commands {
		for _, a := range cmd.Arguments() {
			if err := checkArgInRange(i, a); err != nil {
				return err
			}
		}

		var abi *FunctionAbi
		// Package ZeroAddress is reserved for the mutator's synthetic,
		// non-Move housekeeping calls (pre/post hooks, process_balance,
		// process_key_store); they carry no ABI to resolve and are exempt
		// from type/arity checking, matching the native treatment already
		// given to CommandTransferObjects and friends.
		if cmd.Kind == CommandCall && cmd.Call != nil && resolver != nil && cmd.Call.Package != ZeroAddress {
			found, ok := resolver.ResolveFunction(cmd.Call.Package, cmd.Call.Module, cmd.Call.Function)
			if !ok {
				return newError(ErrUnificationFailed, fmt.Sprintf("command %d: unknown function %s::%s::%s", i, cmd.Call.Package, cmd.Call.Module, cmd.Call.Function), nil)
			}
			abi = found
		}

		if abi != nil && cmd.Call != nil {
			if len(cmd.Call.Args) != len(abi.Params) {
				return newError(ErrTypeMismatch, fmt.Sprintf("command %d: argument count mismatch (got %d, want %d)", i, len(cmd.Call.Args), len(abi.Params)), nil)
			}
			subst := Substitution{}
			for idx, ta := range cmd.Call.TypeArgs {
				subst[uint16(idx)] = ta
			}
			for pIdx, param := range abi.Params {
				declared := Substitute(param, subst)
				arg := cmd.Call.Args[pIdx]

				isByValue := !declared.IsReference()
				if isByValue && (arg.Kind == ArgResult || arg.Kind == ArgNestedResult) {
					k := argKey(arg)
					if consumed[k] {
						return newError(ErrDoubleConsume, fmt.Sprintf("command %d: argument %s already consumed by value", i, arg.String()), nil)
					}
					consumed[k] = true
				}
			}
		}
	}
	return nil
}

// NextResultRef returns the SequenceArgument a caller should use to
// reference the j-th positional return of the command at cmdIdx:
// Result(cmdIdx) when it has exactly one return and j is 0,
// NestedResult(cmdIdx,j) otherwise.
func NextResultRef(cmdIdx int, resultCount, j int) SequenceArgument {
	if resultCount == 1 && j == 0 {
		return Result(cmdIdx)
	}
	return NestedResult(cmdIdx, j)
}
