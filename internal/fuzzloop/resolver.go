// Package fuzzloop implements component C10 (spec.md §2/§5): the
// single-threaded cooperative cycle that picks a corpus seed, mutates it,
// runs it through the Executor, and promotes the result to the live
// corpus or the crash set. Grounded on the teacher's driving-loop style
// in cmd/vybium-vm-prover/main.go (read input, build the engine, run,
// report) generalized from a one-shot prover invocation into a repeating
// cycle with its own corpus and stage-replay memory.
package fuzzloop

import (
	"github.com/movy/movefuzz/internal/ledger"
	"github.com/movy/movefuzz/pkg/move"
)

// LedgerResolver adapts a ledger.View into a move.AbiResolver, satisfying
// every Validate/Synthesizer/ObjectResolver consumer that only needs
// package/module/function lookups rather than the full LedgerView
// surface. Package ABIs are cached after first lookup since the ledger
// snapshot is immutable to the core for the lifetime of one cycle
// (spec.md §5 "Shared-resource policy").
type LedgerResolver struct {
	led   ledger.View
	cache map[move.Address]*move.PackageAbi
}

// NewLedgerResolver builds a LedgerResolver over led.
func NewLedgerResolver(led ledger.View) *LedgerResolver {
	return &LedgerResolver{led: led, cache: map[move.Address]*move.PackageAbi{}}
}

// ResolveFunction implements move.AbiResolver.
func (r *LedgerResolver) ResolveFunction(pkg move.Address, module, function string) (*move.FunctionAbi, bool) {
	abi, ok := r.packageAbi(pkg)
	if !ok {
		return nil, false
	}
	for _, m := range abi.Modules {
		if m.Name != module {
			continue
		}
		for _, fn := range m.Functions {
			if fn.Name == function {
				f := fn
				return &f, true
			}
		}
	}
	return nil, false
}

func (r *LedgerResolver) packageAbi(pkg move.Address) (*move.PackageAbi, bool) {
	if abi, ok := r.cache[pkg]; ok {
		return abi, abi != nil
	}
	abi, err := r.led.GetPackageInfo(pkg)
	if err != nil || abi == nil {
		r.cache[pkg] = nil
		return nil, false
	}
	r.cache[pkg] = abi
	return abi, true
}

// Invalidate drops the cached ABI set, used after a Publish/Upgrade
// command changes what GetPackageInfo would return.
func (r *LedgerResolver) Invalidate() {
	r.cache = map[move.Address]*move.PackageAbi{}
}
