// Package solver implements the ConstraintSolver bridge (spec.md §4.4,
// component C3): given a function's integer parameter symbols and a set
// of path constraints gathered by internal/concolic, find a concrete
// assignment that satisfies them, or report UNSAT/Timeout.
//
// No SMT binding exists anywhere in the example pack (z3/cvc5 bindings
// are absent from every go.mod retrieved for this spec), so the search
// here is native: a bounded, randomized constraint checker run on a
// worker goroutine and joined through a context-timeout rendezvous, in
// the spirit of the teacher's worker-thread/channel pattern in
// internal/vybium-starks-vm/utils/channel.go (there used for a
// Fiat-Shamir transcript, here repurposed as the solve-vs-timeout race).
package solver

import (
	"context"
	"math/big"
	"math/rand"
	"time"

	"github.com/movy/movefuzz/internal/concolic"
	"github.com/movy/movefuzz/pkg/move"
)

// Outcome classifies a solve attempt's result (spec.md §4.4).
type Outcome uint8

const (
	OutcomeSAT Outcome = iota
	OutcomeUNSAT
	OutcomeTimeout
)

// DefaultTimeout is the worker-thread deadline mandated by spec.md §4.4.
const DefaultTimeout = 500 * time.Millisecond

// maxAttempts bounds the randomized search so a pathologically
// unsatisfiable constraint set cannot spin the worker goroutine forever
// even when the context deadline check is coarse-grained.
const maxAttempts = 20000

// Solver searches for concrete values satisfying a set of path
// constraints over a function's symbolic integer parameters.
type Solver struct {
	rng *rand.Rand
}

// New creates a Solver. seed selects the randomized-search PRNG stream;
// callers fuzzing reproducibly should derive it from the run seed.
func New(seed int64) *Solver {
	return &Solver{rng: rand.New(rand.NewSource(seed))}
}

// Solve implements spec.md §4.4's contract:
//
//	solve(function_abi, args: Map<u16, IntSym>, constraints: [Bool])
//	  -> Option<Map<u16, InputArgument>>
//
// args maps a function parameter index to the symbol minted for it by
// concolic.State.OpenFrame; constraints is the path-constraint set
// gathered for that call. Solve adds the default per-parameter bound
// 0 ≤ x ≤ 2^w−1 (booleans 0..=1) before searching.
func (s *Solver) Solve(abi *move.FunctionAbi, args map[uint16]concolic.Sym, constraints []concolic.Constraint) (Outcome, map[uint16]move.InputArgument) {
	if len(constraints) == 0 {
		return OutcomeUNSAT, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	type result struct {
		outcome Outcome
		assign  map[string]*big.Int
	}
	done := make(chan result, 1)

	vars, bounds := s.collectVars(abi, args)

	go func() {
		outcome, assign := s.search(vars, bounds, constraints)
		done <- result{outcome, assign}
	}()

	select {
	case r := <-done:
		if r.outcome != OutcomeSAT {
			return r.outcome, nil
		}
		return OutcomeSAT, s.decode(abi, args, r.assign)
	case <-ctx.Done():
		return OutcomeTimeout, nil
	}
}

type bound struct {
	lo, hi *big.Int
	width  uint32
}

// collectVars builds the per-parameter default bound (spec.md §4.4) for
// every variable name that a known (Sym.Known) parameter symbol
// contributes, keyed by its SymExpr variable name.
func (s *Solver) collectVars(abi *move.FunctionAbi, args map[uint16]concolic.Sym) ([]string, map[string]bound) {
	var names []string
	bounds := map[string]bound{}
	for idx, sym := range args {
		if !sym.Known || sym.Expr == nil {
			continue
		}
		collected := map[string]bool{}
		sym.Expr.Vars(collected)
		var width uint32 = 64
		if int(idx) < len(abi.Params) {
			if w := abi.Params[idx].Kind.IntWidth(); w > 0 {
				width = uint32(w)
			}
		}
		hi := new(big.Int).Sub(concolic.Int2Pow(width), big.NewInt(1))
		if int(idx) < len(abi.Params) && abi.Params[idx].Kind == move.KindBool {
			hi = big.NewInt(1)
		}
		for name := range collected {
			if _, seen := bounds[name]; seen {
				continue
			}
			names = append(names, name)
			bounds[name] = bound{lo: big.NewInt(0), hi: hi, width: width}
		}
	}
	return names, bounds
}

// search performs the bounded randomized assignment search: boundary
// values first (0, 1, max, max-1), then uniform random samples, checking
// every constraint concretely against each candidate assignment.
func (s *Solver) search(vars []string, bounds map[string]bound, constraints []concolic.Constraint) (Outcome, map[string]*big.Int) {
	if len(vars) == 0 {
		// No free variables: constraints are either concrete-true or
		// concrete-false already.
		for _, c := range constraints {
			if !c.Holds() {
				return OutcomeUNSAT, nil
			}
		}
		return OutcomeSAT, map[string]*big.Int{}
	}

	seeds := []func(b bound) *big.Int{
		func(b bound) *big.Int { return new(big.Int).Set(b.lo) },
		func(b bound) *big.Int { return big.NewInt(1) },
		func(b bound) *big.Int { return new(big.Int).Set(b.hi) },
		func(b bound) *big.Int { return new(big.Int).Sub(b.hi, big.NewInt(1)) },
	}

	attempts := 0
	for round := 0; round < len(seeds)+1; round++ {
		for i := 0; i < maxAttempts/(len(seeds)+1); i++ {
			assign := make(map[string]*big.Int, len(vars))
			for _, v := range vars {
				b := bounds[v]
				var val *big.Int
				if round < len(seeds) {
					val = seeds[round](b)
					if val.Sign() < 0 || val.Cmp(b.hi) > 0 {
						val = new(big.Int).Set(b.lo)
					}
				} else {
					val = s.randInRange(b.lo, b.hi)
				}
				assign[v] = val
			}
			attempts++
			if satisfies(constraints, assign) {
				return OutcomeSAT, assign
			}
			if round < len(seeds) {
				break // deterministic seed rounds only try one combination
			}
			if attempts >= maxAttempts {
				return OutcomeUNSAT, nil
			}
		}
	}
	return OutcomeUNSAT, nil
}

func satisfies(constraints []concolic.Constraint, assign map[string]*big.Int) bool {
	for _, c := range constraints {
		if !c.HoldsWith(assign) {
			return false
		}
	}
	return true
}

func (s *Solver) randInRange(lo, hi *big.Int) *big.Int {
	span := new(big.Int).Sub(hi, lo)
	span.Add(span, big.NewInt(1))
	if span.Sign() <= 0 {
		return new(big.Int).Set(lo)
	}
	if span.IsUint64() {
		n := span.Uint64()
		v := uint64(s.rng.Int63()) % n
		return new(big.Int).Add(lo, new(big.Int).SetUint64(v))
	}
	bits := span.BitLen()
	buf := make([]byte, (bits+7)/8)
	s.rng.Read(buf)
	v := new(big.Int).SetBytes(buf)
	v.Mod(v, span)
	return v.Add(v, lo)
}

// decode converts a satisfying assignment back into well-typed
// InputArguments per parameter index, per spec.md §4.4 ("parse each
// assigned numeral ... return well-typed InputArguments; on parse
// failure for a given index, skip that index only").
func (s *Solver) decode(abi *move.FunctionAbi, args map[uint16]concolic.Sym, assign map[string]*big.Int) map[uint16]move.InputArgument {
	out := map[uint16]move.InputArgument{}
	for idx, sym := range args {
		if !sym.Known || sym.Expr == nil {
			continue
		}
		var width uint32 = 64
		var kind move.InputArgumentKind = move.InputPureU64
		if int(idx) < len(abi.Params) {
			if w := abi.Params[idx].Kind.IntWidth(); w > 0 {
				width = uint32(w)
				kind = kindForWidth(w)
			}
		}
		val := sym.Expr.EvalWith(assign)
		val.Mod(val, concolic.Int2Pow(width))
		arg, ok := encodeInt(kind, val)
		if !ok {
			continue // parse failure: skip this index only
		}
		out[idx] = arg
	}
	return out
}

func kindForWidth(w int) move.InputArgumentKind {
	switch w {
	case 8:
		return move.InputPureU8
	case 16:
		return move.InputPureU16
	case 32:
		return move.InputPureU32
	case 64:
		return move.InputPureU64
	case 128:
		return move.InputPureU128
	case 256:
		return move.InputPureU256
	default:
		return move.InputPureU64
	}
}

func encodeInt(kind move.InputArgumentKind, v *big.Int) (move.InputArgument, bool) {
	if v.Sign() < 0 {
		return move.InputArgument{}, false
	}
	return move.InputArgument{Kind: kind, PureBytes: v.Bytes()}, true
}
