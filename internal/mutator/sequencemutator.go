package mutator

import (
	"math/rand"

	"github.com/movy/movefuzz/internal/objectresolver"
	"github.com/movy/movefuzz/internal/synthesizer"
	"github.com/movy/movefuzz/internal/typegraph"
	"github.com/movy/movefuzz/pkg/move"
)

// AddMoveCallProb / InitFunctionScore / ScoreTick are the weighted-sample
// and scoring constants of spec.md §4.6.
const (
	AddMoveCallProb   = 0.5
	InitFunctionScore = 10
)

// ScoreTick is the per-consumer credit applied when a hot potato of its
// consumable type is live (spec.md §4.6 step 4); the original
// implementation decays unused scores geometrically round over round
// rather than flooring them back to InitFunctionScore in one step — a
// supplemented behavior recovered from original_source and carried here
// (spec.md §12 "stage-scoring geometric decay").
const ScoreTick = 5.0
const ScoreDecay = 0.9

// FunctionCatalog names every callable function the mutator may weighted-
// sample by its typegraph identity.
type FunctionCatalog struct {
	Functions []typegraph.FunctionNode
	Scores    map[string]float64
}

func fnKey(fn typegraph.FunctionNode) string {
	return fn.Module.String() + "::" + fn.Name + "::" + fn.Abi.Name
}

// NewCatalog seeds every function at InitFunctionScore.
func NewCatalog(fns []typegraph.FunctionNode) *FunctionCatalog {
	scores := make(map[string]float64, len(fns))
	for _, fn := range fns {
		scores[fnKey(fn)] = InitFunctionScore
	}
	return &FunctionCatalog{Functions: fns, Scores: scores}
}

// Sample weighted-picks a function by its current score.
func (c *FunctionCatalog) Sample(rng *rand.Rand) (typegraph.FunctionNode, bool) {
	if len(c.Functions) == 0 {
		return typegraph.FunctionNode{}, false
	}
	total := 0.0
	for _, fn := range c.Functions {
		total += c.Scores[fnKey(fn)]
	}
	if total <= 0 {
		return c.Functions[rng.Intn(len(c.Functions))], true
	}
	pick := rng.Float64() * total
	for _, fn := range c.Functions {
		pick -= c.Scores[fnKey(fn)]
		if pick <= 0 {
			return fn, true
		}
	}
	return c.Functions[len(c.Functions)-1], true
}

// UpdateScores implements spec.md §4.6 step 4's scoring update: every
// consumer of a currently-live hot-potato type is credited +ScoreTick;
// every other score decays geometrically toward InitFunctionScore rather
// than being reset outright (the original_source supplement).
func (c *FunctionCatalog) UpdateScores(graph *typegraph.Graph, hotPotatoes []move.SignatureToken) {
	credited := map[string]bool{}
	for _, ty := range hotPotatoes {
		for _, consumer := range graph.FindConsumers(ty, true) {
			k := fnKey(consumer)
			c.Scores[k] += ScoreTick
			credited[k] = true
		}
	}
	for k, v := range c.Scores {
		if credited[k] {
			continue
		}
		c.Scores[k] = InitFunctionScore + (v-InitFunctionScore)*ScoreDecay
	}
}

// SequenceMutator implements spec.md §4.6's add/remove strategy.
type SequenceMutator struct {
	Catalog  *FunctionCatalog
	Graph    *typegraph.Graph
	Resolver move.AbiResolver
	Replay   *StageReplay
	Rng      *rand.Rand
}

// NewSequenceMutator creates a SequenceMutator.
func NewSequenceMutator(catalog *FunctionCatalog, graph *typegraph.Graph, resolver move.AbiResolver, replay *StageReplay, rng *rand.Rand) *SequenceMutator {
	return &SequenceMutator{Catalog: catalog, Graph: graph, Resolver: resolver, Replay: replay, Rng: rng}
}

// Mutate produces at most one new PTB from seq, per spec.md §4.6.
func (m *SequenceMutator) Mutate(seq *move.MoveSequence, data *objectresolver.Data, typeOf synthesizer.InputTypeFn) (*move.MoveSequence, bool) {
	fp := Fingerprint(seq)
	if action, _, snapshot := m.Replay.Next(KindSequence, fp); action == ActionReplay {
		seq = cloneSequence(snapshot)
	}

	stripHooks(seq)

	n := len(seq.Commands)
	addProb := AddMoveCallProb * 7 / float64(max(n, 1))
	if addProb > 1 {
		addProb = 1
	}
	doAdd := n <= 3 || m.Rng.Float64() < addProb

	var out *move.MoveSequence
	var ok bool
	if doAdd {
		out, ok = m.add(seq, data, typeOf)
	} else {
		out, ok = m.remove(seq)
		// A remove invalidates data's Result/NestedResult references: they
		// were computed against the pre-removal command indices. Skip the
		// housekeeping injector this cycle; it runs again once the next
		// Build() call refreshes data against the new command layout.
		data = nil
	}
	if !ok {
		return out, false
	}
	finish(out, data)
	return out, true
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (m *SequenceMutator) add(seq *move.MoveSequence, data *objectresolver.Data, typeOf synthesizer.InputTypeFn) (*move.MoveSequence, bool) {
	fn, ok := m.Catalog.Sample(m.Rng)
	if !ok {
		return seq, false
	}
	synth := synthesizer.New(m.Graph, m.Resolver, m.Rng)
	if err := synth.AppendFunction(seq, fn, nil, nil, map[string]bool{}, false, data, typeOf, 0); err != nil {
		return seq, false
	}
	m.Catalog.UpdateScores(m.Graph, data.HotPotatoes)
	return seq, true
}

// remove implements spec.md §4.6 step 5's transitive removal set plus
// shift-map reindexing.
func (m *SequenceMutator) remove(seq *move.MoveSequence) (*move.MoveSequence, bool) {
	n := len(seq.Commands)
	if n == 0 {
		return seq, false
	}
	k := m.Rng.Intn(n)
	removed := computeRemovalSet(seq, m.Resolver, k)
	if len(removed) == n {
		return seq, false // removal set equals all commands: skip
	}

	shift := make([]int, n)
	count := 0
	for i := 0; i < n; i++ {
		if removed[i] {
			count++
		}
		shift[i] = count
	}

	newCommands := make([]move.Command, 0, n-len(removed))
	for i, cmd := range seq.Commands {
		if removed[i] {
			continue
		}
		newCommands = append(newCommands, reindexCommand(cmd, removed, shift))
	}
	seq.Commands = newCommands
	return seq, true
}

// computeRemovalSet implements spec.md §4.6 step 5's fixed-point:
// k itself; every later command referencing Result(k)/NestedResult(k,_);
// walking backward from k, an immediately-preceding split call; and, for
// each removed Call, every preceding result it consumed whose parameter
// type is hot-potato (the producer must die too, cascading).
func computeRemovalSet(seq *move.MoveSequence, resolver move.AbiResolver, k int) map[int]bool {
	removed := map[int]bool{k: true}

	changed := true
	for changed {
		changed = false
		for i, cmd := range seq.Commands {
			if removed[i] {
				continue
			}
			for _, arg := range cmd.Arguments() {
				if (arg.Kind == move.ArgResult || arg.Kind == move.ArgNestedResult) && removed[arg.I] {
					removed[i] = true
					changed = true
					break
				}
			}
		}

		for i, cmd := range seq.Commands {
			if !removed[i] || cmd.Kind != move.CommandCall || cmd.Call == nil {
				continue
			}
			if producerIdx, ok := hotPotatoProducer(resolver, cmd.Call); ok && !removed[producerIdx] {
				removed[producerIdx] = true
				changed = true
			}
		}
	}

	// Walking backward from k, remove an immediately-preceding split call
	// that feeds k.
	if k > 0 {
		prev := seq.Commands[k-1]
		if prev.Kind == move.CommandCall && prev.Call != nil &&
			(prev.Call.Function == "split") {
			for _, arg := range seq.Commands[k].Arguments() {
				if arg.Kind == move.ArgResult && arg.I == k-1 {
					removed[k-1] = true
				}
			}
		}
	}

	return removed
}

// hotPotatoProducer reports the command index of the first argument call
// resolves that consumes a Result/NestedResult value of hot-potato type,
// i.e. the producer that must die alongside call (spec.md §4.6 step 5's
// 4th removal rule).
func hotPotatoProducer(resolver move.AbiResolver, call *move.MoveCall) (int, bool) {
	if resolver == nil {
		return 0, false
	}
	abi, ok := resolver.ResolveFunction(call.Package, call.Module, call.Function)
	if !ok {
		return 0, false
	}
	subst := move.Substitution{}
	for i, tp := range call.TypeArgs {
		subst[uint16(i)] = tp
	}
	for pi, arg := range call.Args {
		if pi >= len(abi.Params) {
			break
		}
		if arg.Kind != move.ArgResult && arg.Kind != move.ArgNestedResult {
			continue
		}
		param := abi.Params[pi]
		if param.IsReference() {
			continue // by-value consumption only
		}
		deref := move.Substitute(param, subst).Dereference()
		if deref.Kind != move.KindStruct || deref.Struct == nil || abi.StructAbilities == nil {
			continue
		}
		abilities := abi.StructAbilities(*deref.Struct)
		if move.IsHotPotatoStruct(deref, abilities) {
			return arg.I, true
		}
	}
	return 0, false
}

func reindexCommand(cmd move.Command, removed map[int]bool, shift []int) move.Command {
	reindex := func(a move.SequenceArgument) move.SequenceArgument {
		if a.Kind != move.ArgResult && a.Kind != move.ArgNestedResult {
			return a
		}
		newI := a.I - shift[a.I]
		if a.Kind == move.ArgResult {
			return move.Result(newI)
		}
		return move.NestedResult(newI, a.J)
	}

	if cmd.Kind == move.CommandCall && cmd.Call != nil {
		newArgs := make([]move.SequenceArgument, len(cmd.Call.Args))
		for i, a := range cmd.Call.Args {
			newArgs[i] = reindex(a)
		}
		cmd.Call.Args = newArgs
	}
	return cmd
}

// Hook function names identify the synthetic, non-Move housekeeping calls
// finish injects and stripHooks later removes (spec.md §4.6 steps 2/6).
// They target move.ZeroAddress, which Validate exempts from ABI
// resolution since no real package ever declares these functions.
const (
	hookSequencePreFunction  = "hook_sequence_pre"
	hookSequencePostFunction = "hook_sequence_post"
	hookPreFunction          = "hook_pre"
	hookPostFunction         = "hook_post"
	processBalanceFunction   = "process_balance"
	processKeyStoreFunction  = "process_key_store"
)

func isHookFunction(fn string) bool {
	switch fn {
	case hookSequencePreFunction, hookSequencePostFunction, hookPreFunction, hookPostFunction,
		processBalanceFunction, processKeyStoreFunction:
		return true
	}
	return false
}

// stripHooks removes every previously-injected hook/housekeeping call
// (spec.md §4.6 step 2) and re-indexes the Result/NestedResult arguments
// of the surviving commands, undoing finish's insertions exactly.
func stripHooks(seq *move.MoveSequence) {
	n := len(seq.Commands)
	removed := make(map[int]bool, n)
	for i, cmd := range seq.Commands {
		if cmd.Kind == move.CommandCall && cmd.Call != nil && isHookFunction(cmd.Call.Function) {
			removed[i] = true
		}
	}
	if len(removed) == 0 {
		return
	}

	shift := make([]int, n)
	count := 0
	for i := 0; i < n; i++ {
		if removed[i] {
			count++
		}
		shift[i] = count
	}

	kept := make([]move.Command, 0, n-len(removed))
	for i, cmd := range seq.Commands {
		if removed[i] {
			continue
		}
		kept = append(kept, reindexCommand(cmd, removed, shift))
	}
	seq.Commands = kept
}

// finish implements spec.md §4.6 step 6: apply per-function and sequence-
// level pre/post hooks, then process_balance/process_key_store
// housekeeping, so the next cycle's stripHooks has exactly this shape to
// undo.
func finish(seq *move.MoveSequence, data *objectresolver.Data) {
	seq.Commands = injectFunctionHooks(seq.Commands)
	injectHousekeeping(seq, data)
}

func hookCall(function string) move.Command {
	return move.Command{Kind: move.CommandCall, Call: &move.MoveCall{Package: move.ZeroAddress, Module: "hooks", Function: function}}
}

// injectFunctionHooks wraps every real command with a hook_pre/hook_post
// pair and the whole sequence with hook_sequence_pre/hook_sequence_post,
// shifting Result(i)/NestedResult(i,_) references to the real command's
// new position (2 + 3*i: the leading sequence-pre hook, then pre/call/post
// triples for every earlier command).
func injectFunctionHooks(commands []move.Command) []move.Command {
	if len(commands) == 0 {
		return commands
	}
	out := make([]move.Command, 0, len(commands)*3+2)
	out = append(out, hookCall(hookSequencePreFunction))
	for _, cmd := range commands {
		out = append(out, hookCall(hookPreFunction))
		out = append(out, reindexForHooks(cmd))
		out = append(out, hookCall(hookPostFunction))
	}
	out = append(out, hookCall(hookSequencePostFunction))
	return out
}

func hookShiftedArg(a move.SequenceArgument) move.SequenceArgument {
	if a.Kind != move.ArgResult && a.Kind != move.ArgNestedResult {
		return a
	}
	newI := 2 + 3*a.I
	if a.Kind == move.ArgResult {
		return move.Result(newI)
	}
	return move.NestedResult(newI, a.J)
}

func reindexForHooks(cmd move.Command) move.Command {
	if cmd.Kind == move.CommandCall && cmd.Call != nil {
		newArgs := make([]move.SequenceArgument, len(cmd.Call.Args))
		for i, a := range cmd.Call.Args {
			newArgs[i] = hookShiftedArg(a)
		}
		cmd.Call.Args = newArgs
	}
	return cmd
}

// injectHousekeeping appends process_balance/process_key_store calls
// draining every candidate the resolver's snapshot saw as a live balance
// or key-store object (spec.md §4.5's sub-views "used by the post-hook
// injector"), so leftover coin/balance and capability objects don't
// silently carry past the sequence boundary.
func injectHousekeeping(seq *move.MoveSequence, data *objectresolver.Data) {
	if data == nil {
		return
	}
	for _, c := range data.Balances {
		seq.Commands = append(seq.Commands, housekeepingCall(processBalanceFunction, c.Arg))
	}
	for _, c := range data.KeyStoreObjects {
		seq.Commands = append(seq.Commands, housekeepingCall(processKeyStoreFunction, c.Arg))
	}
}

func housekeepingCall(function string, arg move.SequenceArgument) move.Command {
	return move.Command{
		Kind: move.CommandCall,
		Call: &move.MoveCall{
			Package:  move.ZeroAddress,
			Module:   "housekeeping",
			Function: function,
			Args:     []move.SequenceArgument{hookShiftedArg(arg)},
		},
	}
}

func cloneSequence(seq *move.MoveSequence) *move.MoveSequence {
	if seq == nil {
		return &move.MoveSequence{}
	}
	clone := &move.MoveSequence{
		Inputs:   append([]move.InputArgument(nil), seq.Inputs...),
		Commands: append([]move.Command(nil), seq.Commands...),
	}
	return clone
}
