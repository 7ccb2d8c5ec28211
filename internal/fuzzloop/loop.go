package fuzzloop

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/movy/movefuzz/internal/concolic"
	"github.com/movy/movefuzz/internal/config"
	"github.com/movy/movefuzz/internal/corpus"
	"github.com/movy/movefuzz/internal/executor"
	"github.com/movy/movefuzz/internal/ledger"
	"github.com/movy/movefuzz/internal/mutator"
	"github.com/movy/movefuzz/internal/objectresolver"
	"github.com/movy/movefuzz/internal/oracle"
	"github.com/movy/movefuzz/internal/solver"
	"github.com/movy/movefuzz/internal/telemetry"
	"github.com/movy/movefuzz/internal/typegraph"
	"github.com/movy/movefuzz/pkg/move"
)

// Stats is the fuzz loop's running, operator-facing counters (spec.md
// §6 "a human-readable status line each cycle").
type Stats struct {
	Cycles     uint64
	Crashes    uint64
	CorpusSize uint64
}

// FuzzLoop implements component C10 (spec.md §2/§5): a single-threaded
// cooperative cycle over a live corpus, a SequenceMutator/ArgMutator
// pair, and an Executor, with StageReplay feedback between cycles.
type FuzzLoop struct {
	Config   *config.FuzzConfig
	Corpus   *corpus.Store
	Exec     *executor.Executor
	Graph    *typegraph.Graph
	Resolver *LedgerResolver
	Catalog  *mutator.FunctionCatalog
	SeqMut   *mutator.SequenceMutator
	ArgMut   *mutator.ArgMutator
	Replay   *mutator.StageReplay
	Pool     *mutator.MagicNumberPool
	Rng      *rand.Rand
	Logger   zerolog.Logger
	Metrics  *telemetry.Metrics

	Sender  move.Address
	GasID   move.Address
	Epoch   uint64
	EpochMs uint64

	Stats Stats

	// queue is the live in-memory corpus the loop samples from; loaded
	// once at startup from Corpus.LoadQueue and appended to as new
	// coverage-advancing inputs are promoted.
	queue []corpus.Input

	// seenCoverage is the merged bitmap of every non-zero byte observed
	// in Exec.Coverage across all past cycles, used to decide whether a
	// cycle's execution advanced coverage (spec.md §8 invariant 5,
	// applied across cycles rather than within one execution).
	seenCoverage []byte

	// lastOutcome is the previous cycle's GlobalOutcome, consulted by
	// ArgMutator for the prior execution's per-call symbolic args and
	// comparison logs (spec.md §2 Flow: "ArgMutator optionally consults
	// ConstraintSolver with constraints collected during the previous
	// execution").
	lastOutcome *executor.GlobalOutcome
}

// defaultOracles wires every oracle the pipeline currently implements
// (spec.md §4.8), in the declared evaluation order: proceeds check first
// since it is the cheapest and most actionable, boolean judgement next,
// then the stubbed-out families kept for ordering fidelity.
func defaultOracles() *oracle.Pipeline {
	return oracle.NewPipeline(
		oracle.ProceedsOracle{},
		oracle.BoolJudgementOracle{},
		oracle.OverflowOracle{},
		oracle.InfiniteLoopOracle{},
		oracle.PrecisionLossOracle{},
		oracle.TypeConversionOracle{},
		oracle.TypedBugOracle{},
	)
}

// solverFor builds a ConstraintSolver whose search PRNG is seeded with
// cfg.TimeLimit in nanoseconds (1 when cfg is nil or the limit is zero).
// cfg.SolverTimeout is not read: internal/solver always applies its
// DefaultTimeout package constant.
func solverFor(cfg *config.FuzzConfig) *solver.Solver {
	seed := int64(1)
	if cfg != nil && cfg.TimeLimit > 0 {
		seed = int64(cfg.TimeLimit)
	}
	return solver.New(seed)
}

// New builds a FuzzLoop. packages seeds both the TypeGraph and (when the
// ledger is a *ledger.FakeLedger) the ledger's package table, mirroring
// how an operator points the fuzzer at a fixed set of target on-chain
// packages before the first cycle.
func New(
	cfg *config.FuzzConfig,
	store *corpus.Store,
	led ledger.View,
	vm executor.VM,
	packages []move.PackageAbi,
	sender, gasID move.Address,
	rng *rand.Rand,
	logger zerolog.Logger,
	metrics *telemetry.Metrics,
) *FuzzLoop {
	graph := typegraph.New()
	for _, p := range packages {
		graph.AddPackage(p)
	}
	if fl, ok := led.(*ledger.FakeLedger); ok {
		for _, p := range packages {
			fl.PutPackage(p)
		}
	}

	resolver := NewLedgerResolver(led)
	catalog := mutator.NewCatalog(graph.AllFunctions())
	replay := mutator.New()
	pool := &mutator.MagicNumberPool{}
	solv := solverFor(cfg)

	exec := executor.New(cfg.CoverageMapSize, defaultOracles(), led, vm)

	return &FuzzLoop{
		Config:   cfg,
		Corpus:   store,
		Exec:     exec,
		Graph:    graph,
		Resolver: resolver,
		Catalog:  catalog,
		SeqMut:   mutator.NewSequenceMutator(catalog, graph, resolver, replay, rng),
		ArgMut:   mutator.NewArgMutator(solv, pool, replay, rng),
		Replay:   replay,
		Pool:     pool,
		Rng:      rng,
		Logger:   logger,
		Metrics:  metrics,
		Sender:   sender,
		GasID:    gasID,
		EpochMs:  uint64(time.Now().UnixMilli()),
	}
}

// LoadQueue populates the in-memory sampling queue from the corpus
// store; call once after New, before the first Run.
func (f *FuzzLoop) LoadQueue() error {
	q, err := f.Corpus.LoadQueue()
	if err != nil {
		return err
	}
	f.queue = q
	f.Stats.CorpusSize = uint64(len(q))
	if f.Metrics != nil {
		f.Metrics.CorpusSize.Set(float64(len(q)))
	}
	return nil
}

// Run drives cycles until Config.TimeLimit elapses (zero means run
// exactly one cycle off initialSeed and return), per spec.md §5
// "Cancellation / timeouts": the deadline is checked once per cycle
// against the monotonic clock. Every cycle samples a fresh seed from the
// live queue (spec.md §2 Flow: "FuzzLoop picks a seed PTB"), falling
// back to initialSeed whenever the queue is still empty.
func (f *FuzzLoop) Run(initialSeed *move.MoveSequence) error {
	start := time.Now()
	for {
		if f.Config.TimeLimit > 0 && time.Since(start) >= f.Config.TimeLimit {
			f.Logger.Info().Uint64("cycles", f.Stats.Cycles).Msg("time limit reached")
			return nil
		}

		if err := f.cycle(f.pickSeed(initialSeed)); err != nil {
			f.Logger.Warn().Err(err).Msg("cycle execution error, skipping feedback")
		}

		f.Stats.Cycles++
		if f.Metrics != nil {
			f.Metrics.CyclesTotal.Inc()
		}
		f.Logger.Info().
			Uint64("cycle", f.Stats.Cycles).
			Uint64("corpus_size", f.Stats.CorpusSize).
			Uint64("crashes", f.Stats.Crashes).
			Msg("status")

		if f.Config.TimeLimit == 0 {
			return nil
		}
	}
}

// pickSeed implements spec.md §2's per-cycle seed selection: uniformly
// at random from the live queue once it is non-empty, otherwise the
// caller-supplied initial seed.
func (f *FuzzLoop) pickSeed(initialSeed *move.MoveSequence) *move.MoveSequence {
	if len(f.queue) == 0 {
		return initialSeed
	}
	pick := f.queue[f.Rng.Intn(len(f.queue))]
	return &pick.Sequence
}

// cycle runs exactly one FuzzLoop iteration per spec.md §2's Flow
// paragraph: mutate the chosen seed, execute it, feed back the outcome.
func (f *FuzzLoop) cycle(seed *move.MoveSequence) error {
	next, ok, outcome, err := f.mutateAndRun(seed)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	f.feedback(next, outcome)
	return nil
}

// mutateAndRun selects SequenceMutator or ArgMutator with equal
// probability (the choice does not depend on the replay stage), produces
// a candidate PTB, and executes it.
func (f *FuzzLoop) mutateAndRun(seed *move.MoveSequence) (*move.MoveSequence, bool, *executor.GlobalOutcome, error) {
	cloned := cloneSequence(seed)
	data := f.buildObjectData(cloned)

	var mutated *move.MoveSequence
	var ok bool
	if f.Rng.Float64() < 0.5 {
		mutated, ok = f.SeqMut.Mutate(cloned, data, data.TypeOf)
	} else {
		mutated, ok = f.mutateArg(cloned)
	}
	if !ok {
		return nil, false, nil, nil
	}

	if err := mutated.Validate(f.Resolver); err != nil {
		return nil, false, nil, nil // invalid mutation: skip quietly, per spec.md §7 Synthesis failure handling
	}

	outcome, err := f.Exec.Run(mutated, f.Epoch, f.EpochMs, f.Sender, f.GasID)
	if err != nil {
		return nil, false, nil, err
	}
	return mutated, true, outcome, nil
}

// mutateArg picks the first call command with at least one live scalar
// Input-bound parameter and hands it to ArgMutator, per spec.md §4.6
// ArgMutator.
func (f *FuzzLoop) mutateArg(seq *move.MoveSequence) (*move.MoveSequence, bool) {
	for cmdIdx, cmd := range seq.Commands {
		if cmd.Kind != move.CommandCall || cmd.Call == nil {
			continue
		}
		abi, ok := f.Resolver.ResolveFunction(cmd.Call.Package, cmd.Call.Module, cmd.Call.Function)
		if !ok {
			continue
		}
		for pi, param := range abi.Params {
			if pi >= len(cmd.Call.Args) {
				break
			}
			if !isScalar(param) {
				continue
			}
			arg := cmd.Call.Args[pi]
			if arg.Kind != move.ArgInput {
				continue
			}
			target := mutator.ParamTarget{CmdIdx: cmdIdx, ParamIdx: pi, InputIdx: arg.I}
			args, logs := f.lastArgsAndLogs(abi.Ident(), cmdIdx)
			if f.ArgMut.MutateScalar(seq, abi, target, args, logs) {
				return seq, true
			}
		}
	}
	return seq, false
}

func isScalar(t move.SignatureToken) bool {
	switch t.Dereference().Kind {
	case move.KindStruct, move.KindVector:
		return false
	default:
		return true
	}
}

// lastArgsAndLogs extracts the previous cycle's per-call symbolic ints
// and comparison logs attributable to fnIdent, a best-effort reuse of
// stale constraints across cycles: cmdIdx is only approximately stable
// across mutations (an add/remove upstream can shift it), so a mismatch
// simply degrades ArgMutator to its magic-number/havoc fallback rather
// than being treated as an error.
func (f *FuzzLoop) lastArgsAndLogs(fnIdent move.Ident, cmdIdx int) (map[uint16]concolic.Sym, []concolic.Log) {
	if f.lastOutcome == nil || f.lastOutcome.Extra.Solver == nil {
		return nil, nil
	}
	con := f.lastOutcome.Extra.Solver
	var args map[uint16]concolic.Sym
	if cmdIdx >= 0 && cmdIdx < len(con.Args) {
		args = con.Args[cmdIdx]
	}
	logs := f.lastOutcome.Extra.Logs[fnIdent]
	return args, logs
}

// recordCallCounts increments the per-function invocation metric
// (SPEC_FULL.md §12 meta-tracking) for every Move call in seq.
func (f *FuzzLoop) recordCallCounts(seq *move.MoveSequence) {
	if f.Metrics == nil {
		return
	}
	for _, cmd := range seq.Commands {
		if cmd.Kind != move.CommandCall || cmd.Call == nil {
			continue
		}
		f.Metrics.CallCounts.WithLabelValues(cmd.Call.Module + "::" + cmd.Call.Function).Inc()
	}
}

// buildObjectData runs ObjectResolver.Build over seq using the
// executor's ledger, per spec.md §4.5.
func (f *FuzzLoop) buildObjectData(seq *move.MoveSequence) *objectresolver.Data {
	types, owners := objectInputTypes(f.Exec.Ledger, seq)
	return objectresolver.Build(seq, f.Resolver, f.GasID, types, owners)
}

// feedback implements spec.md §2's "FuzzLoop inspects the outcome,
// promotes the input to the corpus or crash set, and records a
// stage-replay snapshot if the mutator succeeded."
func (f *FuzzLoop) feedback(seq *move.MoveSequence, outcome *executor.GlobalOutcome) {
	fp := mutator.Fingerprint(seq)

	f.Replay.RecordOutcome(mutator.KindSequence, fp, mutator.Outcome{StageIdx: outcome.Extra.StageIdx})
	if outcome.Extra.Success {
		f.Replay.RecordSuccess(fp, seq)
	}

	for _, logsForFn := range outcome.Extra.Logs {
		for _, l := range logsForFn {
			f.Pool.Observe(l)
		}
	}

	f.recordCallCounts(seq)
	f.lastOutcome = outcome

	if outcome.Trace.Verdict == executor.VerdictCrash {
		f.promoteCrash(seq, outcome)
		return
	}

	if f.advancedCoverage() {
		f.promoteQueue(seq, outcome)
	}
}

func (f *FuzzLoop) advancedCoverage() bool {
	cur := f.Exec.Coverage.Bytes()
	if f.seenCoverage == nil {
		f.seenCoverage = make([]byte, len(cur))
	}
	advanced := false
	for i, b := range cur {
		if b != 0 && f.seenCoverage[i] == 0 {
			advanced = true
		}
		if b > f.seenCoverage[i] {
			f.seenCoverage[i] = b
		}
	}
	if advanced && f.Metrics != nil {
		edges := 0
		for _, b := range f.seenCoverage {
			if b != 0 {
				edges++
			}
		}
		f.Metrics.CoverageEdges.Set(float64(edges))
	}
	return advanced
}

func (f *FuzzLoop) promoteQueue(seq *move.MoveSequence, outcome *executor.GlobalOutcome) {
	in := corpus.NewInput(*seq)
	if f.Corpus.AlreadyPromoted(in.Metadata.Fingerprint) {
		return
	}
	in.Metadata.StageIdx = outcome.Extra.StageIdx
	in.Metadata.Generation = 1
	if err := f.Corpus.PutQueue(in); err != nil {
		f.Logger.Warn().Err(err).Msg("failed to write promoted queue input")
		return
	}
	f.queue = append(f.queue, in)
	f.Stats.CorpusSize++
	if f.Metrics != nil {
		f.Metrics.CorpusSize.Set(float64(len(f.queue)))
	}
}

func (f *FuzzLoop) promoteCrash(seq *move.MoveSequence, outcome *executor.GlobalOutcome) {
	in := corpus.NewInput(*seq)
	in.Metadata.StageIdx = outcome.Extra.StageIdx
	if err := f.Corpus.PutCrash(in); err != nil {
		f.Logger.Warn().Err(err).Msg("failed to write crash input")
	}
	f.Stats.Crashes++
	if f.Metrics != nil {
		f.Metrics.CrashesTotal.Inc()
	}
	for _, finding := range outcome.Trace.Findings {
		f.Logger.Error().
			Str("oracle", finding.Oracle).
			Str("severity", severityString(finding.Severity)).
			Msg(finding.Message)
	}
}

func severityString(s oracle.Severity) string {
	if s == oracle.SeverityCritical {
		return "critical"
	}
	return "minor"
}
