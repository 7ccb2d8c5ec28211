package fuzzloop

import (
	"math/rand"
	"testing"

	"github.com/rs/zerolog"

	"github.com/movy/movefuzz/internal/concolic"
	"github.com/movy/movefuzz/internal/config"
	"github.com/movy/movefuzz/internal/corpus"
	"github.com/movy/movefuzz/internal/executor"
	"github.com/movy/movefuzz/internal/ledger"
	"github.com/movy/movefuzz/internal/telemetry"
	"github.com/movy/movefuzz/internal/tracer"
	"github.com/movy/movefuzz/pkg/move"
)

// noopVM succeeds every execution without touching the tracer, enough to
// exercise FuzzLoop's cycle/feedback plumbing without a real Move VM.
type noopVM struct{}

func (noopVM) Execute(seq *move.MoveSequence, led ledger.View, sender, gasID move.Address, epoch, epochMs uint64, tr *tracer.Tracer) (executor.Effects, error) {
	tr.OpenFrame(concolic.OpenFrameEvent{ParamCount: 0}, move.Address{1})
	tr.CloseFrame(concolic.CloseFrameEvent{})
	return executor.Effects{Status: executor.Status{Kind: executor.StatusSuccess}}, nil
}

func newTestLoop(t *testing.T) *FuzzLoop {
	t.Helper()
	dir := t.TempDir()
	store, err := corpus.Open(dir, false, false)
	if err != nil {
		t.Fatalf("corpus.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := config.DefaultConfig().WithCorpusDir(dir).WithCrashDir(dir)
	led := ledger.NewFakeLedger()
	rng := rand.New(rand.NewSource(1))
	logger := zerolog.Nop()

	fl := New(cfg, store, led, noopVM{}, nil, move.Address{9}, move.Address{2}, rng, logger, telemetry.NewMetrics())
	if err := fl.LoadQueue(); err != nil {
		t.Fatalf("LoadQueue: %v", err)
	}
	return fl
}

func TestPickSeedFallsBackToInitialWhenQueueEmpty(t *testing.T) {
	fl := newTestLoop(t)
	seed := &move.MoveSequence{}
	got := fl.pickSeed(seed)
	if got != seed {
		t.Fatalf("expected fallback to the initial seed pointer when queue is empty")
	}
}

func TestPickSeedSamplesFromQueueOnceSeeded(t *testing.T) {
	fl := newTestLoop(t)
	seq := move.MoveSequence{Inputs: []move.InputArgument{{Kind: move.InputPureU64, PureBytes: []byte{1}}}}
	if err := fl.Seed([]move.MoveSequence{seq}, false); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	got := fl.pickSeed(&move.MoveSequence{})
	if len(got.Inputs) != 1 {
		t.Fatalf("expected the seeded sequence to be sampled, got %+v", got)
	}
}

func TestRunZeroTimeLimitExecutesExactlyOneCycle(t *testing.T) {
	fl := newTestLoop(t)
	seed := &move.MoveSequence{}
	if err := fl.Run(seed); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fl.Stats.Cycles != 1 {
		t.Fatalf("expected exactly one cycle with a zero time limit, got %d", fl.Stats.Cycles)
	}
}

func TestAdvancedCoverageDetectsFirstNonZeroByte(t *testing.T) {
	fl := newTestLoop(t)
	fl.Exec.Coverage.Calibrate()
	if !fl.advancedCoverage() {
		t.Fatalf("expected the calibration sentinel to count as new coverage on first observation")
	}
	if fl.advancedCoverage() {
		t.Fatalf("expected no further advance once the sentinel byte has already been merged")
	}
}

func TestReplayRunsStoredInputWithoutMutation(t *testing.T) {
	fl := newTestLoop(t)
	in := corpus.NewInput(move.MoveSequence{})
	outcome, err := fl.Replay(in)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if outcome.Trace.Verdict != executor.VerdictOk {
		t.Fatalf("expected Ok verdict from a clean replay")
	}
}
