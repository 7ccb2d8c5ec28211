package executor

import (
	"testing"

	"github.com/movy/movefuzz/internal/concolic"
	"github.com/movy/movefuzz/internal/ledger"
	"github.com/movy/movefuzz/internal/oracle"
	"github.com/movy/movefuzz/internal/tracer"
	"github.com/movy/movefuzz/pkg/move"
)

func TestNextPow2(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 5: 8, 1024: 1024, 1025: 2048}
	for in, want := range cases {
		if got := nextPow2(in); got != want {
			t.Fatalf("nextPow2(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestCoverageMapCalibrationSentinel(t *testing.T) {
	c := NewCoverageMap(64)
	if c.Bytes()[0] != 0 {
		t.Fatalf("expected byte 0 to start zeroed")
	}
	c.Calibrate()
	if c.Bytes()[0] != 1 {
		t.Fatalf("expected calibration sentinel to set byte 0 to 1")
	}
}

func TestCoverageMapHitSaturatesAndResets(t *testing.T) {
	c := NewCoverageMap(16)
	pkg := move.Address{1}
	c.Hit(0, 5, pkg)
	first := append([]byte(nil), c.Bytes()...)
	nonZero := false
	for _, b := range first {
		if b != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		t.Fatalf("expected Hit to set a non-zero byte")
	}
	c.Reset()
	for _, b := range c.Bytes() {
		if b != 0 {
			t.Fatalf("expected Reset to zero the map, got %v", c.Bytes())
		}
	}
}

// fakeVM drives two instructions through the tracer, then reports
// success.
type fakeVM struct {
	executeErr error
}

func (v *fakeVM) Execute(seq *move.MoveSequence, led ledger.View, sender, gasID move.Address, epoch, epochMs uint64, tr *tracer.Tracer) (Effects, error) {
	if v.executeErr != nil {
		return Effects{}, v.executeErr
	}
	tr.OpenFrame(concolic.OpenFrameEvent{ParamCount: 0}, move.Address{1})
	tr.BeforeInstruction(concolic.InstrEvent{PC: 1, Op: concolic.OpLdTrue}, 1, move.Ident{})
	tr.BeforeInstruction(concolic.InstrEvent{PC: 2, Op: concolic.OpPop}, 0, move.Ident{})
	tr.CloseFrame(concolic.CloseFrameEvent{})
	return Effects{Status: Status{Kind: StatusSuccess}, Gas: GasStatus{Used: 10, Budget: 100}}, nil
}

func TestExecutorRunSucceedsAndRecordsCoverage(t *testing.T) {
	led := ledger.NewFakeLedger()
	ex := New(64, oracle.NewPipeline(), led, &fakeVM{})

	seq := &move.MoveSequence{}
	outcome, err := ex.Run(seq, 1, 1000, move.Address{9}, move.Address{0x2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Trace.Verdict != VerdictOk {
		t.Fatalf("expected Ok verdict, got %v", outcome.Trace.Verdict)
	}
	if !outcome.Extra.Success {
		t.Fatalf("expected Extra.Success true")
	}
	if outcome.Extra.StageIdx != nil {
		t.Fatalf("expected nil StageIdx on success")
	}
	if ex.Coverage.Bytes()[0] != 1 {
		t.Fatalf("expected calibration sentinel to remain set after a successful run")
	}
}

func TestExecutorRunResetsCoverageOnHardFailure(t *testing.T) {
	led := ledger.NewFakeLedger()
	ex := New(64, oracle.NewPipeline(), led, &fakeVM{executeErr: errBoom})

	seq := &move.MoveSequence{}
	_, err := ex.Run(seq, 1, 1000, move.Address{9}, move.Address{0x2})
	if err == nil {
		t.Fatalf("expected an error from a hard VM failure")
	}
	for _, b := range ex.Coverage.Bytes() {
		if b != 0 {
			t.Fatalf("expected coverage map reset to zeros on hard failure, got %v", ex.Coverage.Bytes())
		}
	}
}

func TestExecutorRunRecordsFailingCommandAsStageIdx(t *testing.T) {
	led := ledger.NewFakeLedger()
	vm := &abortingVM{}
	ex := New(64, oracle.NewPipeline(), led, vm)

	seq := &move.MoveSequence{}
	outcome, err := ex.Run(seq, 1, 1000, move.Address{9}, move.Address{0x2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Trace.Verdict != VerdictOk {
		t.Fatalf("a Move abort alone should not elevate verdict to Crash")
	}
	if outcome.Extra.StageIdx == nil || *outcome.Extra.StageIdx != 2 {
		t.Fatalf("expected StageIdx 2, got %v", outcome.Extra.StageIdx)
	}
}

type abortingVM struct{}

func (abortingVM) Execute(seq *move.MoveSequence, led ledger.View, sender, gasID move.Address, epoch, epochMs uint64, tr *tracer.Tracer) (Effects, error) {
	cmd := 2
	return Effects{Status: Status{Kind: StatusFailure, Command: &cmd}}, nil
}

type boomError struct{}

func (boomError) Error() string { return "ledger object missing" }

var errBoom = boomError{}
