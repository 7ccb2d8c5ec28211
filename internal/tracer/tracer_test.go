package tracer

import (
	"testing"

	"github.com/movy/movefuzz/internal/concolic"
	"github.com/movy/movefuzz/internal/oracle"
	"github.com/movy/movefuzz/pkg/move"
)

type recordingSink struct {
	hits int
}

func (s *recordingSink) Hit(prevPC, pc uint64, pkg move.Address) { s.hits++ }

func TestBeforeInstructionWritesCoverageOnceArmed(t *testing.T) {
	sink := &recordingSink{}
	con := concolic.New()
	tr := New(con, oracle.NewPipeline(), sink, nil, &oracle.State{})

	tr.OpenFrame(concolic.OpenFrameEvent{ParamCount: 0}, move.Address{1})
	tr.BeforeInstruction(concolic.InstrEvent{PC: 1, Op: concolic.OpLdTrue}, 1, move.Ident{})
	if sink.hits != 1 {
		t.Fatalf("expected 1 coverage hit after an armed OpenFrame, got %d", sink.hits)
	}

	// Not armed: the next instruction shouldn't add another hit.
	tr.BeforeInstruction(concolic.InstrEvent{PC: 2, Op: concolic.OpPop}, 0, move.Ident{})
	if sink.hits != 1 {
		t.Fatalf("expected no additional coverage hit while unarmed, got %d", sink.hits)
	}
}

func TestBrTrueArmsNextCoverageWrite(t *testing.T) {
	sink := &recordingSink{}
	con := concolic.New()
	tr := New(con, oracle.NewPipeline(), sink, nil, &oracle.State{})

	tr.OpenFrame(concolic.OpenFrameEvent{ParamCount: 0}, move.Address{1})
	tr.BeforeInstruction(concolic.InstrEvent{PC: 1, Op: concolic.OpLdTrue}, 1, move.Ident{})
	tr.BeforeInstruction(concolic.InstrEvent{PC: 2, Op: concolic.OpBrTrue}, 0, move.Ident{})
	if sink.hits != 1 {
		t.Fatalf("expected still 1 hit at the branch instruction itself, got %d", sink.hits)
	}
	tr.BeforeInstruction(concolic.InstrEvent{PC: 3, Op: concolic.OpLdTrue}, 1, move.Ident{})
	if sink.hits != 2 {
		t.Fatalf("expected the instruction after a branch to record a coverage hit, got %d", sink.hits)
	}
}

func TestOnRawEventMoveCallStartResetsShadowStackAndLocals(t *testing.T) {
	con := concolic.New()
	tr := New(con, oracle.NewPipeline(), nil, nil, &oracle.State{})
	tr.OpenFrame(concolic.OpenFrameEvent{ParamCount: 2, IsIntParam: []bool{true, true}}, move.Address{})
	if len(con.Locals) != 1 {
		t.Fatalf("sanity: expected a root locals frame after OpenFrame, got %d", len(con.Locals))
	}

	tr.OnRawEvent("MoveCallStart")
	if len(con.Locals) != 0 {
		t.Fatalf("expected Locals cleared on MoveCallStart, got %d frames", len(con.Locals))
	}
	if con.StackLen() != 0 {
		t.Fatalf("expected Stack cleared on MoveCallStart")
	}
}
