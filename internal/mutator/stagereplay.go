// Package mutator implements SequenceMutator, ArgMutator, and StageReplay
// (spec.md §4.6-4.7): the two top-level PTB mutation strategies and the
// iterative-deepening memory that lets repeated mutation rounds walk a
// failure point forward stage by stage. Grounded on the teacher's
// instruction-dispatch switch style in
// internal/vybium-starks-vm/vm/vm_instructions.go (one method per
// mutation kind, selected by a weighted/random dispatch).
package mutator

import (
	"github.com/movy/movefuzz/pkg/move"
)

// MaxReplayAttempts resets StageReplay back to stage 0 once reached
// (spec.md §4.7: "If attempts reach 30, reset to stage 0").
const MaxReplayAttempts = 30

// Kind discriminates which mutator produced/consumes a StageReplay slot.
type Kind uint8

const (
	KindSequence Kind = iota
	KindArg
)

// Action is what StageReplay.Next tells the caller to do.
type Action uint8

const (
	ActionFresh Action = iota
	ActionReplay
)

// Outcome is the result of one execution round, as fed back via
// RecordOutcome — mirrors the stage_idx carried by an execution's
// effects.status failure index (spec.md §4.3).
type Outcome struct {
	StageIdx *int
}

// StageReplay is a per-mutator-kind memory enabling iterative deepening
// over an execution's failure point (spec.md §4.7).
type StageReplay struct {
	lastKind        Kind
	haveKind        bool
	fingerprint     string
	cachedSeq       *move.MoveSequence
	stageIdx        int
	attempts        int
	lastOutcomeHad  bool
}

// New creates an empty StageReplay memory.
func New() *StageReplay { return &StageReplay{} }

// Next decides the next action for the given mutator kind and the
// current PTB's fingerprint, per spec.md §4.7's decision ladder.
func (r *StageReplay) Next(kind Kind, fingerprint string) (Action, int, *move.MoveSequence) {
	if r.cachedSeq == nil || fingerprint != r.fingerprint {
		return ActionFresh, 0, nil
	}
	if !r.haveKind || r.lastKind != kind {
		return ActionFresh, 0, nil
	}
	if !r.lastOutcomeHad {
		return ActionFresh, 0, nil
	}
	return ActionReplay, r.stageIdx, r.cachedSeq
}

// RecordOutcome advances the stage index per spec.md §4.7:
// "stage_idx ← max(previous+1, outcome.stage_idx), attempts += 1. If
// attempts reach 30, reset to stage 0."
func (r *StageReplay) RecordOutcome(kind Kind, fingerprint string, o Outcome) {
	r.lastKind = kind
	r.haveKind = true
	r.fingerprint = fingerprint

	if o.StageIdx == nil {
		r.lastOutcomeHad = false
		return
	}
	r.lastOutcomeHad = true
	next := r.stageIdx + 1
	if *o.StageIdx > next {
		next = *o.StageIdx
	}
	r.stageIdx = next
	r.attempts++
	if r.attempts >= MaxReplayAttempts {
		r.stageIdx = 0
		r.attempts = 0
	}
}

// RecordSuccess caches the successful PTB per spec.md §4.7's
// record_success(p).
func (r *StageReplay) RecordSuccess(fingerprint string, p *move.MoveSequence) {
	r.fingerprint = fingerprint
	r.cachedSeq = p
}
