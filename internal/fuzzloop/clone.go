package fuzzloop

import "github.com/movy/movefuzz/pkg/move"

// cloneSequence shallow-copies seq's Inputs/Commands slices so a mutator
// call that appends or removes in place never aliases the caller's
// stored corpus entry, mirroring internal/mutator's own cloneSequence.
func cloneSequence(seq *move.MoveSequence) *move.MoveSequence {
	if seq == nil {
		return &move.MoveSequence{}
	}
	return &move.MoveSequence{
		Inputs:   append([]move.InputArgument(nil), seq.Inputs...),
		Commands: append([]move.Command(nil), seq.Commands...),
	}
}
