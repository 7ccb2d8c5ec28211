// Package corpus implements the on-disk queue/crash corpus (spec.md §6)
// plus an optional bbolt-backed index that remembers which fingerprints
// have already been promoted so a restarted FuzzLoop doesn't reprocess a
// queue directory from scratch. Grounded on medusa's on-domain corpus
// directory layout (manifest-only reference; reimplemented here) and the
// teacher's `utils/config.go` builder idiom for Corpus construction.
package corpus

import (
	"encoding/json"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/movy/movefuzz/internal/mutator"
	"github.com/movy/movefuzz/pkg/move"
)

// Metadata is the non-sequence bookkeeping carried alongside a stored
// PTB: its fingerprint (for StageReplay continuity across restarts), the
// stage it last failed at, and an operator-facing generation counter.
type Metadata struct {
	Fingerprint string  `json:"fingerprint" cbor:"fingerprint"`
	StageIdx    *int    `json:"stage_idx,omitempty" cbor:"stage_idx,omitempty"`
	Generation  int     `json:"generation" cbor:"generation"`
	ParentID    *string `json:"parent_id,omitempty" cbor:"parent_id,omitempty"`
}

// Input is the stored `MoveFuzzInput`: a sequence plus metadata,
// per spec.md §6's corpus file contract. ID defaults to the 16-hex
// digest of the sequence (`mutator.Fingerprint`); inputs built by
// NewSeededInput (used by fuzzloop.FuzzLoop.Seed) carry a freshly
// generated `uuid.UUID` string instead, per SPEC_FULL.md §11.
type Input struct {
	ID       string       `json:"id" cbor:"id"`
	Sequence move.MoveSequence `json:"sequence" cbor:"sequence"`
	Metadata Metadata     `json:"metadata" cbor:"metadata"`
}

// NewInput builds an Input, defaulting ID to the sequence's fingerprint
// digest truncated to 16 hex characters, per spec.md §6.
func NewInput(seq move.MoveSequence) Input {
	fp := mutator.Fingerprint(&seq)
	id := fp
	if len(id) > 16 {
		id = id[:16]
	}
	return Input{ID: id, Sequence: seq, Metadata: Metadata{Fingerprint: fp}}
}

// NewSeededInput builds an Input with an explicit uuid.UUID identity,
// used when seeding the corpus interactively rather than deriving the ID
// from content.
func NewSeededInput(seq move.MoveSequence) Input {
	fp := mutator.Fingerprint(&seq)
	return Input{ID: uuid.New().String(), Sequence: seq, Metadata: Metadata{Fingerprint: fp}}
}

// Marshal encodes an Input as JSON (the spec-mandated round-trip format)
// or CBOR when compact is true (SPEC_FULL.md §11 CompactCorpus).
func (in Input) Marshal(compact bool) ([]byte, error) {
	if compact {
		return cbor.Marshal(in)
	}
	return json.MarshalIndent(in, "", "  ")
}

// Unmarshal decodes bytes into an Input, auto-detecting CBOR (which never
// starts with '{' or whitespace-then-'{' for this schema) versus JSON.
func Unmarshal(data []byte) (Input, error) {
	var in Input
	if len(data) > 0 && looksLikeJSON(data) {
		err := json.Unmarshal(data, &in)
		return in, err
	}
	err := cbor.Unmarshal(data, &in)
	return in, err
}

func looksLikeJSON(data []byte) bool {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '{', '[':
			return true
		default:
			return false
		}
	}
	return false
}
