package mutator

import (
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/movy/movefuzz/pkg/move"
)

// Fingerprint computes StageReplay's hash(sequence) key (spec.md §4.7).
// blake2b is already part of the ambient fingerprinting stack used by
// internal/concolic and the teacher's golang.org/x/crypto dependency;
// reusing it here avoids introducing a second hash primitive for the
// same "identify this PTB" concern.
func Fingerprint(seq *move.MoveSequence) string {
	h, _ := blake2b.New256(nil)
	for _, in := range seq.Inputs {
		fmt.Fprintf(h, "in:%d:%x;", in.Kind, in.PureBytes)
	}
	for _, cmd := range seq.Commands {
		fmt.Fprintf(h, "cmd:%d;", cmd.Kind)
		if cmd.Call != nil {
			fmt.Fprintf(h, "call:%s:%s:%s;", cmd.Call.Package, cmd.Call.Module, cmd.Call.Function)
			for _, a := range cmd.Call.Args {
				fmt.Fprintf(h, "arg:%s;", a.String())
			}
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
