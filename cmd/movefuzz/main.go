// Command movefuzz is the thinnest possible cobra/pflag front end over
// internal/fuzzloop (spec.md §1's explicit Non-goal: "the command-line
// front end" is out of core scope, treated as an external collaborator
// interfacing with the core through internal/fuzzloop's exported API
// only). No fuzzing logic lives in this package — every subcommand
// wires flags into internal/config, internal/corpus, internal/ledger,
// and internal/fuzzloop and nothing more.
//
// Grounded on the teacher's cmd/vybium-vm-prover/main.go shape (parse
// input, build the engine, run it, report a result, pick an exit code)
// generalized from a single stdin-driven invocation into three
// subcommands sharing one root command, per SPEC_FULL.md's cobra/pflag
// wiring (medusa / oriys-nova's CLI dependency).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "movefuzz",
		Short: "Coverage-guided fuzzer for Move-family programmable transaction bundles",
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newReplayCmd())
	root.AddCommand(newTriageCmd())
	return root
}
