package main

import (
	"github.com/spf13/cobra"

	"github.com/movy/movefuzz/internal/executor"
)

// newTriageCmd replays a stored crash and reports whether it still
// reproduces. Unlike `replay` (informational, always exits 0 on a clean
// run), `triage` exits non-zero when the crash verdict reproduces, so it
// composes into a shell pipeline ("for f in crashes/*.json; do movefuzz
// triage $(basename $f .json) || echo still broken; done").
func newTriageCmd() *cobra.Command {
	var shared sharedFlags

	cmd := &cobra.Command{
		Use:   "triage <id>",
		Short: "Replay a stored crash and report whether it still reproduces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fl, err := buildLoop(&shared)
			if err != nil {
				return err
			}
			in, err := fl.Corpus.LoadByID("crashes", args[0])
			if err != nil {
				return err
			}
			outcome, err := fl.Replay(in)
			if err != nil {
				return err
			}
			printOutcome(cmd, args[0], outcome)
			if outcome.Trace.Verdict == executor.VerdictCrash {
				cmd.SilenceUsage = true
				return errReproduced
			}
			return nil
		},
	}

	shared.register(cmd.Flags())
	return cmd
}

type triageError struct{ msg string }

func (e *triageError) Error() string { return e.msg }

var errReproduced = &triageError{"triage: crash reproduced"}
