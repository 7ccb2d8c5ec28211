package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/movy/movefuzz/internal/executor"
	"github.com/movy/movefuzz/internal/oracle"
)

func newReplayCmd() *cobra.Command {
	var shared sharedFlags
	var kind string

	cmd := &cobra.Command{
		Use:   "replay <id>",
		Short: "Replay a single stored corpus input against the ledger with no mutation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fl, err := buildLoop(&shared)
			if err != nil {
				return err
			}
			outcome, err := fl.ReplayByID(kind, args[0])
			if err != nil {
				return err
			}
			printOutcome(cmd, args[0], outcome)
			return nil
		},
	}

	shared.register(cmd.Flags())
	cmd.Flags().StringVar(&kind, "kind", "queue", `which corpus directory to load from: "queue" or "crashes"`)
	return cmd
}

// printOutcome reports a GlobalOutcome the way an operator would want
// from `replay`/`triage`: the verdict, then every oracle finding in
// pipeline order.
func printOutcome(cmd *cobra.Command, id string, outcome *executor.GlobalOutcome) {
	out := cmd.OutOrStdout()
	verdict := "ok"
	if outcome.Trace.Verdict == executor.VerdictCrash {
		verdict = "CRASH"
	}
	fmt.Fprintf(out, "%s: verdict=%s gas_used=%d\n", id, verdict, outcome.Exec.Gas.Used)
	for _, f := range outcome.Trace.Findings {
		fmt.Fprintf(out, "  [%s/%s] %s\n", f.Oracle, severityLabel(f.Severity), f.Message)
	}
}

func severityLabel(s oracle.Severity) string {
	if s == oracle.SeverityCritical {
		return "critical"
	}
	return "minor"
}
