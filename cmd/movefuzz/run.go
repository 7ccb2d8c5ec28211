package main

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/movy/movefuzz/pkg/move"
)

func newRunCmd() *cobra.Command {
	var shared sharedFlags
	var seedPath string
	var timeLimit time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the fuzz loop against a ledger fixture until the time limit elapses",
		RunE: func(cmd *cobra.Command, args []string) error {
			fl, err := buildLoop(&shared)
			if err != nil {
				return err
			}
			if timeLimit > 0 {
				fl.Config.TimeLimit = timeLimit
			}

			var initial move.MoveSequence
			if seedPath != "" {
				seqs, err := loadSeedSequences(seedPath)
				if err != nil {
					return err
				}
				if err := fl.Seed(seqs, true); err != nil {
					return errors.Wrap(err, "seeding corpus")
				}
				if len(seqs) > 0 {
					initial = seqs[0]
				}
			}

			if err := fl.Run(&initial); err != nil {
				return err
			}

			fl.Logger.Info().
				Uint64("cycles", fl.Stats.Cycles).
				Uint64("crashes", fl.Stats.Crashes).
				Uint64("corpus_size", fl.Stats.CorpusSize).
				Msg("run complete")
			return nil
		},
	}

	shared.register(cmd.Flags())
	cmd.Flags().StringVar(&seedPath, "seed", "", "path to a JSON array of seed MoveSequences")
	cmd.Flags().DurationVar(&timeLimit, "time-limit", 0, "wall-clock budget; 0 runs exactly one cycle")
	return cmd
}
