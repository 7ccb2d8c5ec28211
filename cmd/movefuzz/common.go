package main

import (
	"math/rand"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/movy/movefuzz/internal/config"
	"github.com/movy/movefuzz/internal/corpus"
	"github.com/movy/movefuzz/internal/fuzzloop"
	"github.com/movy/movefuzz/internal/ledger"
	"github.com/movy/movefuzz/internal/refvm"
	"github.com/movy/movefuzz/internal/telemetry"
	"github.com/movy/movefuzz/pkg/move"
)

// sharedFlags is the flag set every subcommand needs to stand a
// FuzzLoop up: where the corpus lives, which ledger fixture to treat as
// "on-chain", and the sender/gas identities a PTB executes under.
type sharedFlags struct {
	configPath string
	corpusDir  string
	ledgerPath string
	sender     string
	gasID      string
	interactive bool
	seed       int64
}

func (f *sharedFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "path to a FuzzConfig YAML file")
	fs.StringVar(&f.corpusDir, "corpus-dir", "", "override FuzzConfig.CorpusDir")
	fs.StringVar(&f.ledgerPath, "ledger", "", "path to a ledger fixture JSON file (required)")
	fs.StringVar(&f.sender, "sender", "0x9", "hex address the PTB executes as")
	fs.StringVar(&f.gasID, "gas-object", "0x2", "hex address of the gas coin object")
	fs.BoolVar(&f.interactive, "interactive", false, "use the console log writer instead of JSON")
	fs.Int64Var(&f.seed, "rng-seed", 1, "PRNG seed for reproducible mutation decisions")
}

// buildLoop loads config, the ledger fixture, and the corpus store,
// then constructs a FuzzLoop wired to internal/refvm's reference VM
// (see that package's doc comment: a real Move VM remains out of core
// scope and is swapped in by a production deployment).
func buildLoop(f *sharedFlags) (*fuzzloop.FuzzLoop, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.corpusDir != "" {
		cfg.WithCorpusDir(f.corpusDir).WithCrashDir(f.corpusDir)
	}

	if f.ledgerPath == "" {
		return nil, errors.New("--ledger is required")
	}
	led, packages, err := loadLedgerFixture(f.ledgerPath)
	if err != nil {
		return nil, err
	}

	store, err := corpus.Open(cfg.CorpusDir, cfg.CompactCorpus, cfg.BboltIndex)
	if err != nil {
		return nil, errors.Wrap(err, "opening corpus store")
	}

	sender, err := move.AddressFromHex(f.sender)
	if err != nil {
		return nil, errors.Wrap(err, "--sender")
	}
	gasID, err := move.AddressFromHex(f.gasID)
	if err != nil {
		return nil, errors.Wrap(err, "--gas-object")
	}

	rng := rand.New(rand.NewSource(f.seed))
	logger := telemetry.NewLogger(f.interactive)
	metrics := telemetry.NewMetrics()

	resolver := fuzzloop.NewLedgerResolver(led)
	vm := refvm.New(resolver, 0)

	fl := fuzzloop.New(cfg, store, ledgerView(led), vm, packages, sender, gasID, rng, logger, metrics)
	if err := fl.LoadQueue(); err != nil {
		return nil, errors.Wrap(err, "loading corpus queue")
	}
	return fl, nil
}

// ledgerView exists purely so buildLoop's call to fuzzloop.New reads as
// passing a ledger.View, matching the signature without an explicit
// type assertion at each call site.
func ledgerView(led *ledger.FakeLedger) ledger.View { return led }
