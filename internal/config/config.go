// Package config loads and validates FuzzConfig, following the teacher's
// Config/WithXxx() builder idiom (internal/vybium-starks-vm/utils/
// config.go) generalized from STARK-proof parameters to fuzz-loop
// parameters: time budget, worker count, corpus/crash output directories,
// solver timeout override, initial seed paths, and stage-score table
// overrides (SPEC_FULL.md §10.3).
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FuzzConfig is the fuzzer's top-level configuration.
type FuzzConfig struct {
	// TimeLimit bounds the fuzz loop's monotonic-clock wall time
	// (spec.md §5 "Cancellation / timeouts"); zero means the loop runs
	// exactly one cycle (see fuzzloop.FuzzLoop.Run).
	TimeLimit time.Duration `yaml:"time_limit"`

	// WorkerCount is always 1 today (spec.md §5: "single-threaded
	// cooperative"), but configurable for a future parallel-corpus mode
	// where each worker owns its own FuzzLoop.
	WorkerCount int `yaml:"worker_count"`

	CorpusDir  string `yaml:"corpus_dir"`
	CrashDir   string `yaml:"crash_dir"`
	SeedPaths  []string `yaml:"seed_paths"`

	// SolverTimeout is loaded from YAML but not applied: internal/solver
	// always uses its DefaultTimeout constant.
	SolverTimeout time.Duration `yaml:"solver_timeout"`

	// CompactCorpus switches internal/corpus.Store to CBOR encoding
	// (SPEC_FULL.md §11).
	CompactCorpus bool `yaml:"compact_corpus"`

	// BboltIndex enables internal/corpus.Store's optional promoted-
	// fingerprint restart cache.
	BboltIndex bool `yaml:"bbolt_index"`

	// InitFunctionScore / ScoreTick / ScoreDecay are loaded from YAML but
	// not applied: internal/mutator always uses its package constants of
	// the same names.
	InitFunctionScore float64 `yaml:"init_function_score"`
	ScoreTick         float64 `yaml:"score_tick"`
	ScoreDecay        float64 `yaml:"score_decay"`

	// CoverageMapSize is rounded up to a power of two by
	// internal/executor.NewCoverageMap.
	CoverageMapSize int `yaml:"coverage_map_size"`
}

// DefaultConfig returns the configuration used when no YAML file is
// supplied.
func DefaultConfig() *FuzzConfig {
	return &FuzzConfig{
		WorkerCount:     1,
		CorpusDir:       "./corpus",
		CrashDir:        "./corpus/crashes",
		CoverageMapSize: 65536,
	}
}

// Load reads a FuzzConfig from a YAML file at path, then applies any
// MOVEFUZZ_-prefixed environment variable overrides, mirroring the
// teacher's Clone-then-With* construction flow adapted to an external
// file + env source instead of in-code builder calls.
func Load(path string) (*FuzzConfig, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "config: reading %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "config: parsing %s", path)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *FuzzConfig) {
	if v := os.Getenv("MOVEFUZZ_TIME_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TimeLimit = d
		}
	}
	if v := os.Getenv("MOVEFUZZ_CORPUS_DIR"); v != "" {
		cfg.CorpusDir = v
	}
	if v := os.Getenv("MOVEFUZZ_CRASH_DIR"); v != "" {
		cfg.CrashDir = v
	}
	if v := os.Getenv("MOVEFUZZ_COMPACT_CORPUS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.CompactCorpus = b
		}
	}
}

// Validate checks FuzzConfig's boundary invariants.
func (c *FuzzConfig) Validate() error {
	if c.WorkerCount <= 0 {
		return errors.New("config: worker_count must be positive")
	}
	if c.CorpusDir == "" {
		return errors.New("config: corpus_dir must be set")
	}
	if c.CrashDir == "" {
		return errors.New("config: crash_dir must be set")
	}
	if c.CoverageMapSize <= 0 {
		return errors.New("config: coverage_map_size must be positive")
	}
	return nil
}

// WithTimeLimit sets TimeLimit and returns c for chaining.
func (c *FuzzConfig) WithTimeLimit(d time.Duration) *FuzzConfig {
	c.TimeLimit = d
	return c
}

// WithCorpusDir sets CorpusDir and returns c for chaining.
func (c *FuzzConfig) WithCorpusDir(dir string) *FuzzConfig {
	c.CorpusDir = dir
	return c
}

// WithCrashDir sets CrashDir and returns c for chaining.
func (c *FuzzConfig) WithCrashDir(dir string) *FuzzConfig {
	c.CrashDir = dir
	return c
}

// WithSeedPaths sets SeedPaths and returns c for chaining.
func (c *FuzzConfig) WithSeedPaths(paths []string) *FuzzConfig {
	c.SeedPaths = paths
	return c
}

// WithCompactCorpus sets CompactCorpus and returns c for chaining.
func (c *FuzzConfig) WithCompactCorpus(compact bool) *FuzzConfig {
	c.CompactCorpus = compact
	return c
}

// Clone creates a deep copy of c.
func (c *FuzzConfig) Clone() *FuzzConfig {
	cp := *c
	cp.SeedPaths = append([]string(nil), c.SeedPaths...)
	return &cp
}
