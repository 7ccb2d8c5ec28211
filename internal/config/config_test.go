package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig() should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*FuzzConfig)
		expectErr bool
	}{
		{"valid default", func(*FuzzConfig) {}, false},
		{"zero worker count", func(c *FuzzConfig) { c.WorkerCount = 0 }, true},
		{"empty corpus dir", func(c *FuzzConfig) { c.CorpusDir = "" }, true},
		{"empty crash dir", func(c *FuzzConfig) { c.CrashDir = "" }, true},
		{"zero coverage map size", func(c *FuzzConfig) { c.CoverageMapSize = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.expectErr && err == nil {
				t.Fatalf("expected an error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestLoadFromYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fuzz.yaml")
	contents := []byte("corpus_dir: /tmp/custom-corpus\nworker_count: 1\ncompact_corpus: true\n")
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CorpusDir != "/tmp/custom-corpus" {
		t.Fatalf("expected corpus_dir override, got %q", cfg.CorpusDir)
	}
	if !cfg.CompactCorpus {
		t.Fatalf("expected compact_corpus true")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := DefaultConfig().WithSeedPaths([]string{"a.json"})
	clone := cfg.Clone()
	clone.SeedPaths[0] = "b.json"
	if cfg.SeedPaths[0] != "a.json" {
		t.Fatalf("expected Clone to deep-copy SeedPaths, original was mutated")
	}
}
