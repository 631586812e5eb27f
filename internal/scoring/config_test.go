package scoring

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Version == "" {
		t.Fatal("embedded config has no version")
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("embedded config invalid: %v", err)
	}
}

func TestLoadConfigEmptyPathFallsBack(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") returned error: %v", err)
	}
	if cfg.Version != DefaultConfig().Version {
		t.Fatalf("expected embedded defaults, got version %q", cfg.Version)
	}
}

func TestLoadConfigRejectsBadWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	bad := []byte("version: test\nweights:\n  budget: 0.9\n  timeline: 0.9\n")
	if err := os.WriteFile(path, bad, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for weights that do not sum to 1.0")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
