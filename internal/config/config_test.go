package config

import (
	"testing"
)

func TestLoadRequiresInputFile(t *testing.T) {
	t.Setenv("INPUT_FILE", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error when INPUT_FILE is unset")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("INPUT_FILE", "data/cdi.csv")
	t.Setenv("SEED", "")
	t.Setenv("RUN_STABILITY", "")
	t.Setenv("MAX_PARALLEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Data.InputFile != "data/cdi.csv" {
		t.Errorf("input file = %q", cfg.Data.InputFile)
	}
	if cfg.Analysis.Seed != 42 {
		t.Errorf("seed = %d, want default 42", cfg.Analysis.Seed)
	}
	if cfg.Analysis.RunStability {
		t.Error("stability check should default off")
	}
	if cfg.Analysis.MaxParallel != 4 {
		t.Errorf("max parallel = %d, want default 4", cfg.Analysis.MaxParallel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("INPUT_FILE", "sim.csv")
	t.Setenv("SEED", "7")
	t.Setenv("RUN_STABILITY", "true")
	t.Setenv("MAX_PARALLEL", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Analysis.Seed != 7 || !cfg.Analysis.RunStability || cfg.Analysis.MaxParallel != 2 {
		t.Errorf("overrides not applied: %+v", cfg.Analysis)
	}
}

func TestLoadRejectsInvalidParallelism(t *testing.T) {
	t.Setenv("INPUT_FILE", "sim.csv")
	t.Setenv("MAX_PARALLEL", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for MAX_PARALLEL < 1")
	}
}
