package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	if err != nil {
		t.Fatalf("Load returned error for missing file: %v", err)
	}
	if cfg.Pipeline.StepMaxAttempts != 3 {
		t.Fatalf("expected default step_max_attempts 3, got %d", cfg.Pipeline.StepMaxAttempts)
	}
	if cfg.Worker.Concurrency != 4 {
		t.Fatalf("expected default concurrency 4, got %d", cfg.Worker.Concurrency)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	body := "pipeline:\n  step_max_attempts: 7\ntiers:\n  free:\n    model: test-model\n    daily_note_limit: 1\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.StepMaxAttempts != 7 {
		t.Fatalf("expected step_max_attempts 7, got %d", cfg.Pipeline.StepMaxAttempts)
	}
	if got := cfg.Tier("free"); got.Model != "test-model" || got.DailyNoteLimit != 1 {
		t.Fatalf("free tier not overridden: %+v", got)
	}
	// untouched defaults survive a partial file
	if cfg.Worker.MaxAttempts != 5 {
		t.Fatalf("expected default max_attempts 5, got %d", cfg.Worker.MaxAttempts)
	}
}

func TestTierFallsBackToFree(t *testing.T) {
	cfg := Default()
	got := cfg.Tier("platinum")
	if got.Model != cfg.Tiers["free"].Model || got.DailyNoteLimit != cfg.Tiers["free"].DailyNoteLimit {
		t.Fatalf("unknown tier should fall back to free, got %+v", got)
	}
}

func TestEnvOverrideClampsToMinimums(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "0")
	t.Setenv("PIPELINE_STEP_MAX_ATTEMPTS", "-2")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Worker.Concurrency != 1 {
		t.Fatalf("concurrency should clamp to 1, got %d", cfg.Worker.Concurrency)
	}
	if cfg.Pipeline.StepMaxAttempts != 1 {
		t.Fatalf("step attempts should clamp to 1, got %d", cfg.Pipeline.StepMaxAttempts)
	}
}

func TestDurationAccessors(t *testing.T) {
	p := PipelineConfig{StepBackoffBaseMS: 250, StepTimeoutSec: 30}
	if p.StepBackoffBase() != 250*time.Millisecond {
		t.Fatalf("backoff base: %v", p.StepBackoffBase())
	}
	if p.StepTimeout() != 30*time.Second {
		t.Fatalf("step timeout: %v", p.StepTimeout())
	}
}
