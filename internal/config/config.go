package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/notewise/notewise-backend/internal/pkg/logger"
	"github.com/notewise/notewise-backend/internal/utils"
)

// Config is the pipeline policy file (configs/pipeline.yaml). Every
// value has a default; the file and the env overrides are optional.
type Config struct {
	Pipeline PipelineConfig        `yaml:"pipeline"`
	Worker   WorkerConfig          `yaml:"worker"`
	Tiers    map[string]TierConfig `yaml:"tiers"`
}

type PipelineConfig struct {
	// StepMaxAttempts bounds per-feature generation retries (backoff
	// doubles from StepBackoffBaseMS between attempts).
	StepMaxAttempts   int `yaml:"step_max_attempts"`
	StepBackoffBaseMS int `yaml:"step_backoff_base_ms"`
	StepTimeoutSec    int `yaml:"step_timeout_sec"`
	// MaxRegenerations bounds reviewer-triggered regeneration loops.
	MaxRegenerations int `yaml:"max_regenerations"`
}

type WorkerConfig struct {
	Concurrency        int `yaml:"concurrency"`
	PollIntervalMS     int `yaml:"poll_interval_ms"`
	MaxAttempts        int `yaml:"max_attempts"`
	RetryDelaySec      int `yaml:"retry_delay_sec"`
	StaleProcessingSec int `yaml:"stale_processing_sec"`
}

type TierConfig struct {
	Model          string `yaml:"model"`
	DailyNoteLimit int    `yaml:"daily_note_limit"` // -1 means unlimited
}

func Default() Config {
	return Config{
		Pipeline: PipelineConfig{
			StepMaxAttempts:   3,
			StepBackoffBaseMS: 500,
			StepTimeoutSec:    120,
			MaxRegenerations:  1,
		},
		Worker: WorkerConfig{
			Concurrency:        4,
			PollIntervalMS:     1000,
			MaxAttempts:        5,
			RetryDelaySec:      30,
			StaleProcessingSec: 1800,
		},
		Tiers: map[string]TierConfig{
			"free":       {Model: "gpt-4o-mini", DailyNoteLimit: 3},
			"pro":        {Model: "gpt-4o", DailyNoteLimit: -1},
			"enterprise": {Model: "gpt-4.1", DailyNoteLimit: -1},
		},
	}
}

// Load reads the yaml policy file when present and applies env
// overrides on top of the defaults. A missing file is not an error.
func Load(path string, log *logger.Logger) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			if log != nil {
				log.Debug("Pipeline config file not found, using defaults", "path", path)
			}
		case err != nil:
			return cfg, fmt.Errorf("read pipeline config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse pipeline config: %w", err)
			}
		}
	}

	cfg.Worker.Concurrency = utils.GetEnvAsInt("WORKER_CONCURRENCY", cfg.Worker.Concurrency, log)
	cfg.Pipeline.StepMaxAttempts = utils.GetEnvAsInt("PIPELINE_STEP_MAX_ATTEMPTS", cfg.Pipeline.StepMaxAttempts, log)
	cfg.Pipeline.MaxRegenerations = utils.GetEnvAsInt("PIPELINE_MAX_REGENERATIONS", cfg.Pipeline.MaxRegenerations, log)

	if cfg.Worker.Concurrency < 1 {
		cfg.Worker.Concurrency = 1
	}
	if cfg.Pipeline.StepMaxAttempts < 1 {
		cfg.Pipeline.StepMaxAttempts = 1
	}
	if cfg.Pipeline.MaxRegenerations < 0 {
		cfg.Pipeline.MaxRegenerations = 0
	}
	return cfg, nil
}

// Tier returns the tier policy, falling back to the free tier for
// unknown names so unrecognized accounts never gain quota.
func (c Config) Tier(name string) TierConfig {
	if t, ok := c.Tiers[name]; ok {
		return t
	}
	return c.Tiers["free"]
}

func (p PipelineConfig) StepBackoffBase() time.Duration {
	return time.Duration(p.StepBackoffBaseMS) * time.Millisecond
}

func (p PipelineConfig) StepTimeout() time.Duration {
	return time.Duration(p.StepTimeoutSec) * time.Second
}

func (w WorkerConfig) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalMS) * time.Millisecond
}

func (w WorkerConfig) RetryDelay() time.Duration {
	return time.Duration(w.RetryDelaySec) * time.Second
}

func (w WorkerConfig) StaleProcessing() time.Duration {
	return time.Duration(w.StaleProcessingSec) * time.Second
}
