// Package config loads and validates engine configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Features toggles individual engine components. All default to enabled.
type Features struct {
	// Retry enables error classification and requeue with backoff
	Retry bool `yaml:"retry"`

	// Checkpoints enables durable progress snapshots
	Checkpoints bool `yaml:"checkpoints"`

	// Parallelism enables wave-based concurrent execution
	Parallelism bool `yaml:"parallelism"`

	// Degradation enables the capability degradation state machine
	Degradation bool `yaml:"degradation"`

	// Profiling enables per-task outcome recording
	Profiling bool `yaml:"profiling"`

	// Templating enables prompt template expansion for task descriptions
	Templating bool `yaml:"templating"`
}

// Config represents dispatch engine configuration options.
type Config struct {
	// MaxConcurrentTasks is the maximum number of tasks running at once
	MaxConcurrentTasks int `yaml:"max_concurrent_tasks"`

	// APIQuotaLimit is the number of provider calls allowed per mission
	APIQuotaLimit int `yaml:"api_quota_limit"`

	// QuotaLowWater is the fraction of remaining quota below which the
	// scheduler recommends pausing new work
	QuotaLowWater float64 `yaml:"quota_low_water"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// CheckpointDir is where checkpoint files are written
	CheckpointDir string `yaml:"checkpoint_dir"`

	// ProfileDB is the path to the execution history database ("" disables)
	ProfileDB string `yaml:"profile_db"`

	// FailuresPerStep is how many failures trigger one degradation step
	FailuresPerStep int `yaml:"failures_per_step"`

	// SuccessesPerRecovery is how many consecutive successes recover one step
	SuccessesPerRecovery int `yaml:"successes_per_recovery"`

	// PassThreshold is the quality gate score required for PASS
	PassThreshold int `yaml:"pass_threshold"`

	// ReviewThreshold is the quality gate score required for REVIEW
	ReviewThreshold int `yaml:"review_threshold"`

	// FailOnReview halts missions on a REVIEW verdict
	FailOnReview bool `yaml:"fail_on_review"`

	// GateWeights overrides the per-phase quality gate weights
	// (keys: analysis, build, check, delivery)
	GateWeights map[string]float64 `yaml:"gate_weights"`

	// Features toggles individual engine components
	Features Features `yaml:"features"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrentTasks:   12,
		APIQuotaLimit:        1000,
		QuotaLowWater:        0.10,
		LogLevel:             "info",
		CheckpointDir:        ".dispatch/checkpoints",
		ProfileDB:            ".dispatch/profile.db",
		FailuresPerStep:      3,
		SuccessesPerRecovery: 5,
		PassThreshold:        70,
		ReviewThreshold:      40,
		FailOnReview:         false,
		Features: Features{
			Retry:       true,
			Checkpoints: true,
			Parallelism: true,
			Degradation: true,
			Profiling:   true,
			Templating:  true,
		},
	}
}

// Load reads configuration from the given file path. A missing file yields
// the defaults without error; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.MaxConcurrentTasks < 1 {
		return fmt.Errorf("max_concurrent_tasks must be at least 1, got %d", c.MaxConcurrentTasks)
	}
	if c.APIQuotaLimit < 1 {
		return fmt.Errorf("api_quota_limit must be at least 1, got %d", c.APIQuotaLimit)
	}
	if c.QuotaLowWater < 0 || c.QuotaLowWater >= 1 {
		return fmt.Errorf("quota_low_water must be in [0, 1), got %g", c.QuotaLowWater)
	}
	if c.PassThreshold <= c.ReviewThreshold {
		return fmt.Errorf("pass_threshold (%d) must be above review_threshold (%d)", c.PassThreshold, c.ReviewThreshold)
	}
	for phase := range c.GateWeights {
		switch phase {
		case "analysis", "build", "check", "delivery":
		default:
			return fmt.Errorf("gate_weights: unknown phase %q", phase)
		}
	}
	return nil
}
