package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxConcurrentTasks != 12 {
		t.Errorf("MaxConcurrentTasks = %d, want 12", cfg.MaxConcurrentTasks)
	}
	if cfg.APIQuotaLimit != 1000 {
		t.Errorf("APIQuotaLimit = %d, want 1000", cfg.APIQuotaLimit)
	}
	if !cfg.Features.Retry || !cfg.Features.Checkpoints || !cfg.Features.Parallelism ||
		!cfg.Features.Degradation || !cfg.Features.Profiling || !cfg.Features.Templating {
		t.Errorf("all features should default to enabled, got %+v", cfg.Features)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load returned error for missing file: %v", err)
	}
	if cfg.MaxConcurrentTasks != DefaultConfig().MaxConcurrentTasks {
		t.Errorf("missing file should yield defaults, got %+v", cfg)
	}
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatch.yaml")
	content := []byte(`
max_concurrent_tasks: 4
api_quota_limit: 50
log_level: debug
features:
  parallelism: false
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.MaxConcurrentTasks != 4 {
		t.Errorf("MaxConcurrentTasks = %d, want 4", cfg.MaxConcurrentTasks)
	}
	if cfg.APIQuotaLimit != 50 {
		t.Errorf("APIQuotaLimit = %d, want 50", cfg.APIQuotaLimit)
	}
	if cfg.Features.Parallelism {
		t.Error("parallelism should be disabled by the file")
	}
	if !cfg.Features.Retry {
		t.Error("unspecified features keep their enabled default")
	}
	if cfg.PassThreshold != 70 {
		t.Errorf("PassThreshold = %d, want default 70", cfg.PassThreshold)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("max_concurrent_tasks: [not an int"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero concurrency", func(c *Config) { c.MaxConcurrentTasks = 0 }, true},
		{"zero quota", func(c *Config) { c.APIQuotaLimit = 0 }, true},
		{"inverted thresholds", func(c *Config) { c.PassThreshold = 30 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_QuotaLowWaterAndGateWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QuotaLowWater = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for quota_low_water >= 1")
	}

	cfg = DefaultConfig()
	cfg.GateWeights = map[string]float64{"build": 0.6, "check": 0.4}
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid gate weights rejected: %v", err)
	}

	cfg.GateWeights = map[string]float64{"deploy": 1.0}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown gate phase")
	}
}
