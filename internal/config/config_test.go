package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	return Config{
		Processing: Processing{InputDir: "./meetings"},
		Inference:  Inference{Model: "gpt-4o-mini"},
		OpenAI:     OpenAI{APIKey: "sk-test"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"minimal valid config", func(c *Config) {}, false},
		{"missing input dir", func(c *Config) { c.Processing.InputDir = "" }, true},
		{"missing model", func(c *Config) { c.Inference.Model = "" }, true},
		{"unknown provider", func(c *Config) { c.Inference.Provider = "bedrock" }, true},
		{"openai without key", func(c *Config) { c.OpenAI.APIKey = "" }, true},
		{"gemini without key", func(c *Config) {
			c.Inference.Provider = "gemini"
			c.OpenAI.APIKey = ""
		}, true},
		{"gemini with key", func(c *Config) {
			c.Inference.Provider = "gemini"
			c.Gemini.APIKey = "g-test"
		}, false},
		{"negative retries", func(c *Config) { c.Inference.MaxRetries = -1 }, true},
		{"negative transient retries", func(c *Config) { c.Inference.TransientRetries = -1 }, true},
		{"cap below base", func(c *Config) {
			c.Inference.BackoffBaseMs = 5000
			c.Inference.BackoffCapMs = 1000
		}, true},
		{"negative jitter", func(c *Config) { c.Inference.BackoffJitterMs = -1 }, true},
		{"score out of range", func(c *Config) { c.Keyframes.MinRelevanceScore = 1.5 }, true},
		{"negative spacing", func(c *Config) { c.Keyframes.MinSpacingSecs = -10 }, true},
		{"negative delay", func(c *Config) {
			c.Keyframes.Delays = map[string]float64{"demonstration": -1}
		}, true},
		{"unknown delay key", func(c *Config) {
			c.Keyframes.Delays = map[string]float64{"applause": 2}
		}, true},
		{"known delay key", func(c *Config) {
			c.Keyframes.Delays = map[string]float64{"screen_share_future": 5}
		}, false},
		{"negative pricing", func(c *Config) { c.Pricing.InputPer1K = -0.1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAppliesDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.Processing.OutputFilename != "summary.md" {
		t.Errorf("OutputFilename = %q", cfg.Processing.OutputFilename)
	}
	if cfg.Inference.Provider != "openai" {
		t.Errorf("Provider default = %q", cfg.Inference.Provider)
	}
	if cfg.Inference.MaxRetries != 5 {
		t.Errorf("MaxRetries default = %d, want 5", cfg.Inference.MaxRetries)
	}
	if cfg.Inference.TransientRetries != 3 {
		t.Errorf("TransientRetries default = %d, want 3", cfg.Inference.TransientRetries)
	}
	if cfg.Inference.BackoffBaseMs != 1000 || cfg.Inference.BackoffCapMs != 60000 {
		t.Errorf("backoff defaults = %d/%d", cfg.Inference.BackoffBaseMs, cfg.Inference.BackoffCapMs)
	}
	if cfg.Inference.ConcurrentMeetings != 2 {
		t.Errorf("ConcurrentMeetings default = %d, want 2", cfg.Inference.ConcurrentMeetings)
	}
	if cfg.Keyframes.MinRelevanceScore != 0.3 {
		t.Errorf("MinRelevanceScore default = %g, want 0.3", cfg.Keyframes.MinRelevanceScore)
	}
	if cfg.Keyframes.MinSpacingSecs != 60.0 {
		t.Errorf("MinSpacingSecs default = %g, want 60", cfg.Keyframes.MinSpacingSecs)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Errorf("logging defaults = %q/%q", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.OpenAI.BaseURL != "https://api.openai.com" {
		t.Errorf("BaseURL default = %q", cfg.OpenAI.BaseURL)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[processing]
input_dir = "./meetings"

[keyframes]
enabled = true
max_frames = 3

[keyframes.delays]
screen_share_future = 4.5

[inference]
provider = "openai"
model = "gpt-4o-mini"

[openai]
api_key = "sk-test"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Processing.InputDir != "./meetings" {
		t.Errorf("InputDir = %q", cfg.Processing.InputDir)
	}
	if cfg.Keyframes.MaxFrames != 3 {
		t.Errorf("MaxFrames = %d, want 3", cfg.Keyframes.MaxFrames)
	}
	if cfg.Keyframes.Delays["screen_share_future"] != 4.5 {
		t.Errorf("delay override = %g, want 4.5", cfg.Keyframes.Delays["screen_share_future"])
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load() should return error for a missing file")
	}
}
