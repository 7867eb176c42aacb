package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Processing Processing `toml:"processing"` // Input scanning and output settings
	Keyframes  Keyframes  `toml:"keyframes"`  // Keyframe extraction settings
	Inference  Inference  `toml:"inference"`  // AI inference settings (provider, retries, backoff)
	OpenAI     OpenAI     `toml:"openai"`     // OpenAI-compatible backend settings
	Gemini     Gemini     `toml:"gemini"`     // Google Gemini backend settings
	Pricing    Pricing    `toml:"pricing"`    // Optional per-token pricing for cost estimates
	Summary    Summary    `toml:"summary"`    // Summary content toggles
	Logging    Logging    `toml:"logging"`    // Application logging settings
	Storage    Storage    `toml:"storage"`    // Usage archive persistence settings
	API        API        `toml:"api"`        // Optional status HTTP server
}

// Processing contains input scanning and output settings
type Processing struct {
	InputDir              string `toml:"input_dir"`               // Directory containing one subfolder per meeting
	OutputFilename        string `toml:"output_filename"`         // Per-meeting summary filename written into each meeting folder
	GlobalSummaryFilename string `toml:"global_summary_filename"` // Cross-meeting summary filename written into the input dir
	ReportFilename        string `toml:"report_filename"`         // Run report filename written into the input dir
	Watch                 bool   `toml:"watch"`                   // Keep running and process new meeting folders as they appear
	SkipExisting          bool   `toml:"skip_existing"`           // Skip meetings that already have a summary file
}

// Keyframes contains keyframe extraction settings
type Keyframes struct {
	Enabled           bool               `toml:"enabled"`             // Enable keyframe extraction for meetings with video
	MaxFrames         int                `toml:"max_frames"`          // Maximum keyframes per meeting
	MinRelevanceScore float64            `toml:"min_relevance_score"` // Minimum candidate score in [0,1]
	MinSpacingSecs    float64            `toml:"min_spacing_seconds"` // Minimum seconds between selected keyframes
	ContextSegments   int                `toml:"context_segments"`    // Transcript segments of context captured around each candidate
	ImageDirName      string             `toml:"image_dir_name"`      // Subdirectory per meeting folder for extracted images
	Delays            map[string]float64 `toml:"delays"`              // Per-cue-type delay overrides in seconds (e.g. screen_share_future = 3.0)
	FFmpegPath        string             `toml:"ffmpeg_path"`         // Path to the ffmpeg binary
	FFprobePath       string             `toml:"ffprobe_path"`        // Path to the ffprobe binary
}

// Inference contains AI inference settings shared by all backends
type Inference struct {
	Provider           string  `toml:"provider"`                // "openai" or "gemini"
	Model              string  `toml:"model"`                   // Model ID passed to the backend
	MaxTokens          int     `toml:"max_tokens"`              // Maximum tokens to generate per call
	Temperature        float64 `toml:"temperature"`             // Sampling temperature
	MaxRetries         int     `toml:"max_retries"`             // Retry budget for throttled calls
	TransientRetries   int     `toml:"transient_retries"`       // Retry budget for network/timeout failures
	BackoffBaseMs      int     `toml:"backoff_base_ms"`         // Initial backoff wait in milliseconds
	BackoffCapMs       int     `toml:"backoff_cap_ms"`          // Maximum backoff wait in milliseconds
	BackoffJitterMs    int     `toml:"backoff_jitter_ms"`       // Upper bound of random jitter added to each wait
	ConcurrentMeetings int     `toml:"concurrent_meetings"`     // Meetings processed in parallel (sized to the service rate limit, not CPUs)
	TimeoutSecs        int     `toml:"request_timeout_seconds"` // Per-request timeout
}

// OpenAI contains settings for OpenAI-compatible chat completion backends
type OpenAI struct {
	APIKey  string `toml:"api_key"`  // API key for the service
	BaseURL string `toml:"base_url"` // Base URL (e.g. for proxies); defaults to https://api.openai.com
}

// Gemini contains settings for the Google Gemini backend
type Gemini struct {
	APIKey string `toml:"api_key"` // Gemini API key
}

// Pricing contains optional per-token pricing used for cost estimates.
// Zero values disable cost estimation.
type Pricing struct {
	InputPer1K  float64 `toml:"input_per_1k"`  // USD per 1000 input tokens
	OutputPer1K float64 `toml:"output_per_1k"` // USD per 1000 output tokens
}

// Summary contains content toggles for the generated prompts
type Summary struct {
	Style               string `toml:"style"`                // Summary style, e.g. "comprehensive" or "brief"
	IncludeParticipants bool   `toml:"include_participants"` // List speakers in the summary
	IncludeActionItems  bool   `toml:"include_action_items"` // Extract action items
	IncludeTimestamps   bool   `toml:"include_timestamps"`   // Reference approximate timestamps for key moments
}

// Logging contains application logging configuration
type Logging struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// Storage contains usage archive persistence configuration
type Storage struct {
	Enabled        bool   `toml:"enabled"`          // Persist per-call usage records to SQLite
	SQLiteBasePath string `toml:"sqlite_base_path"` // Directory for summit-usage.db
}

// API contains settings for the optional status HTTP server
type API struct {
	Enabled bool   `toml:"enabled"` // Serve run progress, usage snapshots and Prometheus metrics
	Host    string `toml:"host"`    // Host to bind to
	Port    int    `toml:"port"`    // HTTP port
}

// CueTypeNames lists the config keys accepted in the [keyframes.delays] table.
var CueTypeNames = []string{
	"screen_share_future",
	"screen_share_immediate",
	"demonstration",
	"technical",
	"transition",
	"important",
	"question",
}

// Load reads configuration from the given TOML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads configuration from the explicit path if given,
// otherwise searches configs/ and the current directory.
func LoadWithFallback(explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}

	candidates := []string{
		filepath.Join("configs", "config.toml"),
		"config.toml",
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return Load(candidate)
		}
	}

	return nil, fmt.Errorf("no config file found (searched: %v)", candidates)
}

// Validate checks the configuration for invalid values and applies defaults.
// Any error returned here aborts the run before external calls are made.
func (c *Config) Validate() error {
	if c.Processing.InputDir == "" {
		return fmt.Errorf("processing.input_dir is required")
	}
	if c.Processing.OutputFilename == "" {
		c.Processing.OutputFilename = "summary.md"
	}
	if c.Processing.GlobalSummaryFilename == "" {
		c.Processing.GlobalSummaryFilename = "GLOBAL_SUMMARY.md"
	}
	if c.Processing.ReportFilename == "" {
		c.Processing.ReportFilename = "run_report.md"
	}

	if c.Keyframes.MaxFrames < 0 {
		return fmt.Errorf("keyframes.max_frames must be >= 0, got %d", c.Keyframes.MaxFrames)
	}
	if c.Keyframes.MaxFrames == 0 && c.Keyframes.Enabled {
		c.Keyframes.MaxFrames = 5
	}
	if c.Keyframes.MinRelevanceScore < 0 || c.Keyframes.MinRelevanceScore > 1 {
		return fmt.Errorf("keyframes.min_relevance_score must be in [0,1], got %g", c.Keyframes.MinRelevanceScore)
	}
	if c.Keyframes.MinRelevanceScore == 0 {
		c.Keyframes.MinRelevanceScore = 0.3
	}
	if c.Keyframes.MinSpacingSecs < 0 {
		return fmt.Errorf("keyframes.min_spacing_seconds must be > 0, got %g", c.Keyframes.MinSpacingSecs)
	}
	if c.Keyframes.MinSpacingSecs == 0 {
		c.Keyframes.MinSpacingSecs = 60.0
	}
	if c.Keyframes.ContextSegments == 0 {
		c.Keyframes.ContextSegments = 2
	}
	if c.Keyframes.ImageDirName == "" {
		c.Keyframes.ImageDirName = "keyframes"
	}
	if c.Keyframes.FFmpegPath == "" {
		c.Keyframes.FFmpegPath = "ffmpeg"
	}
	if c.Keyframes.FFprobePath == "" {
		c.Keyframes.FFprobePath = "ffprobe"
	}
	for name, delay := range c.Keyframes.Delays {
		if delay < 0 {
			return fmt.Errorf("keyframes.delays.%s must be >= 0, got %g", name, delay)
		}
		if !isKnownCueType(name) {
			return fmt.Errorf("keyframes.delays.%s is not a known cue type (known: %v)", name, CueTypeNames)
		}
	}

	switch c.Inference.Provider {
	case "":
		c.Inference.Provider = "openai"
	case "openai", "gemini":
	default:
		return fmt.Errorf("inference.provider must be \"openai\" or \"gemini\", got %q", c.Inference.Provider)
	}
	if c.Inference.Model == "" {
		return fmt.Errorf("inference.model is required")
	}
	if c.Inference.MaxTokens <= 0 {
		c.Inference.MaxTokens = 4000
	}
	if c.Inference.Temperature < 0 {
		return fmt.Errorf("inference.temperature must be >= 0, got %g", c.Inference.Temperature)
	}
	if c.Inference.MaxRetries < 0 {
		return fmt.Errorf("inference.max_retries must be >= 0, got %d", c.Inference.MaxRetries)
	}
	if c.Inference.MaxRetries == 0 {
		c.Inference.MaxRetries = 5
	}
	if c.Inference.TransientRetries < 0 {
		return fmt.Errorf("inference.transient_retries must be >= 0, got %d", c.Inference.TransientRetries)
	}
	if c.Inference.TransientRetries == 0 {
		c.Inference.TransientRetries = 3
	}
	if c.Inference.BackoffBaseMs <= 0 {
		c.Inference.BackoffBaseMs = 1000
	}
	if c.Inference.BackoffCapMs <= 0 {
		c.Inference.BackoffCapMs = 60000
	}
	if c.Inference.BackoffCapMs < c.Inference.BackoffBaseMs {
		return fmt.Errorf("inference.backoff_cap_ms (%d) must be >= backoff_base_ms (%d)",
			c.Inference.BackoffCapMs, c.Inference.BackoffBaseMs)
	}
	if c.Inference.BackoffJitterMs < 0 {
		return fmt.Errorf("inference.backoff_jitter_ms must be >= 0, got %d", c.Inference.BackoffJitterMs)
	}
	if c.Inference.BackoffJitterMs == 0 {
		c.Inference.BackoffJitterMs = 1000
	}
	if c.Inference.ConcurrentMeetings <= 0 {
		c.Inference.ConcurrentMeetings = 2
	}
	if c.Inference.TimeoutSecs <= 0 {
		c.Inference.TimeoutSecs = 300
	}

	if c.Inference.Provider == "openai" && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required when inference.provider is \"openai\"")
	}
	if c.Inference.Provider == "gemini" && c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini.api_key is required when inference.provider is \"gemini\"")
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com"
	}

	if c.Pricing.InputPer1K < 0 || c.Pricing.OutputPer1K < 0 {
		return fmt.Errorf("pricing values must be >= 0")
	}

	if c.Summary.Style == "" {
		c.Summary.Style = "comprehensive"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}

	if c.Storage.Enabled && c.Storage.SQLiteBasePath == "" {
		c.Storage.SQLiteBasePath = "data"
	}

	if c.API.Enabled {
		if c.API.Host == "" {
			c.API.Host = "127.0.0.1"
		}
		if c.API.Port == 0 {
			c.API.Port = 8573
		}
	}

	return nil
}

func isKnownCueType(name string) bool {
	for _, known := range CueTypeNames {
		if name == known {
			return true
		}
	}
	return false
}
