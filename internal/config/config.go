package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Compiler CompilerConfig `yaml:"compiler"`
	Debounce DebounceConfig `yaml:"debounce"`
	Outline  OutlineConfig  `yaml:"outline"`
	Render   RenderConfig   `yaml:"render"`
	Backup   BackupConfig   `yaml:"backup"`
	History  HistoryConfig  `yaml:"history"`
	Server   ServerConfig   `yaml:"server"`
}

// CompilerConfig describes the external LaTeX compiler invocation.
// Durations are Go duration strings ("20s", "500ms") parsed on access.
type CompilerConfig struct {
	Tool    string `yaml:"tool"`    // executable name, looked up on PATH
	Timeout string `yaml:"timeout"` // wall-clock bound per invocation
}

// DebounceConfig controls how edit bursts are coalesced into pipeline runs.
type DebounceConfig struct {
	QuietWindow string `yaml:"quiet_window"`
	// MaxDelay optionally bounds how long a steady stream of edits can
	// postpone the pipeline. Empty disables the bound.
	MaxDelay string `yaml:"max_delay,omitempty"`
}

// OutlineConfig selects the heading commands recognized by the extractor,
// outermost first. The Nth kind maps to depth N.
type OutlineConfig struct {
	HeadingKinds []string `yaml:"heading_kinds,omitempty"`
}

// RenderConfig controls preview rasterization.
type RenderConfig struct {
	DPI float64 `yaml:"dpi"`
}

// BackupConfig controls the periodic buffer snapshot loop.
type BackupConfig struct {
	Interval string `yaml:"interval"`
	DirName  string `yaml:"dir_name"` // created next to the source document
}

// HistoryConfig locates the compile-outcome journal.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP collaborator surface.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// DefaultHeadingKinds is the four-level LaTeX sectioning set, outermost first.
var DefaultHeadingKinds = []string{"chapter", "section", "subsection", "subsubsection"}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from the specified file and applies defaults.
func Load(configPath string) (*Config, error) {
	// Load .env if present; local overrides are optional.
	_ = godotenv.Load()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expandedData := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Compiler.Tool == "" {
		c.Compiler.Tool = "pdflatex"
	}
	if c.Compiler.Timeout == "" {
		c.Compiler.Timeout = "20s"
	}
	if c.Debounce.QuietWindow == "" {
		c.Debounce.QuietWindow = "2s"
	}
	if len(c.Outline.HeadingKinds) == 0 {
		c.Outline.HeadingKinds = append([]string(nil), DefaultHeadingKinds...)
	}
	if c.Render.DPI <= 0 {
		c.Render.DPI = 150
	}
	if c.Backup.Interval == "" {
		c.Backup.Interval = "10m"
	}
	if c.Backup.DirName == "" {
		c.Backup.DirName = "backups"
	}
	if c.History.Path == "" {
		c.History.Path = "./texpreview-history.db"
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8321"
	}
}

// Validate checks that all duration fields parse.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Compiler.Timeout); err != nil {
		return fmt.Errorf("invalid compiler.timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Debounce.QuietWindow); err != nil {
		return fmt.Errorf("invalid debounce.quiet_window: %w", err)
	}
	if c.Debounce.MaxDelay != "" {
		if _, err := time.ParseDuration(c.Debounce.MaxDelay); err != nil {
			return fmt.Errorf("invalid debounce.max_delay: %w", err)
		}
	}
	if _, err := time.ParseDuration(c.Backup.Interval); err != nil {
		return fmt.Errorf("invalid backup.interval: %w", err)
	}
	return nil
}

// CompileTimeout returns the parsed compiler timeout.
func (c *Config) CompileTimeout() time.Duration {
	return parseDurationOr(c.Compiler.Timeout, 20*time.Second)
}

// QuietWindow returns the parsed debounce quiet window.
func (c *Config) QuietWindow() time.Duration {
	return parseDurationOr(c.Debounce.QuietWindow, 2*time.Second)
}

// MaxDelay returns the parsed debounce max delay; zero when disabled.
func (c *Config) MaxDelay() time.Duration {
	if c.Debounce.MaxDelay == "" {
		return 0
	}
	return parseDurationOr(c.Debounce.MaxDelay, 0)
}

// BackupInterval returns the parsed backup period.
func (c *Config) BackupInterval() time.Duration {
	return parseDurationOr(c.Backup.Interval, 10*time.Minute)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Default()
	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
