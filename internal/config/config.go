// Package config provides configuration types, defaults and validation for
// splice. Values are loaded by viper in cmd and decoded with mapstructure.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zjrosen/splice/internal/log"
	"github.com/zjrosen/splice/internal/tracing"
)

// Config holds all configuration options for splice.
type Config struct {
	Repo    RepoConfig     `mapstructure:"repo"`
	Diff    DiffConfig     `mapstructure:"diff"`
	Author  AuthorConfig   `mapstructure:"author"`
	Git     GitConfig      `mapstructure:"git"`
	Log     LogConfig      `mapstructure:"log"`
	Cache   CacheConfig    `mapstructure:"cache"`
	Tracing tracing.Config `mapstructure:"tracing"`
}

// RepoConfig selects the repository to operate on.
type RepoConfig struct {
	Path string `mapstructure:"path"` // Defaults to the current directory
}

// DiffConfig controls diff computation.
type DiffConfig struct {
	ContextLines     int  `mapstructure:"context_lines"`
	WordDiff         bool `mapstructure:"word_diff"`
	IncludeUntracked bool `mapstructure:"include_untracked"` // Show untracked files as all-added diffs
}

// AuthorConfig is the commit identity used when the repository and the
// user's git config do not provide one.
type AuthorConfig struct {
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
}

// GitConfig configures the external git executable.
type GitConfig struct {
	Binary string `mapstructure:"binary"`
}

// LogConfig configures the debug log.
type LogConfig struct {
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"`
}

// CacheConfig controls the commit detail and blame caches.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// DefaultTracesFilePath returns ~/.config/splice/traces/traces.jsonl, or ""
// when the home directory is unknown.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "splice", "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	traceCfg := tracing.DefaultConfig()
	traceCfg.FilePath = DefaultTracesFilePath()

	return Config{
		Diff: DiffConfig{
			ContextLines: 3,
			WordDiff:     true,
		},
		Git: GitConfig{
			Binary: "git",
		},
		Log: LogConfig{
			Path:  "debug.log",
			Level: "debug",
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     10 * time.Minute,
		},
		Tracing: traceCfg,
	}
}

// Validate runs every section validator.
func (c Config) Validate() error {
	if err := ValidateDiff(c.Diff); err != nil {
		return err
	}
	if err := ValidateAuthor(c.Author); err != nil {
		return err
	}
	if err := ValidateLog(c.Log); err != nil {
		return err
	}
	if err := ValidateCache(c.Cache); err != nil {
		return err
	}
	return ValidateTracing(c.Tracing)
}

// ValidateDiff checks diff settings.
func ValidateDiff(d DiffConfig) error {
	if d.ContextLines < 0 {
		return fmt.Errorf("diff.context_lines must be >= 0, got %d", d.ContextLines)
	}
	return nil
}

// ValidateAuthor requires name and email to be set together.
func ValidateAuthor(a AuthorConfig) error {
	if (a.Name == "") != (a.Email == "") {
		return fmt.Errorf("author.name and author.email must be set together")
	}
	if a.Email != "" && !strings.Contains(a.Email, "@") {
		return fmt.Errorf("author.email %q is not an email address", a.Email)
	}
	return nil
}

// ValidateLog checks the log level name.
func ValidateLog(l LogConfig) error {
	if _, err := log.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// ValidateCache checks cache settings.
func ValidateCache(c CacheConfig) error {
	if c.Enabled && c.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %s", c.TTL)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(t tracing.Config) error {
	if t.SampleRate < 0.0 || t.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", t.SampleRate)
	}

	if t.Exporter != "" {
		switch t.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", t.Exporter)
		}
	}

	if t.Enabled {
		if t.Exporter == "file" && t.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if t.Exporter == "otlp" && t.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# splice configuration

# Repository to operate on (default: current directory)
# repo:
#   path: /path/to/repo

diff:
  context_lines: 3          # Lines of context around each hunk
  word_diff: true           # Highlight changed words in paired -/+ lines
  include_untracked: false  # Show untracked files as all-added diffs

# Fallback commit identity when git config has none
# author:
#   name: Jane Doe
#   email: jane@example.com

git:
  binary: git

log:
  path: debug.log   # Written only with --debug or SPLICE_DEBUG=1
  level: debug

cache:
  enabled: true
  ttl: 10m

# Tracing (OpenTelemetry)
# tracing:
#   enabled: true
#   exporter: file          # none | file | stdout | otlp
#   file_path: ~/.config/splice/traces/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
