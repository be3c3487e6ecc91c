package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"rawconv/internal/encode"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	InputDir  string `toml:"input_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	HistoryDB string `toml:"history_db"`
}

// Input controls which files discovery picks up.
type Input struct {
	Extensions []string `toml:"extensions"`
	Recursive  bool     `toml:"recursive"`
}

// Decode configures the external RAW decoder.
type Decode struct {
	Binary string   `toml:"binary"`
	Args   []string `toml:"args"`
	// TimeoutSeconds bounds a single decoder invocation. Zero disables the deadline.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Enhance configures the enhancement stage.
type Enhance struct {
	Enabled bool `toml:"enabled"`
	// Backend is one of auto, reference, accelerated.
	Backend    string  `toml:"backend"`
	Sharpen    bool    `toml:"sharpen"`
	Contrast   float64 `toml:"contrast"`
	Brightness float64 `toml:"brightness"`
}

// Output configures the encoded artifacts.
type Output struct {
	Format       string `toml:"format"`
	Quality      int    `toml:"quality"`
	SkipExisting bool   `toml:"skip_existing"`
}

// Workers configures the bounded worker pool.
type Workers struct {
	// Concurrency of zero means one worker per logical CPU.
	Concurrency int `toml:"concurrency"`
}

// Preflight configures the resource gate consulted before each batch.
type Preflight struct {
	Enabled           bool `toml:"enabled"`
	MinFreeMiB        int  `toml:"min_free_mib"`
	MinBatteryPercent int  `toml:"min_battery_percent"`
	RequireAC         bool `toml:"require_ac"`
}

// Watch configures hot-folder mode.
type Watch struct {
	DebounceSeconds int `toml:"debounce_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for rawconv.
//
// Configuration sections by subsystem:
//   - Paths: input, output, log directories and the history database
//   - Input: extensions picked up by discovery
//   - Decode: external RAW decoder invocation
//   - Enhance: enhancement backend and filter parameters
//   - Output: encoded format, quality, skip-existing
//   - Workers: pool size
//   - Preflight: power and disk-space gate thresholds
//   - Watch: hot-folder debounce
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Input     Input     `toml:"input"`
	Decode    Decode    `toml:"decode"`
	Enhance   Enhance   `toml:"enhance"`
	Output    Output    `toml:"output"`
	Workers   Workers   `toml:"workers"`
	Preflight Preflight `toml:"preflight"`
	Watch     Watch     `toml:"watch"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/rawconv/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnvironment(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/rawconv/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("rawconv.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log directory and the output directory.
// Creation is idempotent; an existing directory is not an error.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.OutputDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Concurrency resolves the worker count, defaulting to the logical CPU count.
func (c *Config) Concurrency() int {
	if c.Workers.Concurrency > 0 {
		return c.Workers.Concurrency
	}
	return runtime.NumCPU()
}

// DecodeTimeout returns the per-invocation decoder deadline, or zero for none.
func (c *Config) DecodeTimeout() time.Duration {
	if c.Decode.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Decode.TimeoutSeconds) * time.Second
}

// WatchDebounce returns the hot-folder settle interval.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Watch.DebounceSeconds) * time.Second
}

// HistoryPath returns the SQLite history database location.
func (c *Config) HistoryPath() string {
	if strings.TrimSpace(c.Paths.HistoryDB) != "" {
		return c.Paths.HistoryDB
	}
	return filepath.Join(c.Paths.LogDir, "history.db")
}

// LogPath returns the rawconv log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "rawconv.log")
}

// OutputExtension returns the file extension (with dot) for the configured output format.
func (c *Config) OutputExtension() string {
	return encode.Extension(c.Output.Format)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Normalize applies the same normalization Load performs. Callers that mutate
// a loaded config (for example from CLI flags) run it before Validate.
func (c *Config) Normalize() error {
	return c.normalize()
}
