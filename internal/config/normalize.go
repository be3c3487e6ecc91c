package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// applyEnvironment layers RAWCONV_* variables over file values. Only Load
// calls it so that CLI flags applied afterwards take precedence.
func (c *Config) applyEnvironment() error {
	if value, ok := os.LookupEnv("RAWCONV_INPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.InputDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("RAWCONV_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = strings.TrimSpace(value)
	}
	value, ok := os.LookupEnv("RAWCONV_CONCURRENCY")
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("RAWCONV_CONCURRENCY: %w", err)
	}
	c.Workers.Concurrency = n
	return nil
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeInput()
	c.normalizeDecode()
	c.normalizeEnhance()
	c.normalizeOutput()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}

	var err error
	if c.Paths.InputDir, err = expandPath(c.Paths.InputDir); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.HistoryDB, err = expandPath(strings.TrimSpace(c.Paths.HistoryDB)); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeInput() {
	if len(c.Input.Extensions) == 0 {
		c.Input.Extensions = DefaultExtensions()
		return
	}
	exts := make([]string, 0, len(c.Input.Extensions))
	seen := make(map[string]struct{}, len(c.Input.Extensions))
	for _, ext := range c.Input.Extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = DefaultExtensions()
	}
	c.Input.Extensions = exts
}

func (c *Config) normalizeDecode() {
	c.Decode.Binary = strings.TrimSpace(c.Decode.Binary)
	if c.Decode.Binary == "" {
		c.Decode.Binary = defaultDecoderBinary
	}
	if len(c.Decode.Args) == 0 {
		c.Decode.Args = DefaultDecoderArgs()
	}
	if c.Decode.TimeoutSeconds < 0 {
		c.Decode.TimeoutSeconds = 0
	}
}

func (c *Config) normalizeEnhance() {
	c.Enhance.Backend = strings.ToLower(strings.TrimSpace(c.Enhance.Backend))
	switch c.Enhance.Backend {
	case "":
		c.Enhance.Backend = defaultEnhanceBackend
	case "cpu":
		c.Enhance.Backend = "reference"
	case "gpu", "opencv":
		c.Enhance.Backend = "accelerated"
	}
}

func (c *Config) normalizeOutput() {
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	switch c.Output.Format {
	case "", "jpg", "jpeg":
		c.Output.Format = "jpeg"
	case "tif":
		c.Output.Format = "tiff"
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
