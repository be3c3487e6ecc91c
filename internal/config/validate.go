package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEnhance(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validatePreflight(); err != nil {
		return err
	}
	if c.Watch.DebounceSeconds <= 0 {
		return errors.New("watch.debounce_seconds must be positive")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.InputDir) == "" {
		return errors.New("paths.input_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.InputDir == c.Paths.OutputDir {
		return errors.New("paths.output_dir must differ from paths.input_dir")
	}
	return nil
}

func (c *Config) validateEnhance() error {
	switch c.Enhance.Backend {
	case "auto", "reference", "accelerated":
	default:
		return fmt.Errorf("enhance.backend: unsupported value %q (want auto, reference, or accelerated)", c.Enhance.Backend)
	}
	if c.Enhance.Contrast <= 0 {
		return errors.New("enhance.contrast must be positive")
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Format {
	case "jpeg", "png", "tiff":
	default:
		return fmt.Errorf("output.format: unsupported value %q (want jpeg, png, or tiff)", c.Output.Format)
	}
	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return errors.New("output.quality must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Workers.Concurrency < 0 {
		return errors.New("workers.concurrency must be >= 0 (0 uses the CPU count)")
	}
	return nil
}

func (c *Config) validatePreflight() error {
	if c.Preflight.MinFreeMiB < 0 {
		return errors.New("preflight.min_free_mib must be >= 0")
	}
	if c.Preflight.MinBatteryPercent < 0 || c.Preflight.MinBatteryPercent > 100 {
		return errors.New("preflight.min_battery_percent must be between 0 and 100")
	}
	return nil
}
