// Package config loads, normalizes, and validates rawconv configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// RAWCONV_INPUT_DIR. The Config type centralizes every knob the CLI and the
// batch runner need, so input/output directories, decoder settings, and the
// preflight thresholds are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
