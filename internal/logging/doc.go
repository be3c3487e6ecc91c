// Package logging assembles the structured slog loggers used across rawconv.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with the run ID, the source file, the phase, and the worker index.
// A no-op logger is provided for tests and wiring code that cannot fail.
package logging
