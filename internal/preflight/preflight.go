package preflight

import (
	"context"
	"log/slog"
	"strings"

	"rawconv/internal/config"
	"rawconv/internal/logging"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckReadableDirectory("Input directory", cfg.Paths.InputDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckFreeSpace("Free space", cfg.Paths.OutputDir, uint64(cfg.Preflight.MinFreeMiB)<<20),
		CheckDecoder(cfg.Decode.Binary),
	}
	results = append(results, CheckPower(ctx, cfg.Preflight.MinBatteryPercent, cfg.Preflight.RequireAC))
	return results
}

// Gate adapts RunAll to the batch runner's gate contract.
type Gate struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewGate returns a gate backed by cfg. When cfg.Preflight.Enabled is false
// the gate always allows the batch.
func NewGate(cfg *config.Config, logger *slog.Logger) *Gate {
	return &Gate{cfg: cfg, logger: logging.NewComponentLogger(logger, "preflight")}
}

// Check runs the preflight checks and reports whether the batch may start.
// The message lists the details of every failed check.
func (g *Gate) Check(ctx context.Context) (bool, string) {
	if g.cfg == nil || !g.cfg.Preflight.Enabled {
		g.logger.Debug("preflight gate disabled")
		return true, ""
	}
	results := RunAll(ctx, g.cfg)
	allowed, message := Summarize(results)
	for _, r := range results {
		g.logger.Debug("preflight check",
			logging.String("check", r.Name),
			logging.Bool("passed", r.Passed),
			logging.String("detail", r.Detail),
		)
	}
	return allowed, message
}

// Summarize folds results into the gate's (allowed, message) pair.
func Summarize(results []Result) (bool, string) {
	var failures []string
	for _, r := range results {
		if !r.Passed {
			failures = append(failures, r.Detail)
		}
	}
	if len(failures) == 0 {
		return true, "all preflight checks passed"
	}
	return false, strings.Join(failures, "; ")
}
