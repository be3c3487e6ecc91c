package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rawconv/internal/config"
	"rawconv/internal/deps"
	"rawconv/internal/enhance"
	"rawconv/internal/logging"
	"rawconv/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show preflight, dependency, and backend status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var lines []string
			lines = append(lines, renderSectionHeader("Configuration", colorize)...)
			lines = append(lines, configLines(cfg, ctx.configPath, colorize)...)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			lines = append(lines, dependencyLines(deps.CheckBinaries(decoderRequirements(cfg)), colorize)...)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Preflight", colorize)...)
			lines = append(lines, preflightLines(cfg, preflight.RunAll(cmd.Context(), cfg), colorize)...)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Enhancement", colorize)...)
			lines = append(lines, enhancementLines(cfg, enhance.Probe(), colorize)...)

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
}

func decoderRequirements(cfg *config.Config) []deps.Requirement {
	return []deps.Requirement{{
		Name:        "RAW decoder",
		Command:     cfg.Decode.Binary,
		Description: "Decodes camera RAW files to TIFF",
	}}
}

func configLines(cfg *config.Config, path string, colorize bool) []string {
	source := path
	if source == "" {
		source = "defaults"
	}
	return []string{
		renderStatusLine("Config", statusInfo, source, colorize),
		renderStatusLine("Input", statusInfo, cfg.Paths.InputDir, colorize),
		renderStatusLine("Output", statusInfo, cfg.Paths.OutputDir, colorize),
		renderStatusLine("Workers", statusInfo, fmt.Sprintf("%d", cfg.Concurrency()), colorize),
		renderStatusLine("Format", statusInfo, fmt.Sprintf("%s (quality %d)", titleLabel(cfg.Output.Format), cfg.Output.Quality), colorize),
	}
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	missing := deps.Missing(statuses)
	var lines []string
	if len(missing) == 0 {
		lines = append(lines, renderStatusLine("Summary", statusOK, "All dependencies available", colorize))
	} else {
		lines = append(lines, renderStatusLine("Summary", statusError, fmt.Sprintf("%d missing", len(missing)), colorize))
	}
	for _, s := range statuses {
		switch {
		case s.Available:
			lines = append(lines, renderStatusLine(s.Name, statusOK, s.Path, colorize))
		case s.Optional:
			lines = append(lines, renderStatusLine(s.Name, statusWarn, s.Detail, colorize))
		default:
			lines = append(lines, renderStatusLine(s.Name, statusError, s.Detail, colorize))
		}
	}
	return lines
}

func preflightLines(cfg *config.Config, results []preflight.Result, colorize bool) []string {
	lines := []string{renderStatusLine("Gate", statusInfo, "enabled: "+yesNo(cfg.Preflight.Enabled), colorize)}
	failKind := statusError
	if !cfg.Preflight.Enabled {
		failKind = statusWarn
	}
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = failKind
		}
		lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	return lines
}

func enhancementLines(cfg *config.Config, capability enhance.Capability, colorize bool) []string {
	accelKind := statusWarn
	if capability.Available {
		accelKind = statusOK
	}
	selected := enhance.Select(enhanceOptions(cfg), logging.NewNop())
	return []string{
		renderStatusLine("Requested", statusInfo, titleLabel(cfg.Enhance.Backend)+", enabled: "+yesNo(cfg.Enhance.Enabled), colorize),
		renderStatusLine("Accelerated", accelKind, capability.Detail, colorize),
		renderStatusLine("Selected", statusOK, titleLabel(selected.Name()), colorize),
	}
}
