package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rawconv/internal/batch"
	"rawconv/internal/config"
)

type convertFlags struct {
	input         string
	output        string
	workers       int
	backend       string
	format        string
	quality       int
	noEnhance     bool
	skipPreflight bool
	jsonOutput    bool
	timeout       time.Duration
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var flags convertFlags

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert every RAW file in the input directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.configCopy()
			if err != nil {
				return err
			}
			if err := applyConvertFlags(cmd, cfg, flags); err != nil {
				return err
			}
			return runConvert(cmd, cfg, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "Input directory (overrides paths.input_dir)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output directory (overrides paths.output_dir)")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Concurrent workers (0 = one per CPU)")
	cmd.Flags().StringVar(&flags.backend, "backend", "", "Enhancement backend: auto, reference, accelerated")
	cmd.Flags().StringVar(&flags.format, "format", "", "Output format: jpeg, png, tiff")
	cmd.Flags().IntVar(&flags.quality, "quality", 0, "JPEG quality 1-100")
	cmd.Flags().BoolVar(&flags.noEnhance, "no-enhance", false, "Skip enhancement (baseline conversion)")
	cmd.Flags().BoolVar(&flags.skipPreflight, "skip-preflight", false, "Do not consult the power and disk gate")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Print the report as JSON")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Abort unfinished items after this long (0 = no limit)")
	return cmd
}

// applyConvertFlags layers explicitly set flags over cfg and revalidates.
func applyConvertFlags(cmd *cobra.Command, cfg *config.Config, flags convertFlags) error {
	changed := cmd.Flags().Changed
	if changed("input") {
		cfg.Paths.InputDir = flags.input
	}
	if changed("output") {
		cfg.Paths.OutputDir = flags.output
	}
	if changed("workers") {
		cfg.Workers.Concurrency = flags.workers
	}
	if changed("backend") {
		cfg.Enhance.Backend = flags.backend
	}
	if changed("format") {
		cfg.Output.Format = flags.format
	}
	if changed("quality") {
		cfg.Output.Quality = flags.quality
	}
	if flags.noEnhance {
		cfg.Enhance.Enabled = false
	}
	if err := cfg.Normalize(); err != nil {
		return err
	}
	return cfg.Validate()
}

func runConvert(cmd *cobra.Command, cfg *config.Config, flags convertFlags) error {
	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}
	if flags.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, flags.timeout)
		defer cancel()
	}

	sess, err := openSession(runCtx, cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	runner, _ := sess.runner(runnerOptions{skipPreflight: flags.skipPreflight})
	report, err := runner.Run(runCtx)
	out := cmd.OutOrStdout()
	if err != nil {
		if errors.Is(err, batch.ErrGateRefused) {
			if flags.jsonOutput {
				return writeJSON(cmd, refusalJSON(err))
			}
			fmt.Fprintf(out, "Batch not started: %v\n", err)
			return nil
		}
		return err
	}

	if flags.jsonOutput {
		return writeJSON(cmd, reportToJSON(report))
	}
	if report.NoInput {
		fmt.Fprintf(out, "No matching files in %s; nothing to do\n", cfg.Paths.InputDir)
		return nil
	}
	fmt.Fprint(out, renderReport(report, shouldColorize(out)))
	return nil
}
