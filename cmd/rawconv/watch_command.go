package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rawconv/internal/batch"
	"rawconv/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Convert new RAW files as they arrive in the input directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.configCopy()
			if err != nil {
				return err
			}
			runCtx := cmd.Context()

			sess, err := openSession(runCtx, cfg)
			if err != nil {
				return err
			}
			defer sess.Close()

			seen := watch.NewSeen()
			runner, enumerator := sess.runner(runnerOptions{
				skipPreflight: skipPreflight,
				exclude:       seen.Contains,
			})

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			watcher, err := watch.New(watch.Options{
				Dir:       cfg.Paths.InputDir,
				Recursive: cfg.Input.Recursive,
				Debounce:  cfg.WatchDebounce(),
				Matches:   enumerator.Matches,
				Runner:    runner,
				Seen:      seen,
				OnReport: func(report *batch.Report) {
					fmt.Fprint(out, renderReport(report, colorize))
				},
				Logger: sess.logger,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", cfg.Paths.InputDir)
			return watcher.Run(runCtx)
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Do not consult the power and disk gate")
	return cmd
}
