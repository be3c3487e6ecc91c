package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rawconv/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded batch runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			path := cfg.HistoryPath()
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				if jsonOutput {
					return writeJSON(cmd, []historyRunJSON{})
				}
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}

			store, err := history.Open(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			if id := strings.TrimSpace(runID); id != "" {
				fullID, outcomes, err := store.Outcomes(cmd.Context(), id)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, map[string]any{"run_id": fullID, "entries": outcomesToJSON(outcomes)})
				}
				fmt.Fprintf(out, "Run %s\n", fullID)
				fmt.Fprintln(out, renderTable(outcomeHeaders, outcomeRows(outcomes), outcomeAligns))
				return nil
			}

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, historyRunsToJSON(runs))
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Backend", "Total", "OK", "Failed", "Elapsed"},
				historyRows(runs),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show the outcomes of one run (ID or unique prefix)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print as JSON")
	return cmd
}

func historyRows(runs []history.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		id := run.ID
		if len(id) > 8 {
			id = id[:8]
		}
		rows = append(rows, []string{
			id,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			titleLabel(run.Backend),
			fmt.Sprintf("%d", run.TotalCount),
			fmt.Sprintf("%d", run.SuccessCount),
			fmt.Sprintf("%d", run.FailureCount),
			formatElapsed(run.Elapsed),
		})
	}
	return rows
}

type historyRunJSON struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Backend   string    `json:"backend"`
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	ElapsedMS int64     `json:"elapsed_ms"`
}

func historyRunsToJSON(runs []history.Run) []historyRunJSON {
	out := make([]historyRunJSON, 0, len(runs))
	for _, run := range runs {
		out = append(out, historyRunJSON{
			RunID:     run.ID,
			StartedAt: run.StartedAt.UTC(),
			Backend:   run.Backend,
			Total:     run.TotalCount,
			Succeeded: run.SuccessCount,
			Failed:    run.FailureCount,
			ElapsedMS: run.Elapsed.Milliseconds(),
		})
	}
	return out
}
