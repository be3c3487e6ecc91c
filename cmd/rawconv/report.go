package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"rawconv/internal/batch"
)

var titleCaser = cases.Title(language.English)

// titleLabel renders identifiers such as "decode" or "reference" for display.
func titleLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return titleCaser.String(value)
}

func formatMiB(bytes uint64) string {
	return fmt.Sprintf("%.2f", float64(bytes)/(1<<20))
}

func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

// outcomeRows renders one table row per entry, in report order.
func outcomeRows(entries []batch.Outcome) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		status := "OK"
		phase := "-"
		output := "-"
		detail := ""
		if entry.Succeeded {
			output = formatMiB(entry.OutputSizeBytes)
		} else {
			status = "FAILED"
			phase = titleLabel(entry.FailurePhase.String())
			detail = entry.ErrorDetail
		}
		rows = append(rows, []string{
			filepath.Base(entry.Item.SourcePath),
			status,
			phase,
			formatMiB(entry.Item.SourceSizeBytes),
			output,
			batch.DeltaLabel(entry),
			formatElapsed(entry.Elapsed),
			detail,
		})
	}
	return rows
}

var outcomeHeaders = []string{"Source", "Status", "Phase", "Source MiB", "Output MiB", "Delta", "Elapsed", "Detail"}

var outcomeAligns = []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft}

func renderReport(report *batch.Report, colorize bool) string {
	var b strings.Builder
	b.WriteString(renderTable(outcomeHeaders, outcomeRows(report.Entries), outcomeAligns))
	b.WriteString("\n\n")

	for _, line := range renderSectionHeader("Summary", colorize) {
		b.WriteString(line + "\n")
	}
	lines := []string{
		renderStatusLine("Run", statusInfo, report.RunID, colorize),
		renderStatusLine("Backend", statusInfo, titleLabel(report.Backend), colorize),
		renderStatusLine("Converted", statusOK, fmt.Sprintf("%d of %d", report.SuccessCount, report.TotalCount), colorize),
	}
	failedKind := statusOK
	if report.FailureCount > 0 {
		failedKind = statusError
	}
	lines = append(lines, renderStatusLine("Failed", failedKind, fmt.Sprintf("%d", report.FailureCount), colorize))

	source, output := report.Bytes()
	sizeMsg := fmt.Sprintf("%s MiB -> %s MiB", formatMiB(source), formatMiB(output))
	if source > 0 {
		sizeMsg += " (" + batch.FormatDelta((float64(output)-float64(source))/float64(source)*100) + ")"
	}
	lines = append(lines,
		renderStatusLine("Size", statusInfo, sizeMsg, colorize),
		renderStatusLine("Elapsed", statusInfo, formatElapsed(report.TotalElapsed), colorize),
	)
	for _, line := range lines {
		b.WriteString(line + "\n")
	}
	return b.String()
}

type outcomeJSON struct {
	Source       string   `json:"source"`
	Output       string   `json:"output"`
	Succeeded    bool     `json:"succeeded"`
	FailurePhase string   `json:"failure_phase,omitempty"`
	Error        string   `json:"error,omitempty"`
	SourceBytes  uint64   `json:"source_bytes"`
	OutputBytes  uint64   `json:"output_bytes"`
	DeltaPercent *float64 `json:"delta_percent"`
	ElapsedMS    int64    `json:"elapsed_ms"`
}

type reportJSON struct {
	RunID         string        `json:"run_id,omitempty"`
	Backend       string        `json:"backend,omitempty"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	Total         int           `json:"total"`
	Succeeded     int           `json:"succeeded"`
	Failed        int           `json:"failed"`
	ElapsedMS     int64         `json:"elapsed_ms"`
	NoInput       bool          `json:"no_input,omitempty"`
	Refused       bool          `json:"refused,omitempty"`
	RefusalReason string        `json:"refusal_reason,omitempty"`
	Entries       []outcomeJSON `json:"entries"`
}

func outcomesToJSON(entries []batch.Outcome) []outcomeJSON {
	out := make([]outcomeJSON, 0, len(entries))
	for _, entry := range entries {
		item := outcomeJSON{
			Source:      entry.Item.SourcePath,
			Output:      entry.Item.OutputPath,
			Succeeded:   entry.Succeeded,
			Error:       entry.ErrorDetail,
			SourceBytes: entry.Item.SourceSizeBytes,
			OutputBytes: entry.OutputSizeBytes,
			ElapsedMS:   entry.Elapsed.Milliseconds(),
		}
		if !entry.Succeeded {
			item.FailurePhase = entry.FailurePhase.String()
		}
		if pct, ok := entry.SizeDelta(); ok {
			item.DeltaPercent = &pct
		}
		out = append(out, item)
	}
	return out
}

func reportToJSON(report *batch.Report) reportJSON {
	payload := reportJSON{
		RunID:     report.RunID,
		Backend:   report.Backend,
		Total:     report.TotalCount,
		Succeeded: report.SuccessCount,
		Failed:    report.FailureCount,
		ElapsedMS: report.TotalElapsed.Milliseconds(),
		NoInput:   report.NoInput,
		Entries:   outcomesToJSON(report.Entries),
	}
	if !report.StartedAt.IsZero() {
		started := report.StartedAt.UTC()
		payload.StartedAt = &started
	}
	return payload
}

func refusalJSON(err error) reportJSON {
	reason := strings.TrimPrefix(err.Error(), batch.ErrGateRefused.Error()+": ")
	return reportJSON{Refused: true, RefusalReason: reason, Entries: []outcomeJSON{}}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
