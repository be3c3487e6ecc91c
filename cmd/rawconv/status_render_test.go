package main

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"rawconv/internal/batch"
	"rawconv/internal/deps"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Backend", statusError, "unavailable", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Backend:", "[ERROR] unavailable")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Converted", statusOK, "3 of 3", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	statuses := []deps.Status{
		{Name: "RAW decoder", Available: false, Detail: `binary "dcraw" not found`},
		{Name: "exiftool", Available: false, Optional: true, Detail: "not installed"},
	}
	lines := dependencyLines(statuses, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[ERROR] 1 missing") {
		t.Fatalf("unexpected summary line %q", lines[0])
	}
	if !strings.Contains(lines[2], "[WARN]") {
		t.Fatalf("optional dependency should warn, got %q", lines[2])
	}
}

func TestOutcomeRows(t *testing.T) {
	rows := outcomeRows([]batch.Outcome{
		{Item: batch.WorkItem{SourcePath: "/in/a.nef", SourceSizeBytes: 2 << 20}, Succeeded: true, OutputSizeBytes: 1 << 20, Elapsed: 1500 * time.Millisecond},
		{Item: batch.WorkItem{SourcePath: "/in/empty.nef"}, Succeeded: true},
		{Item: batch.WorkItem{SourcePath: "/in/bad.nef", SourceSizeBytes: 10}, FailurePhase: batch.PhaseEncode, ErrorDetail: "disk full"},
	})
	if got := rows[0]; got[0] != "a.nef" || got[1] != "OK" || got[3] != "2.00" || got[4] != "1.00" || got[5] != "-50.0%" || got[6] != "1.5s" {
		t.Fatalf("unexpected success row: %v", got)
	}
	if rows[1][5] != "N/A" {
		t.Fatalf("zero-byte source should report N/A, got %q", rows[1][5])
	}
	if got := rows[2]; got[1] != "FAILED" || got[2] != "Encode" || got[4] != "-" || got[5] != "N/A" || got[7] != "disk full" {
		t.Fatalf("unexpected failure row: %v", got)
	}
}

func TestTitleLabel(t *testing.T) {
	cases := map[string]string{"reference": "Reference", "decode": "Decode", "": "-", " none ": "None"}
	for in, want := range cases {
		if got := titleLabel(in); got != want {
			t.Fatalf("titleLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
