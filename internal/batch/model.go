package batch

import (
	"time"
)

// WorkItem describes one source-to-output conversion. It is created during
// enumeration and never modified afterwards.
type WorkItem struct {
	SourcePath      string
	OutputPath      string
	SourceSizeBytes uint64
}

// FailurePhase identifies the pipeline phase in which an item failed.
type FailurePhase int

const (
	PhaseNone FailurePhase = iota
	PhaseDecode
	PhaseEnhance
	PhaseEncode
)

func (p FailurePhase) String() string {
	switch p {
	case PhaseDecode:
		return "decode"
	case PhaseEnhance:
		return "enhance"
	case PhaseEncode:
		return "encode"
	default:
		return "none"
	}
}

// ParsePhase is the inverse of FailurePhase.String. Unknown values map to PhaseNone.
func ParsePhase(value string) FailurePhase {
	switch value {
	case "decode":
		return PhaseDecode
	case "enhance":
		return PhaseEnhance
	case "encode":
		return PhaseEncode
	default:
		return PhaseNone
	}
}

// Outcome is the terminal record for one WorkItem.
type Outcome struct {
	Item            WorkItem
	Succeeded       bool
	FailurePhase    FailurePhase
	ErrorDetail     string
	OutputSizeBytes uint64
	Elapsed         time.Duration
}

// SizeDelta returns the output size change relative to the source as a
// percentage. ok is false for failed items and empty sources.
func (o Outcome) SizeDelta() (pct float64, ok bool) {
	if !o.Succeeded || o.Item.SourceSizeBytes == 0 {
		return 0, false
	}
	src := float64(o.Item.SourceSizeBytes)
	return (float64(o.OutputSizeBytes) - src) / src * 100, true
}

// Report summarizes one batch run. Entries are sorted by source path.
type Report struct {
	RunID        string
	Backend      string
	StartedAt    time.Time
	TotalCount   int
	SuccessCount int
	FailureCount int
	TotalElapsed time.Duration
	Entries      []Outcome
	// NoInput is set when enumeration found nothing to convert.
	NoInput bool
}

// Failures returns the failed entries in report order.
func (r Report) Failures() []Outcome {
	var out []Outcome
	for _, entry := range r.Entries {
		if !entry.Succeeded {
			out = append(out, entry)
		}
	}
	return out
}

// Bytes returns the summed source and output sizes of successful entries.
func (r Report) Bytes() (source, output uint64) {
	for _, entry := range r.Entries {
		if entry.Succeeded {
			source += entry.Item.SourceSizeBytes
			output += entry.OutputSizeBytes
		}
	}
	return source, output
}
