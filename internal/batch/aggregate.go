package batch

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Collector accumulates Outcomes from concurrent workers.
type Collector struct {
	mu       sync.Mutex
	started  time.Time
	last     time.Time
	outcomes []Outcome
	now      func() time.Time
}

// NewCollector starts the batch clock.
func NewCollector() *Collector {
	c := &Collector{now: time.Now}
	c.started = c.now()
	c.last = c.started
	return c
}

// Add appends an Outcome. Safe for concurrent use.
func (c *Collector) Add(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, o)
	c.last = c.now()
}

// Outcomes returns a copy of the collected outcomes in arrival order.
func (c *Collector) Outcomes() []Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Outcome(nil), c.outcomes...)
}

// Report builds the sorted summary. TotalElapsed runs from NewCollector to
// the last Add.
func (c *Collector) Report() Report {
	c.mu.Lock()
	elapsed := c.last.Sub(c.started)
	started := c.started
	outcomes := append([]Outcome(nil), c.outcomes...)
	c.mu.Unlock()

	report := Aggregate(outcomes, elapsed)
	report.StartedAt = started
	return report
}

// Aggregate sorts outcomes by source path and computes the summary counts.
// The input slice is not modified.
func Aggregate(outcomes []Outcome, elapsed time.Duration) Report {
	entries := append([]Outcome(nil), outcomes...)
	slices.SortStableFunc(entries, func(a, b Outcome) int {
		if c := strings.Compare(a.Item.SourcePath, b.Item.SourcePath); c != 0 {
			return c
		}
		return strings.Compare(a.Item.OutputPath, b.Item.OutputPath)
	})

	report := Report{
		TotalCount:   len(entries),
		TotalElapsed: elapsed,
		Entries:      entries,
	}
	for _, entry := range entries {
		if entry.Succeeded {
			report.SuccessCount++
		} else {
			report.FailureCount++
		}
	}
	return report
}

// FormatDelta renders a size change as a signed percentage, e.g. "+12.3%".
func FormatDelta(pct float64) string {
	return fmt.Sprintf("%+.1f%%", pct)
}

// DeltaLabel renders an Outcome's size change, or "N/A" when it is undefined.
func DeltaLabel(o Outcome) string {
	pct, ok := o.SizeDelta()
	if !ok {
		return "N/A"
	}
	return FormatDelta(pct)
}
