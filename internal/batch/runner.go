package batch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"rawconv/internal/enhance"
	"rawconv/internal/logging"
	"rawconv/internal/services"
)

// Gate decides whether a batch may start.
type Gate interface {
	Check(ctx context.Context) (allowed bool, message string)
}

// GateFunc adapts a function to Gate.
type GateFunc func(ctx context.Context) (bool, string)

func (f GateFunc) Check(ctx context.Context) (bool, string) { return f(ctx) }

// AllowAll is a Gate that never refuses.
var AllowAll Gate = GateFunc(func(context.Context) (bool, string) { return true, "" })

// Enumerator lists the items of a batch. An empty result means nothing to do.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]WorkItem, error)
}

// EnumeratorFunc adapts a function to Enumerator.
type EnumeratorFunc func(ctx context.Context) ([]WorkItem, error)

func (f EnumeratorFunc) Enumerate(ctx context.Context) ([]WorkItem, error) { return f(ctx) }

// Recorder persists completed reports.
type Recorder interface {
	Record(ctx context.Context, report Report) error
}

// RunnerConfig wires a Runner's collaborators.
type RunnerConfig struct {
	Gate       Gate
	Enumerator Enumerator
	Converter  Converter
	// SelectBackend is called once per Run, after the gate and enumeration
	// and before any item is dispatched.
	SelectBackend func() enhance.Backend
	Concurrency   int
	Recorder      Recorder
	Logger        *slog.Logger
}

// Runner executes whole batches: gate, enumerate, select backend, dispatch, report.
type Runner struct {
	cfg      RunnerConfig
	logger   *slog.Logger
	newRunID func() string
}

// NewRunner builds a Runner. A nil Gate allows every batch.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Gate == nil {
		cfg.Gate = AllowAll
	}
	if cfg.SelectBackend == nil {
		cfg.SelectBackend = func() enhance.Backend { return enhance.NewReference(enhance.DefaultParams()) }
	}
	return &Runner{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(cfg.Logger, "batch"),
		newRunID: func() string { return uuid.NewString() },
	}
}

// Run executes one batch. A refused gate returns an error wrapping
// ErrGateRefused and no report. An empty enumeration returns a report with
// NoInput set and a nil error. Per-item failures are reported as Outcomes,
// never as errors.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if r.cfg.Enumerator == nil || r.cfg.Converter == nil {
		return nil, errors.New("batch runner: enumerator and converter are required")
	}

	runID := r.newRunID()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)

	if allowed, message := r.cfg.Gate.Check(ctx); !allowed {
		logging.WarnWithContext(logger, "preflight gate refused batch", "gate_refused",
			logging.String("reason", message),
			logging.String(logging.FieldImpact, "no files were converted"),
			logging.String(logging.FieldErrorHint, "resolve the preflight condition or rerun with --skip-preflight"),
		)
		return nil, gateRefused(message)
	}

	items, err := r.cfg.Enumerator.Enumerate(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "batch", "enumerate inputs", "", err)
	}
	if len(items) == 0 {
		logger.Info("no input files found; nothing to do")
		return &Report{RunID: runID, NoInput: true}, nil
	}

	backend := r.cfg.SelectBackend()
	pool := NewPool(r.cfg.Concurrency, r.cfg.Logger)
	logger.Info("batch started",
		logging.Int("items", len(items)),
		logging.Int("workers", pool.Concurrency()),
		logging.String(logging.FieldBackend, backend.Name()),
	)

	collector := NewCollector()
	pool.Run(ctx, items, backend, r.cfg.Converter, collector.Add)

	report := collector.Report()
	report.RunID = runID
	report.Backend = backend.Name()

	logger.Info("batch completed",
		logging.Int("total", report.TotalCount),
		logging.Int("succeeded", report.SuccessCount),
		logging.Int("failed", report.FailureCount),
		logging.Duration("elapsed", report.TotalElapsed),
	)

	if r.cfg.Recorder != nil {
		if err := r.cfg.Recorder.Record(context.WithoutCancel(ctx), report); err != nil {
			logging.WarnWithContext(logger, "failed to record batch history", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run will be missing from rawconv history"),
				logging.String(logging.FieldErrorHint, "check the history database path and permissions"),
			)
		}
	}
	return &report, nil
}
