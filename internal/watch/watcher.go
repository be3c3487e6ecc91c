package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"rawconv/internal/batch"
	"rawconv/internal/logging"
)

// BatchRunner runs one batch. *batch.Runner satisfies it.
type BatchRunner interface {
	Run(ctx context.Context) (*batch.Report, error)
}

// Options configures a Watcher.
type Options struct {
	Dir       string
	Recursive bool
	Debounce  time.Duration
	// Matches filters events down to candidate source files.
	Matches func(path string) bool
	Runner  BatchRunner
	// Seen is shared with the enumerator's Exclude hook.
	Seen *Seen
	// OnReport, when set, receives every completed report.
	OnReport func(*batch.Report)
	Logger   *slog.Logger
}

// Watcher feeds debounced batches to a BatchRunner.
type Watcher struct {
	opts   Options
	logger *slog.Logger
}

// New validates opts and returns a Watcher.
func New(opts Options) (*Watcher, error) {
	if opts.Dir == "" {
		return nil, errors.New("watch: directory is required")
	}
	if opts.Runner == nil {
		return nil, errors.New("watch: runner is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 5 * time.Second
	}
	if opts.Matches == nil {
		opts.Matches = func(string) bool { return true }
	}
	if opts.Seen == nil {
		opts.Seen = NewSeen()
	}
	return &Watcher{opts: opts, logger: logging.NewComponentLogger(opts.Logger, "watch")}, nil
}

type batchResult struct {
	report *batch.Report
	err    error
}

// Run converts whatever is already present, then keeps converting new
// arrivals until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.opts.Dir); err != nil {
		return err
	}
	w.logger.Info("watching for new files",
		logging.String("dir", w.opts.Dir),
		logging.Duration("debounce", w.opts.Debounce),
	)

	// Fire immediately for the backlog.
	timer := time.NewTimer(0)
	defer timer.Stop()

	done := make(chan batchResult, 1)
	running := false
	pending := false
	// Paths that changed while a batch was running. The finished report must
	// not mark them as handled.
	changedDuringRun := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			if running {
				<-done
			}
			w.logger.Info("watch stopped", logging.Int("seen", w.opts.Seen.Len()))
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			path, rearm := w.handleEvent(fw, event)
			if running && path != "" {
				changedDuringRun[path] = struct{}{}
			}
			if rearm {
				timer.Reset(w.opts.Debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "file watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some new files may not trigger a batch"),
				logging.String(logging.FieldErrorHint, "restart rawconv watch if new files are not picked up"),
			)

		case <-timer.C:
			if running {
				pending = true
				continue
			}
			running = true
			go func() {
				report, err := w.opts.Runner.Run(ctx)
				done <- batchResult{report: report, err: err}
			}()

		case res := <-done:
			running = false
			w.finish(res)
			for path := range changedDuringRun {
				w.opts.Seen.Forget(path)
			}
			clear(changedDuringRun)
			if pending {
				pending = false
				timer.Reset(w.opts.Debounce)
			}
		}
	}
}

// handleEvent returns the source path made eligible again by the event, if
// any, and whether the event should (re)arm the debounce timer.
func (w *Watcher) handleEvent(fw *fsnotify.Watcher, event fsnotify.Event) (string, bool) {
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.opts.Seen.Forget(event.Name)
		return event.Name, false
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
	default:
		return "", false
	}

	if event.Has(fsnotify.Create) && w.opts.Recursive {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(fw, event.Name); err != nil {
				w.logger.Debug("failed to watch new directory", logging.String("dir", event.Name), logging.Error(err))
			}
			return "", true
		}
	}
	if !w.opts.Matches(event.Name) {
		return "", false
	}
	w.opts.Seen.Forget(event.Name)
	w.logger.Debug("input changed", logging.String("path", event.Name), logging.String("op", event.Op.String()))
	return event.Name, true
}

func (w *Watcher) finish(res batchResult) {
	if res.err != nil {
		if errors.Is(res.err, batch.ErrGateRefused) {
			w.logger.Info("batch deferred by preflight gate", logging.String("reason", res.err.Error()))
			return
		}
		logging.WarnWithContext(w.logger, "watch batch failed", "watch_batch_failed",
			logging.Error(res.err),
			logging.String(logging.FieldImpact, "pending files were not converted"),
			logging.String(logging.FieldErrorHint, "check the input directory and rerun"),
		)
		return
	}
	if res.report == nil || res.report.NoInput {
		return
	}
	w.opts.Seen.AddReport(res.report)
	if w.opts.OnReport != nil {
		w.opts.OnReport(res.report)
	}
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	if !w.opts.Recursive {
		if err := fw.Add(root); err != nil {
			return fmt.Errorf("watch %s: %w", root, err)
		}
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
