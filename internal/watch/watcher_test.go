package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rawconv/internal/batch"
	"rawconv/internal/logging"
	"rawconv/internal/watch"
)

// recordingRunner reports every file currently in dir that is not yet seen.
type recordingRunner struct {
	dir   string
	seen  *watch.Seen
	calls chan []string
}

func (r *recordingRunner) Run(ctx context.Context) (*batch.Report, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	var outcomes []batch.Outcome
	for _, entry := range entries {
		path := filepath.Join(r.dir, entry.Name())
		if !strings.HasSuffix(entry.Name(), ".nef") || r.seen.Contains(path) {
			continue
		}
		names = append(names, entry.Name())
		outcomes = append(outcomes, batch.Outcome{Item: batch.WorkItem{SourcePath: path}, Succeeded: true})
	}
	r.calls <- names
	if len(outcomes) == 0 {
		return &batch.Report{NoInput: true}, nil
	}
	report := batch.Aggregate(outcomes, time.Millisecond)
	return &report, nil
}

func waitForCall(t *testing.T, calls <-chan []string) []string {
	t.Helper()
	select {
	case names := <-calls:
		return names
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for batch")
		return nil
	}
}

func TestWatcherConvertsBacklogAndNewArrivals(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "existing.nef"), []byte("raw"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	seen := watch.NewSeen()
	runner := &recordingRunner{dir: dir, seen: seen, calls: make(chan []string, 8)}
	reports := make(chan *batch.Report, 8)
	w, err := watch.New(watch.Options{
		Dir:      dir,
		Debounce: 50 * time.Millisecond,
		Matches:  func(path string) bool { return strings.HasSuffix(path, ".nef") },
		Runner:   runner,
		Seen:     seen,
		OnReport: func(r *batch.Report) { reports <- r },
		Logger:   logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	if got := waitForCall(t, runner.calls); len(got) != 1 || got[0] != "existing.nef" {
		t.Fatalf("backlog batch = %v, want [existing.nef]", got)
	}

	// Give the watcher a moment to record the first report before new files arrive.
	deadline := time.Now().Add(2 * time.Second)
	for seen.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if seen.Len() != 1 {
		t.Fatalf("expected backlog file to be marked seen, got %d", seen.Len())
	}

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "new.nef"), []byte("raw"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := waitForCall(t, runner.calls); len(got) != 1 || got[0] != "new.nef" {
		t.Fatalf("second batch = %v, want [new.nef]", got)
	}

	for range 2 {
		select {
		case <-reports:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for report")
		}
	}
	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestWatcherIgnoresNonMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	seen := watch.NewSeen()
	runner := &recordingRunner{dir: dir, seen: seen, calls: make(chan []string, 8)}
	w, err := watch.New(watch.Options{
		Dir:      dir,
		Debounce: 30 * time.Millisecond,
		Matches:  func(path string) bool { return strings.HasSuffix(path, ".nef") },
		Runner:   runner,
		Seen:     seen,
		Logger:   logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	waitForCall(t, runner.calls)
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case names := <-runner.calls:
		t.Fatalf("unexpected batch for non-matching file: %v", names)
	case <-time.After(300 * time.Millisecond):
	}
	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func TestNewRequiresRunner(t *testing.T) {
	if _, err := watch.New(watch.Options{Dir: t.TempDir()}); err == nil {
		t.Fatal("expected error without runner")
	}
	if _, err := watch.New(watch.Options{Runner: &recordingRunner{}}); err == nil {
		t.Fatal("expected error without directory")
	}
}

func TestSeenForgetAndReport(t *testing.T) {
	seen := watch.NewSeen()
	seen.AddReport(&batch.Report{Entries: []batch.Outcome{
		{Item: batch.WorkItem{SourcePath: "/in/a.nef"}},
		{Item: batch.WorkItem{SourcePath: "/in/./b.nef"}},
	}})
	if !seen.Contains("/in/a.nef") || !seen.Contains("/in/b.nef") {
		t.Fatal("expected both paths to be seen")
	}
	seen.Forget("/in/a.nef")
	if seen.Contains("/in/a.nef") {
		t.Fatal("expected a.nef to be forgotten")
	}
	seen.AddReport(nil)
	if seen.Len() != 1 {
		t.Fatalf("Len = %d, want 1", seen.Len())
	}
}

// heldRunner behaves like recordingRunner but holds its first batch open
// until release is closed.
type heldRunner struct {
	recordingRunner
	started chan struct{}
	release chan struct{}
	first   bool
}

func (r *heldRunner) Run(ctx context.Context) (*batch.Report, error) {
	report, err := r.recordingRunner.Run(ctx)
	if !r.first {
		r.first = true
		close(r.started)
		<-r.release
	}
	return report, err
}

func TestWatcherReconvertsFileRewrittenDuringBatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.nef")
	if err := os.WriteFile(path, []byte("partial"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	seen := watch.NewSeen()
	runner := &heldRunner{
		recordingRunner: recordingRunner{dir: dir, seen: seen, calls: make(chan []string, 8)},
		started:         make(chan struct{}),
		release:         make(chan struct{}),
	}
	w, err := watch.New(watch.Options{
		Dir:      dir,
		Debounce: 50 * time.Millisecond,
		Matches:  func(p string) bool { return strings.HasSuffix(p, ".nef") },
		Runner:   runner,
		Seen:     seen,
		Logger:   logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	if got := waitForCall(t, runner.calls); len(got) != 1 || got[0] != "a.nef" {
		t.Fatalf("first batch = %v, want [a.nef]", got)
	}
	select {
	case <-runner.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first batch did not start")
	}

	if err := os.WriteFile(path, []byte("complete raw data"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	// Let the watcher observe the write while the batch is still held.
	time.Sleep(200 * time.Millisecond)
	close(runner.release)

	if got := waitForCall(t, runner.calls); len(got) != 1 || got[0] != "a.nef" {
		t.Fatalf("second batch = %v, want [a.nef] (seen=%v)", got, seen.Contains(path))
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}
