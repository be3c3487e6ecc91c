package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"rawconv/internal/batch"
)

// Store persists run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Run is the summary row of one recorded batch.
type Run struct {
	ID           string
	StartedAt    time.Time
	Backend      string
	TotalCount   int
	SuccessCount int
	FailureCount int
	Elapsed      time.Duration
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open creates or connects to the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// timestampLayout has fixed-width fractions so stored values sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record stores a completed report and its outcomes in one transaction.
// Reports without a run ID or without entries are ignored.
func (s *Store) Record(ctx context.Context, report batch.Report) error {
	if report.RunID == "" || report.TotalCount == 0 {
		return nil
	}
	startedAt := report.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin record tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runs (id, started_at, backend, total_count, success_count, failure_count, elapsed_ms)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			report.RunID,
			startedAt.UTC().Format(timestampLayout),
			report.Backend,
			report.TotalCount,
			report.SuccessCount,
			report.FailureCount,
			report.TotalElapsed.Milliseconds(),
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO outcomes (run_id, source_path, output_path, source_bytes, succeeded,
                 failure_phase, error_detail, output_bytes, elapsed_ms)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare outcome insert: %w", err)
		}
		defer stmt.Close()

		for _, entry := range report.Entries {
			if _, err := stmt.ExecContext(ctx,
				report.RunID,
				entry.Item.SourcePath,
				entry.Item.OutputPath,
				int64(entry.Item.SourceSizeBytes),
				entry.Succeeded,
				entry.FailurePhase.String(),
				nullableString(entry.ErrorDetail),
				int64(entry.OutputSizeBytes),
				entry.Elapsed.Milliseconds(),
			); err != nil {
				return fmt.Errorf("insert outcome %s: %w", entry.Item.SourcePath, err)
			}
		}
		return tx.Commit()
	})
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, backend, total_count, success_count, failure_count, elapsed_ms
         FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run       Run
			startedAt string
			elapsedMS int64
		)
		if err := rows.Scan(&run.ID, &startedAt, &run.Backend, &run.TotalCount, &run.SuccessCount, &run.FailureCount, &elapsedMS); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt, _ = time.Parse(timestampLayout, startedAt)
		run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Outcomes returns the recorded outcomes of a run sorted by source path.
// A run ID prefix is accepted when it is unambiguous.
func (s *Store) Outcomes(ctx context.Context, runID string) (string, []batch.Outcome, error) {
	id, err := s.resolveRunID(ctx, runID)
	if err != nil {
		return "", nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_path, output_path, source_bytes, succeeded, failure_phase, error_detail, output_bytes, elapsed_ms
         FROM outcomes WHERE run_id = ? ORDER BY source_path`, id)
	if err != nil {
		return "", nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []batch.Outcome
	for rows.Next() {
		var (
			o           batch.Outcome
			sourceBytes int64
			outputBytes int64
			phase       string
			detail      sql.NullString
			elapsedMS   int64
		)
		if err := rows.Scan(&o.Item.SourcePath, &o.Item.OutputPath, &sourceBytes, &o.Succeeded, &phase, &detail, &outputBytes, &elapsedMS); err != nil {
			return "", nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Item.SourceSizeBytes = uint64(sourceBytes)
		o.OutputSizeBytes = uint64(outputBytes)
		o.FailurePhase = batch.ParsePhase(phase)
		o.ErrorDetail = detail.String
		o.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		outcomes = append(outcomes, o)
	}
	return id, outcomes, rows.Err()
}

// ErrRunNotFound is returned when no run matches the requested ID.
var ErrRunNotFound = errors.New("run not found")

func (s *Store) resolveRunID(ctx context.Context, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE substr(id, 1, length(?)) = ? LIMIT 2`, prefix, prefix)
	if err != nil {
		return "", fmt.Errorf("resolve run id: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("run id prefix %q is ambiguous", prefix)
	}
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
