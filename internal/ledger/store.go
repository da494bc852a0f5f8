package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"sarchain/internal/artifact"
	"sarchain/internal/services"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one recorded pipeline invocation.
type Run struct {
	ID           string
	Command      string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Status       Status
	ErrorKind    string
	ErrorMessage string
}

// Entry is one recorded checkpoint.
type Entry struct {
	Path      string
	RunID     string
	Stage     string
	Source    string
	WrittenAt time.Time
}

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ledger path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun inserts a running row and returns its generated ID.
func (s *Store) BeginRun(ctx context.Context, command string) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		Command:   command,
		StartedAt: time.Now().UTC(),
		Status:    StatusRunning,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, started_at, status) VALUES (?, ?, ?, ?)`,
		run.ID, run.Command, formatTime(run.StartedAt), string(run.Status),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun marks the run succeeded when runErr is nil or advisory, failed otherwise.
func (s *Store) FinishRun(ctx context.Context, id string, runErr error) error {
	status := StatusSucceeded
	var kind, message string
	if runErr != nil {
		kind = services.Kind(runErr)
		message = runErr.Error()
		if services.SeverityOf(runErr) == services.SeverityFatal {
			status = StatusFailed
		}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, error_kind = ?, error_message = ? WHERE id = ?`,
		formatTime(time.Now().UTC()), string(status), nullableString(kind), nullableString(message), id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: run %s not found", id)
	}
	return nil
}

// RecordArtifact upserts the checkpoint row for a.Path under runID.
func (s *Store) RecordArtifact(ctx context.Context, runID string, a artifact.Artifact) error {
	writtenAt := a.WrittenAt
	if writtenAt.IsZero() {
		writtenAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (derived_path, run_id, stage, source_path, written_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(derived_path) DO UPDATE SET
			run_id = excluded.run_id,
			stage = excluded.stage,
			source_path = excluded.source_path,
			written_at = excluded.written_at`,
		a.Path, runID, a.Stage, a.Source, formatTime(writtenAt),
	)
	if err != nil {
		return fmt.Errorf("record artifact %s: %w", a.Path, err)
	}
	return nil
}

// ListArtifacts returns recorded checkpoints, newest first. A non-empty runID
// restricts the result to that run.
func (s *Store) ListArtifacts(ctx context.Context, runID string) ([]Entry, error) {
	query := `SELECT derived_path, run_id, stage, source_path, written_at FROM artifacts`
	var args []any
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY written_at DESC, derived_path`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var writtenAt string
		if err := rows.Scan(&e.Path, &e.RunID, &e.Stage, &e.Source, &writtenAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		if ts, err := parseTimeString(writtenAt); err == nil {
			e.WrittenAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListRuns returns up to limit runs, newest first. limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, command, started_at, finished_at, status, error_kind, error_message FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run                         Run
			startedAt, status           string
			finishedAt, kind, errorText sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Command, &startedAt, &finishedAt, &status, &kind, &errorText); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = Status(status)
		run.ErrorKind = kind.String
		run.ErrorMessage = errorText.String
		if ts, err := parseTimeString(startedAt); err == nil {
			run.StartedAt = ts
		}
		if finishedAt.Valid {
			if ts, err := parseTimeString(finishedAt.String); err == nil {
				run.FinishedAt = &ts
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Recorder binds the store to one run so it satisfies artifact.Recorder.
func (s *Store) Recorder(runID string) artifact.Recorder {
	return runRecorder{store: s, runID: runID}
}

type runRecorder struct {
	store *Store
	runID string
}

func (r runRecorder) RecordArtifact(ctx context.Context, a artifact.Artifact) error {
	return r.store.RecordArtifact(ctx, r.runID, a)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout is fixed width so stored timestamps sort lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
