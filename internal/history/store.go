package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"szurutools/internal/config"
)

// Run kinds.
const (
	KindImport       = "import"
	KindImplications = "implications"
	KindSweep        = "sweep"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// DefaultListLimit bounds List when the caller passes no limit.
const DefaultListLimit = 20

// Run is one recorded run.
type Run struct {
	ID         int64           `json:"id"`
	Kind       string          `json:"kind"`
	RequestID  string          `json:"request_id,omitempty"`
	DryRun     bool            `json:"dry_run"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	Request    json.RawMessage `json:"request,omitempty"`
	Summary    json.RawMessage `json:"summary,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// NewRun builds a run record, encoding request and summary as JSON. A
// non-nil runErr marks the run failed.
func NewRun(kind string, dryRun bool, request, summary any, startedAt time.Time, runErr error) Run {
	run := Run{
		Kind:       kind,
		DryRun:     dryRun,
		Status:     StatusOK,
		Request:    encode(request),
		Summary:    encode(summary),
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
	if runErr != nil {
		run.Status = StatusFailed
		run.Error = runErr.Error()
	}
	return run
}

func encode(value any) json.RawMessage {
	if value == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return data
}

// Duration reports how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the history database configured for cfg.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("configuration unavailable")
	}
	return OpenPath(cfg.HistoryPath())
}

// OpenPath initializes or connects to the history database at path.
func OpenPath(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
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

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Record appends run and returns it with its assigned ID.
func (s *Store) Record(ctx context.Context, run Run) (*Run, error) {
	if run.Kind == "" {
		return nil, errors.New("run kind required")
	}
	if run.Status == "" {
		run.Status = StatusOK
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = run.FinishedAt
	}
	run.StartedAt = run.StartedAt.UTC()
	run.FinishedAt = run.FinishedAt.UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (
            kind, request_id, dry_run, status, error_message,
            request_json, summary_json, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Kind,
		nullableString(run.RequestID),
		run.DryRun,
		run.Status,
		nullableString(run.Error),
		nullableString(string(run.Request)),
		nullableString(string(run.Summary)),
		run.StartedAt.Format(time.RFC3339Nano),
		run.FinishedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	run.ID = id
	return &run, nil
}

// List returns up to limit runs, newest first. Zero or negative limits use
// DefaultListLimit.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, request_id, dry_run, status, error_message,
                request_json, summary_json, started_at, finished_at
         FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var run Run
	var requestID, errMsg, requestJSON, summaryJSON sql.NullString
	var startedAt, finishedAt string
	if err := rows.Scan(&run.ID, &run.Kind, &requestID, &run.DryRun, &run.Status, &errMsg,
		&requestJSON, &summaryJSON, &startedAt, &finishedAt); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.RequestID = requestID.String
	run.Error = errMsg.String
	if requestJSON.Valid && requestJSON.String != "" {
		run.Request = json.RawMessage(requestJSON.String)
	}
	if summaryJSON.Valid && summaryJSON.String != "" {
		run.Summary = json.RawMessage(summaryJSON.String)
	}
	var err error
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
		return Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
