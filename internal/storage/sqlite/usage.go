package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mwhitby/summit/internal/usage"
	"github.com/mwhitby/summit/pkg/logger"
)

// RunInfo is the per-run row stored alongside its usage records
type RunInfo struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Model         string    `json:"model"`
	MeetingsTotal int       `json:"meetings_total"`
	Succeeded     int       `json:"succeeded"`
	Failed        int       `json:"failed"`
	Skipped       int       `json:"skipped"`
	InputTokens   int64     `json:"input_tokens"`
	OutputTokens  int64     `json:"output_tokens"`
	EstimatedCost float64   `json:"estimated_cost"`
}

// UsageArchive is a SQLite-based archive of runs and their inference usage
type UsageArchive struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewUsageArchive opens (or creates) the archive database at dbPath
func NewUsageArchive(dbPath string, log *logger.Logger) (*UsageArchive, error) {
	archiveLogger := log.Named("sqlite")

	archiveLogger.Info("Initializing SQLite usage archive",
		logger.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := initDatabase(db, archiveLogger); err != nil {
		db.Close()
		return nil, err
	}

	return &UsageArchive{
		db:     db,
		logger: archiveLogger,
	}, nil
}

// Close closes the database connection
func (a *UsageArchive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// initDatabase initializes the database schema
func initDatabase(db *sql.DB, log *logger.Logger) error {
	log.Info("Initializing database schema")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL,
			model TEXT NOT NULL,
			meetings_total INTEGER NOT NULL,
			succeeded INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			input_tokens INTEGER NOT NULL,
			output_tokens INTEGER NOT NULL,
			estimated_cost REAL NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS usage_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			context TEXT NOT NULL,
			model TEXT NOT NULL,
			input_tokens INTEGER NOT NULL,
			output_tokens INTEGER NOT NULL,
			latency_ms INTEGER NOT NULL,
			attempts INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			error_kind TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create usage_records table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_usage_run_id ON usage_records(run_id)`)
	if err != nil {
		return fmt.Errorf("failed to create run_id index: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_usage_created_at ON usage_records(created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create created_at index: %w", err)
	}

	return nil
}

// ArchiveRun stores one completed run and its usage records in a single
// transaction, and returns the generated run ID.
func (a *UsageArchive) ArchiveRun(run RunInfo, records []usage.Record) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	tx, err := a.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs
		(id, started_at, finished_at, model, meetings_total, succeeded, failed, skipped, input_tokens, output_tokens, estimated_cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.Format(time.RFC3339),
		run.FinishedAt.Format(time.RFC3339),
		run.Model,
		run.MeetingsTotal,
		run.Succeeded,
		run.Failed,
		run.Skipped,
		run.InputTokens,
		run.OutputTokens,
		run.EstimatedCost,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO usage_records
		(run_id, created_at, context, model, input_tokens, output_tokens, latency_ms, attempts, outcome, error_kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return "", fmt.Errorf("failed to prepare usage insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err = stmt.Exec(
			run.ID,
			r.Timestamp.Format(time.RFC3339),
			r.Context,
			r.ModelID,
			r.InputTokens,
			r.OutputTokens,
			r.Latency.Milliseconds(),
			r.Attempts,
			string(r.Outcome),
			r.ErrorKind,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert usage record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	a.logger.Info("Archived run",
		logger.String("run_id", run.ID),
		logger.Int("records", len(records)))

	return run.ID, nil
}

// RecentRuns returns the most recent runs, newest first
func (a *UsageArchive) RecentRuns(limit int) ([]*RunInfo, error) {
	rows, err := a.db.Query(
		`SELECT id, started_at, finished_at, model, meetings_total, succeeded, failed, skipped, input_tokens, output_tokens, estimated_cost
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*RunInfo
	for rows.Next() {
		var run RunInfo
		var startedAt, finishedAt string

		if err := rows.Scan(
			&run.ID,
			&startedAt,
			&finishedAt,
			&run.Model,
			&run.MeetingsTotal,
			&run.Succeeded,
			&run.Failed,
			&run.Skipped,
			&run.InputTokens,
			&run.OutputTokens,
			&run.EstimatedCost,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		run.FinishedAt, err = time.Parse(time.RFC3339, finishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse finished_at: %w", err)
		}

		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// RunRecords returns the usage records for one run, oldest first
func (a *UsageArchive) RunRecords(runID string) ([]usage.Record, error) {
	rows, err := a.db.Query(
		`SELECT created_at, context, model, input_tokens, output_tokens, latency_ms, attempts, outcome, error_kind
		FROM usage_records
		WHERE run_id = ?
		ORDER BY created_at ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage records: %w", err)
	}
	defer rows.Close()

	var records []usage.Record
	for rows.Next() {
		var r usage.Record
		var createdAt, outcome string
		var latencyMs int64
		var errorKind sql.NullString

		if err := rows.Scan(
			&createdAt,
			&r.Context,
			&r.ModelID,
			&r.InputTokens,
			&r.OutputTokens,
			&latencyMs,
			&r.Attempts,
			&outcome,
			&errorKind,
		); err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}

		r.Timestamp, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		r.Latency = time.Duration(latencyMs) * time.Millisecond
		r.Outcome = usage.Outcome(outcome)
		if errorKind.Valid {
			r.ErrorKind = errorKind.String
		}

		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage records: %w", err)
	}

	return records, nil
}
