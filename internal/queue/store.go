package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"marketcast/internal/config"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS content_jobs (
	id            TEXT PRIMARY KEY,
	job_type      TEXT NOT NULL,
	status        TEXT NOT NULL,
	dry_run       INTEGER NOT NULL DEFAULT 0,
	artifact_path TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	triggered_at  TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_content_jobs_triggered ON content_jobs (triggered_at DESC);

CREATE TABLE IF NOT EXISTS publish_results (
	job_id       TEXT NOT NULL REFERENCES content_jobs (id) ON DELETE CASCADE,
	platform     TEXT NOT NULL,
	post_id      TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	error_detail TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_publish_results_job ON publish_results (job_id);
`

// Open initializes or connects to the job database under the data directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

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

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
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

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// NewJob creates and persists a pending job.
func (s *Store) NewJob(ctx context.Context, jobType JobType, dryRun bool) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		Status:      StatusPending,
		DryRun:      dryRun,
		TriggeredAt: now,
		UpdatedAt:   now,
	}
	err := s.execWithRetry(ctx,
		`INSERT INTO content_jobs (id, job_type, status, dry_run, artifact_path, error_message, triggered_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, string(job.Type), string(job.Status), boolToInt(job.DryRun),
		job.ArtifactPath, job.ErrorMessage, job.TriggeredAt, job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// Update persists the mutable fields of a job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is required")
	}
	job.UpdatedAt = time.Now().UTC()
	err := s.execWithRetry(ctx,
		`UPDATE content_jobs SET status = ?, artifact_path = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(job.Status), job.ArtifactPath, job.ErrorMessage, job.UpdatedAt, job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob fetches one job by ID.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, job_type, status, dry_run, artifact_path, error_message, triggered_at, updated_at
		 FROM content_jobs WHERE id = ?`, id)
	return scanJob(row)
}

// ListRecent returns the most recently triggered jobs, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*Job, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_type, status, dry_run, artifact_path, error_message, triggered_at, updated_at
		 FROM content_jobs ORDER BY triggered_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// RecordPublish persists one per-platform publish outcome.
func (s *Store) RecordPublish(ctx context.Context, result PublishResult) error {
	if result.JobID == "" {
		return errors.New("publish result requires a job id")
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	err := s.execWithRetry(ctx,
		`INSERT INTO publish_results (job_id, platform, post_id, status, error_detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		result.JobID, result.Platform, result.PostID, string(result.Status),
		result.ErrorDetail, result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record publish result: %w", err)
	}
	return nil
}

// PublishResults returns the recorded outcomes for a job.
func (s *Store) PublishResults(ctx context.Context, jobID string) ([]PublishResult, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, platform, post_id, status, error_detail, created_at
		 FROM publish_results WHERE job_id = ? ORDER BY created_at`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list publish results: %w", err)
	}
	defer rows.Close()

	var results []PublishResult
	for rows.Next() {
		var r PublishResult
		var status string
		if err := rows.Scan(&r.JobID, &r.Platform, &r.PostID, &status, &r.ErrorDetail, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan publish result: %w", err)
		}
		r.Status = PublishStatus(status)
		results = append(results, r)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var jobType, status string
	var dryRun int
	if err := row.Scan(&job.ID, &jobType, &status, &dryRun, &job.ArtifactPath,
		&job.ErrorMessage, &job.TriggeredAt, &job.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	job.Type = JobType(jobType)
	job.Status = Status(status)
	job.DryRun = dryRun != 0
	return &job, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
