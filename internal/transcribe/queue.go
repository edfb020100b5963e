package transcribe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Job is a clip waiting for transcription.
type Job struct {
	ID        int64
	ClipID    string
	URI       string
	QueuedAt  time.Time
	Attempts  int
	LastError string
}

// Queue is the SQLite-backed transcription backlog. A clip enters when its
// audio file lands on disk and leaves when a transcript is stored or its
// attempts run out.
type Queue struct {
	db   *sql.DB
	path string
}

const queueSchema = `
CREATE TABLE IF NOT EXISTS jobs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    clip_id TEXT NOT NULL UNIQUE,
    uri TEXT NOT NULL,
    queued_at TEXT NOT NULL,
    attempts INTEGER NOT NULL DEFAULT 0,
    last_error TEXT NOT NULL DEFAULT ''
);
`

// Open initializes or connects to the transcription queue at the given path.
func Open(path string) (*Queue, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open transcription queue: %w", err)
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
	if _, err := db.Exec(queueSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply transcription queue schema: %w", err)
	}
	return &Queue{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (q *Queue) Close() error {
	if q == nil || q.db == nil {
		return nil
	}
	return q.db.Close()
}

// Path returns the location of the queue database file.
func (q *Queue) Path() string {
	return q.path
}

// Enqueue registers a clip for transcription. Re-enqueueing an existing clip
// resets its job to point at the new audio file with a clean attempt count,
// which is what a re-sliced clip needs.
func (q *Queue) Enqueue(ctx context.Context, clipID, uri string) error {
	clipID = strings.TrimSpace(clipID)
	uri = strings.TrimSpace(uri)
	if clipID == "" || uri == "" {
		return errors.New("transcribe enqueue: clip id and uri are required")
	}

	_, err := q.db.ExecContext(ctx, `
        INSERT INTO jobs (clip_id, uri, queued_at)
        VALUES (?, ?, ?)
        ON CONFLICT(clip_id) DO UPDATE
        SET uri = excluded.uri, queued_at = excluded.queued_at, attempts = 0, last_error = ''`,
		clipID, uri, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("transcribe enqueue clip %s: %w", clipID, err)
	}
	return nil
}

// Remove drops any pending job for the clip. Deleting a clip must not leave
// a job pointing at a file that no longer exists.
func (q *Queue) Remove(ctx context.Context, clipID string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM jobs WHERE clip_id = ?`, clipID); err != nil {
		return fmt.Errorf("remove transcription job for clip %s: %w", clipID, err)
	}
	return nil
}

// Pending returns jobs with fewer than maxAttempts failures, oldest first.
func (q *Queue) Pending(ctx context.Context, maxAttempts, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.db.QueryContext(ctx, `
        SELECT id, clip_id, uri, queued_at, attempts, last_error
        FROM jobs
        WHERE attempts < ?
        ORDER BY id
        LIMIT ?`, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("list transcription jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		var queuedAt string
		if err := rows.Scan(&job.ID, &job.ClipID, &job.URI, &queuedAt, &job.Attempts, &job.LastError); err != nil {
			return nil, fmt.Errorf("scan transcription job: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339Nano, queuedAt); err == nil {
			job.QueuedAt = parsed
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Depth reports how many jobs are waiting, including exhausted ones.
func (q *Queue) Depth(ctx context.Context) (int, error) {
	var count int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count transcription jobs: %w", err)
	}
	return count, nil
}

// MarkDone removes a completed job.
func (q *Queue) MarkDone(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove completed transcription job %d: %w", id, err)
	}
	return nil
}

// MarkFailed bumps the attempt counter and records the failure.
func (q *Queue) MarkFailed(ctx context.Context, id int64, jobErr error) error {
	message := ""
	if jobErr != nil {
		message = jobErr.Error()
	}
	_, err := q.db.ExecContext(ctx, `
        UPDATE jobs SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
		message, id)
	if err != nil {
		return fmt.Errorf("record transcription failure for job %d: %w", id, err)
	}
	return nil
}
