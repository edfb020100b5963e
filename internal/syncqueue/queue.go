package syncqueue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Change is a durable record of a local mutation awaiting upload.
type Change struct {
	ID         int64
	EntityType string
	EntityID   string
	Operation  string
	Payload    string
	QueuedAt   time.Time
	Attempts   int
	LastError  string
}

// Queue is the SQLite-backed change-intent queue. Mutations are recorded
// here in the same breath as the local write, so an offline period never
// loses a change.
type Queue struct {
	db   *sql.DB
	path string
}

const queueSchema = `
CREATE TABLE IF NOT EXISTS changes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_type TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    operation TEXT NOT NULL,
    payload TEXT NOT NULL DEFAULT '',
    queued_at TEXT NOT NULL,
    attempts INTEGER NOT NULL DEFAULT 0,
    last_error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_changes_entity ON changes(entity_type, entity_id);
`

// Open initializes or connects to the change queue at the given path.
func Open(path string) (*Queue, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sync queue: %w", err)
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
		return nil, fmt.Errorf("apply sync queue schema: %w", err)
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

// Enqueue records a change intent. The payload, when non-nil, is stored as
// JSON alongside the intent so the drainer can upload a self-contained body.
func (q *Queue) Enqueue(ctx context.Context, entityType, entityID, operation string, payload any) error {
	entityType = strings.TrimSpace(entityType)
	entityID = strings.TrimSpace(entityID)
	operation = strings.TrimSpace(operation)
	if entityType == "" || entityID == "" || operation == "" {
		return errors.New("sync enqueue: entity type, id, and operation are required")
	}

	body := ""
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("sync enqueue: encode payload: %w", err)
		}
		body = string(encoded)
	}

	_, err := q.db.ExecContext(ctx, `
        INSERT INTO changes (entity_type, entity_id, operation, payload, queued_at)
        VALUES (?, ?, ?, ?, ?)`,
		entityType, entityID, operation, body,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sync enqueue %s %s: %w", operation, entityType, err)
	}
	return nil
}

// Pending returns queued changes with fewer than maxAttempts delivery
// failures, oldest first.
func (q *Queue) Pending(ctx context.Context, maxAttempts, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := q.db.QueryContext(ctx, `
        SELECT id, entity_type, entity_id, operation, payload, queued_at, attempts, last_error
        FROM changes
        WHERE attempts < ?
        ORDER BY id
        LIMIT ?`, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending changes: %w", err)
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var change Change
		var queuedAt string
		if err := rows.Scan(&change.ID, &change.EntityType, &change.EntityID,
			&change.Operation, &change.Payload, &queuedAt,
			&change.Attempts, &change.LastError); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339Nano, queuedAt); err == nil {
			change.QueuedAt = parsed
		}
		changes = append(changes, change)
	}
	return changes, rows.Err()
}

// Depth reports how many changes are waiting, including ones that have
// exhausted their attempts.
func (q *Queue) Depth(ctx context.Context) (int, error) {
	var count int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM changes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending changes: %w", err)
	}
	return count, nil
}

// MarkDone removes a delivered change from the queue.
func (q *Queue) MarkDone(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM changes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove delivered change %d: %w", id, err)
	}
	return nil
}

// MarkFailed bumps the attempt counter and records the delivery error.
func (q *Queue) MarkFailed(ctx context.Context, id int64, deliveryErr error) error {
	message := ""
	if deliveryErr != nil {
		message = deliveryErr.Error()
	}
	_, err := q.db.ExecContext(ctx, `
        UPDATE changes SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
		message, id)
	if err != nil {
		return fmt.Errorf("record delivery failure for change %d: %w", id, err)
	}
	return nil
}
