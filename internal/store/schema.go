package store

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS books (
        id          TEXT PRIMARY KEY,
        uri         TEXT,
        name        TEXT NOT NULL,
        duration_ms INTEGER NOT NULL DEFAULT 0,
        position_ms INTEGER NOT NULL DEFAULT 0,
        title       TEXT,
        artist      TEXT,
        artwork     TEXT,
        file_size   INTEGER NOT NULL DEFAULT 0,
        fingerprint TEXT,
        hidden      INTEGER NOT NULL DEFAULT 0,
        updated_at  TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_books_fingerprint ON books (fingerprint)`,
	`CREATE TABLE IF NOT EXISTS clips (
        id            TEXT PRIMARY KEY,
        source_id     TEXT NOT NULL REFERENCES books (id),
        uri           TEXT NOT NULL,
        start_ms      INTEGER NOT NULL,
        duration_ms   INTEGER NOT NULL,
        note          TEXT,
        transcription TEXT,
        created_at    TEXT NOT NULL,
        updated_at    TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_clips_source ON clips (source_id)`,
	`CREATE TABLE IF NOT EXISTS sessions (
        id           TEXT PRIMARY KEY,
        book_id      TEXT NOT NULL,
        started_at   TEXT NOT NULL,
        ended_at     TEXT NOT NULL,
        book_name    TEXT,
        book_title   TEXT,
        book_artist  TEXT,
        book_artwork TEXT
    )`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_book ON sessions (book_id, started_at)`,
}

func (s *Store) applyMigrations(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
	}
	return nil
}
