package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"earmark/internal/library"
)

const sessionColumns = "id, book_id, started_at, ended_at, book_name, book_title, book_artist, book_artwork"

// CreateSession persists a new listening session.
func (s *Store) CreateSession(ctx context.Context, session *library.Session) error {
	if session == nil {
		return fmt.Errorf("create session: nil session")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.BookID,
		formatTime(session.StartedAt),
		formatTime(session.EndedAt),
		nullableString(session.BookName),
		nullableString(session.BookTitle),
		nullableString(session.BookArtist),
		nullableString(session.BookArtwork),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// UpdateSessionEnd extends a session's ended_at timestamp.
func (s *Store) UpdateSessionEnd(ctx context.Context, id string, endedAt time.Time) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE sessions SET ended_at = ? WHERE id = ?`,
		formatTime(endedAt),
		id,
	)
	if err != nil {
		return fmt.Errorf("update session end: %w", err)
	}
	return requireRow(res, "update session end")
}

// DeleteSession removes a session row, used for listens below the minimum
// duration threshold.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CurrentSession returns the most recent session for a book, or nil.
func (s *Store) CurrentSession(ctx context.Context, bookID string) (*library.Session, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE book_id = ? ORDER BY started_at DESC, rowid DESC LIMIT 1`,
		bookID,
	)
	session, err := scanSession(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("current session: %w", err)
	}
	return session, nil
}

// Sessions returns all sessions, newest first.
func (s *Store) Sessions(ctx context.Context) ([]library.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY started_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []library.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

func scanSession(scanner rowScanner) (*library.Session, error) {
	var (
		id         string
		bookID     string
		startedRaw sql.NullString
		endedRaw   sql.NullString
		name       sql.NullString
		title      sql.NullString
		artist     sql.NullString
		artwork    sql.NullString
	)

	if err := scanner.Scan(&id, &bookID, &startedRaw, &endedRaw, &name, &title, &artist, &artwork); err != nil {
		return nil, err
	}

	session := &library.Session{
		ID:          id,
		BookID:      bookID,
		BookName:    name.String,
		BookTitle:   title.String,
		BookArtist:  artist.String,
		BookArtwork: artwork.String,
	}
	if started, err := parseTimeString(startedRaw.String); err == nil {
		session.StartedAt = started
	}
	if ended, err := parseTimeString(endedRaw.String); err == nil {
		session.EndedAt = ended
	}
	return session, nil
}
