package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"earmark/internal/library"
)

const bookColumns = "id, uri, name, duration_ms, position_ms, title, artist, artwork, file_size, fingerprint, hidden, updated_at"

// InsertBook persists a newly ingested book.
func (s *Store) InsertBook(ctx context.Context, book *library.Book) error {
	if book == nil {
		return fmt.Errorf("insert book: nil book")
	}
	book.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO books (`+bookColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID,
		nullableString(book.URI),
		book.Name,
		book.DurationMS,
		book.PositionMS,
		nullableString(book.Title),
		nullableString(book.Artist),
		nullableString(book.Artwork),
		book.FileSize,
		nullableString(book.Fingerprint),
		boolToInt(book.Hidden),
		formatTime(book.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

// RestoreBook re-activates an archived or hidden book with metadata from a
// fresh import of the same content. The row keeps its id so clips and
// sessions stay attached.
func (s *Store) RestoreBook(ctx context.Context, id string, upd library.BookUpdate) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE books
         SET uri = ?, name = ?, duration_ms = ?, title = ?, artist = ?, artwork = ?,
             file_size = ?, hidden = 0, updated_at = ?
         WHERE id = ?`,
		nullableString(upd.URI),
		upd.Name,
		upd.DurationMS,
		nullableString(upd.Title),
		nullableString(upd.Artist),
		nullableString(upd.Artwork),
		upd.FileSize,
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("restore book: %w", err)
	}
	return requireRow(res, "restore book")
}

// TouchBook bumps a book's updated_at without changing anything else.
func (s *Store) TouchBook(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE books SET updated_at = ? WHERE id = ?`,
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("touch book: %w", err)
	}
	return requireRow(res, "touch book")
}

// ArchiveBook clears a book's uri, marking its audio file as removed while
// keeping the record for later restore.
func (s *Store) ArchiveBook(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE books SET uri = NULL, updated_at = ? WHERE id = ?`,
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("archive book: %w", err)
	}
	return requireRow(res, "archive book")
}

// HideBook soft-deletes a book: it disappears from listings but the row
// survives so a future import of the same content restores it.
func (s *Store) HideBook(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE books SET hidden = 1, uri = NULL, updated_at = ? WHERE id = ?`,
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("hide book: %w", err)
	}
	return requireRow(res, "hide book")
}

// SetBookPosition persists the last known playback position.
func (s *Store) SetBookPosition(ctx context.Context, id string, positionMS int64) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE books SET position_ms = ?, updated_at = ? WHERE id = ?`,
		positionMS,
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("set book position: %w", err)
	}
	return requireRow(res, "set book position")
}

// BookByID fetches a book by identifier, hidden rows included.
func (s *Store) BookByID(ctx context.Context, id string) (*library.Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	book, err := scanBook(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// BookByFingerprint returns the book matching a dedup key. Archived and
// hidden rows participate so re-imports restore instead of duplicating;
// active rows win when both exist.
func (s *Store) BookByFingerprint(ctx context.Context, key string) (*library.Book, error) {
	if key == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+bookColumns+` FROM books WHERE fingerprint = ?
         ORDER BY (uri IS NULL), hidden, rowid LIMIT 1`,
		key,
	)
	book, err := scanBook(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find book by fingerprint: %w", err)
	}
	return book, nil
}

// BookByURI returns the non-hidden book owning the given audio file.
func (s *Store) BookByURI(ctx context.Context, uri string) (*library.Book, error) {
	if uri == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+bookColumns+` FROM books WHERE uri = ? AND hidden = 0 LIMIT 1`,
		uri,
	)
	book, err := scanBook(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find book by uri: %w", err)
	}
	return book, nil
}

// Books returns all non-hidden books, newest import first.
func (s *Store) Books(ctx context.Context) ([]library.Book, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books WHERE hidden = 0 ORDER BY rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []library.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *book)
	}
	return books, rows.Err()
}

func scanBook(scanner rowScanner) (*library.Book, error) {
	var (
		id          string
		uri         sql.NullString
		name        string
		durationMS  int64
		positionMS  int64
		title       sql.NullString
		artist      sql.NullString
		artwork     sql.NullString
		fileSize    int64
		fingerprint sql.NullString
		hidden      sql.NullInt64
		updatedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&uri,
		&name,
		&durationMS,
		&positionMS,
		&title,
		&artist,
		&artwork,
		&fileSize,
		&fingerprint,
		&hidden,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	book := &library.Book{
		ID:          id,
		URI:         uri.String,
		Name:        name,
		DurationMS:  durationMS,
		PositionMS:  positionMS,
		Title:       title.String,
		Artist:      artist.String,
		Artwork:     artwork.String,
		FileSize:    fileSize,
		Fingerprint: fingerprint.String,
		Hidden:      hidden.Valid && hidden.Int64 != 0,
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		book.UpdatedAt = updated
	}
	return book, nil
}

func requireRow(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, library.ErrNotFound)
	}
	return nil
}
