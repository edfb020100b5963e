package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"earmark/internal/library"
)

const clipColumns = `c.id, c.source_id, c.uri, c.start_ms, c.duration_ms, c.note,
    c.transcription, c.created_at, c.updated_at,
    b.uri, b.name, b.title, b.artist, b.duration_ms`

const clipJoin = ` FROM clips c LEFT JOIN books b ON b.id = c.source_id`

// CreateClip persists a newly sliced clip.
func (s *Store) CreateClip(ctx context.Context, clip *library.Clip) error {
	if clip == nil {
		return fmt.Errorf("create clip: nil clip")
	}
	now := time.Now().UTC()
	if clip.CreatedAt.IsZero() {
		clip.CreatedAt = now
	}
	clip.UpdatedAt = now
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO clips (id, source_id, uri, start_ms, duration_ms, note, transcription, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		clip.ID,
		clip.SourceID,
		clip.URI,
		clip.StartMS,
		clip.DurationMS,
		nullableString(clip.Note),
		nullableString(clip.Transcription),
		formatTime(clip.CreatedAt),
		formatTime(clip.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create clip: %w", err)
	}
	return nil
}

// UpdateClip persists the mutable clip fields: note, bounds, uri, and
// transcription.
func (s *Store) UpdateClip(ctx context.Context, clip *library.Clip) error {
	if clip == nil {
		return fmt.Errorf("update clip: nil clip")
	}
	clip.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE clips
         SET uri = ?, start_ms = ?, duration_ms = ?, note = ?, transcription = ?, updated_at = ?
         WHERE id = ?`,
		clip.URI,
		clip.StartMS,
		clip.DurationMS,
		nullableString(clip.Note),
		nullableString(clip.Transcription),
		formatTime(clip.UpdatedAt),
		clip.ID,
	)
	if err != nil {
		return fmt.Errorf("update clip: %w", err)
	}
	return requireRow(res, "update clip")
}

// SetClipTranscription stores transcribed text on a clip row.
func (s *Store) SetClipTranscription(ctx context.Context, id, text string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE clips SET transcription = ?, updated_at = ? WHERE id = ?`,
		nullableString(text),
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("set clip transcription: %w", err)
	}
	return requireRow(res, "set clip transcription")
}

// DeleteClip removes a clip row. The boolean reports whether a row existed.
func (s *Store) DeleteClip(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM clips WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete clip: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete clip: rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClipByID fetches a clip joined with its parent book's display fields.
func (s *Store) ClipByID(ctx context.Context, id string) (*library.ClipWithFile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clipColumns+clipJoin+` WHERE c.id = ?`, id)
	clip, err := scanClip(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get clip: %w", err)
	}
	return clip, nil
}

// Clips returns all clips joined with parent book fields, newest first.
func (s *Store) Clips(ctx context.Context) ([]library.ClipWithFile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+clipColumns+clipJoin+` ORDER BY c.created_at DESC, c.rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	defer rows.Close()

	var clips []library.ClipWithFile
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, err
		}
		clips = append(clips, *clip)
	}
	return clips, rows.Err()
}

func scanClip(scanner rowScanner) (*library.ClipWithFile, error) {
	var (
		id            string
		sourceID      string
		uri           string
		startMS       int64
		durationMS    int64
		note          sql.NullString
		transcription sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
		srcURI        sql.NullString
		srcName       sql.NullString
		srcTitle      sql.NullString
		srcArtist     sql.NullString
		srcDuration   sql.NullInt64
	)

	if err := scanner.Scan(
		&id,
		&sourceID,
		&uri,
		&startMS,
		&durationMS,
		&note,
		&transcription,
		&createdRaw,
		&updatedRaw,
		&srcURI,
		&srcName,
		&srcTitle,
		&srcArtist,
		&srcDuration,
	); err != nil {
		return nil, err
	}

	clip := &library.ClipWithFile{
		Clip: library.Clip{
			ID:            id,
			SourceID:      sourceID,
			URI:           uri,
			StartMS:       startMS,
			DurationMS:    durationMS,
			Note:          note.String,
			Transcription: transcription.String,
		},
		SourceURI:        srcURI.String,
		SourceName:       srcName.String,
		SourceTitle:      srcTitle.String,
		SourceArtist:     srcArtist.String,
		SourceDurationMS: srcDuration.Int64,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		clip.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		clip.UpdatedAt = updated
	}
	return clip, nil
}
