package library

import (
	"fmt"
	"strings"
	"time"
)

// Book is a tracked audio source. A book whose URI is empty is archived:
// the record survives (so clips and sessions keep valid foreign keys and a
// later re-import restores it by fingerprint) but the audio file is gone.
type Book struct {
	ID          string
	URI         string
	Name        string
	DurationMS  int64
	PositionMS  int64
	Title       string
	Artist      string
	Artwork     string
	FileSize    int64
	Fingerprint string
	Hidden      bool
	UpdatedAt   time.Time
}

// Archived reports whether the book's audio file has been removed.
func (b Book) Archived() bool {
	return b.URI == ""
}

// DisplayTitle prefers embedded metadata over the import-time name.
func (b Book) DisplayTitle() string {
	if title := strings.TrimSpace(b.Title); title != "" {
		return title
	}
	return b.Name
}

// Clip is a bounded sub-segment of a book's audio, materialized as its own
// sliced file. A persisted clip always references a real standalone file.
type Clip struct {
	ID            string
	SourceID      string
	URI           string
	StartMS       int64
	DurationMS    int64
	Note          string
	Transcription string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EndMS returns the exclusive end offset of the clip within its source.
func (c Clip) EndMS() int64 {
	return c.StartMS + c.DurationMS
}

// ClipWithFile is the joined read model for a clip: the clip row plus the
// parent book fields needed for display and re-slicing.
type ClipWithFile struct {
	Clip
	SourceURI        string
	SourceName       string
	SourceTitle      string
	SourceArtist     string
	SourceDurationMS int64
}

// Session is a contiguous listening interval for a book, denormalized with
// the book's display fields so history survives book deletion.
type Session struct {
	ID         string
	BookID     string
	StartedAt  time.Time
	EndedAt    time.Time
	BookName   string
	BookTitle  string
	BookArtist string
	BookArtwork string
}

// Duration returns the elapsed listening time covered by the session.
func (s Session) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}

// Fingerprint is a cheap content-identity key: total file size plus a hash
// over a bounded byte sample. Two imports with equal fingerprints are treated
// as the same audio content.
type Fingerprint struct {
	Size int64
	Hash string
}

// Key renders the fingerprint as the single dedup key stored on a book row.
func (f Fingerprint) Key() string {
	return fmt.Sprintf("%d:%s", f.Size, f.Hash)
}

// IsZero reports whether the fingerprint carries no content identity.
func (f Fingerprint) IsZero() bool {
	return f.Size == 0 && f.Hash == ""
}

// TrackMetadata holds the embedded tags and duration probed from an audio file.
type TrackMetadata struct {
	Title      string
	Artist     string
	Artwork    string
	DurationMS int64
}

// BookUpdate carries the mutable metadata applied when an archived book is
// restored by a fresh import of the same content.
type BookUpdate struct {
	URI        string
	Name       string
	DurationMS int64
	Title      string
	Artist     string
	Artwork    string
	FileSize   int64
}

// ClipChange describes a partial clip update. Nil fields are left untouched;
// bounds fields participate in the changed-bounds re-slice decision only when
// they differ from the current values.
type ClipChange struct {
	Note       *string
	StartMS    *int64
	DurationMS *int64
}

// Empty reports whether the change carries no fields at all.
func (c ClipChange) Empty() bool {
	return c.Note == nil && c.StartMS == nil && c.DurationMS == nil
}
