package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"earmark/internal/config"
	"earmark/internal/library"
	"earmark/internal/logging"
	"earmark/internal/media/slicer"
)

// Sync operation names recorded on the change queue.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// Sync entity type names recorded on the change queue.
const (
	EntityBook    = "book"
	EntityClip    = "clip"
	EntitySession = "session"
)

// Records is the slice of the record store the catalog drives.
type Records interface {
	InsertBook(ctx context.Context, book *library.Book) error
	RestoreBook(ctx context.Context, id string, upd library.BookUpdate) error
	TouchBook(ctx context.Context, id string) error
	ArchiveBook(ctx context.Context, id string) error
	HideBook(ctx context.Context, id string) error
	SetBookPosition(ctx context.Context, id string, positionMS int64) error
	BookByID(ctx context.Context, id string) (*library.Book, error)
	BookByFingerprint(ctx context.Context, key string) (*library.Book, error)
	BookByURI(ctx context.Context, uri string) (*library.Book, error)
	Books(ctx context.Context) ([]library.Book, error)

	CreateClip(ctx context.Context, clip *library.Clip) error
	UpdateClip(ctx context.Context, clip *library.Clip) error
	DeleteClip(ctx context.Context, id string) (bool, error)
	ClipByID(ctx context.Context, id string) (*library.ClipWithFile, error)
	Clips(ctx context.Context) ([]library.ClipWithFile, error)

	CreateSession(ctx context.Context, session *library.Session) error
	UpdateSessionEnd(ctx context.Context, id string, endedAt time.Time) error
	DeleteSession(ctx context.Context, id string) error
	Sessions(ctx context.Context) ([]library.Session, error)
}

// Files is the managed audio file surface the catalog needs.
type Files interface {
	CopyIn(sourceURI, baseName string) (string, error)
	Rename(uri, newBase string) (string, error)
	Remove(uri string) error
	ClipPath(baseName, sourceURI string) string
	Fingerprint(uri string) (library.Fingerprint, error)
}

// MetadataReader probes embedded tags and duration from an audio file.
type MetadataReader interface {
	Read(ctx context.Context, path string) (library.TrackMetadata, error)
}

// Slicer cuts clip audio out of a source file.
type Slicer interface {
	Slice(ctx context.Context, req slicer.Request) (string, error)
	Cleanup(uri string) error
}

// SyncQueue records change intents for later upload.
type SyncQueue interface {
	Enqueue(ctx context.Context, entityType, entityID, operation string, payload any) error
}

// TranscriptionQueue registers clip audio for transcription.
type TranscriptionQueue interface {
	Enqueue(ctx context.Context, clipID, uri string) error
	Remove(ctx context.Context, clipID string) error
}

// Playback is the narrow view of the playback controller the catalog uses to
// unload a stream whose file is about to disappear.
type Playback interface {
	LoadedURI() string
	Unload(ctx context.Context) error
}

// Manager orchestrates the record store, file store, media tools, and job
// queues behind the library's mutating operations. It maintains in-memory
// projections of books and clips that callers read without touching the
// store, updated optimistically and rolled back when persistence fails.
type Manager struct {
	records        Records
	files          Files
	metadata       MetadataReader
	slicer         Slicer
	syncs          SyncQueue
	transcriptions TranscriptionQueue
	playback       Playback
	logger         *slog.Logger

	defaultClipDurationMS int64
	minSessionDuration    time.Duration

	mu    sync.Mutex
	books []library.Book
	clips []library.ClipWithFile
	open  map[string]library.Session

	now   func() time.Time
	newID func() string
}

// NewManager wires a catalog manager from configuration and collaborators.
func NewManager(
	cfg *config.Config,
	records Records,
	files Files,
	metadata MetadataReader,
	slice Slicer,
	syncs SyncQueue,
	transcriptions TranscriptionQueue,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		records:               records,
		files:                 files,
		metadata:              metadata,
		slicer:                slice,
		syncs:                 syncs,
		transcriptions:        transcriptions,
		logger:                logging.NewComponentLogger(logger, "catalog"),
		defaultClipDurationMS: cfg.DefaultClipDurationMS,
		minSessionDuration:    time.Duration(cfg.MinSessionDurationMS) * time.Millisecond,
		open:                  make(map[string]library.Session),
		now:                   time.Now,
		newID:                 uuid.NewString,
	}
}

// WithPlayback attaches the playback controller so destructive book
// operations can unload a loaded stream first.
func (m *Manager) WithPlayback(playback Playback) {
	m.playback = playback
}

// WithClock overrides the time source (for testing).
func (m *Manager) WithClock(now func() time.Time) {
	m.now = now
}

// WithIDSource overrides identifier generation (for testing).
func (m *Manager) WithIDSource(newID func() string) {
	m.newID = newID
}

// Refresh reloads the book and clip projections from the record store.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked(ctx)
}

func (m *Manager) refreshLocked(ctx context.Context) error {
	books, err := m.records.Books(ctx)
	if err != nil {
		return library.Wrap(library.ErrPersistence, "catalog", "refresh", "load books", err)
	}
	clips, err := m.records.Clips(ctx)
	if err != nil {
		return library.Wrap(library.ErrPersistence, "catalog", "refresh", "load clips", err)
	}
	m.books = books
	m.clips = clips
	return nil
}

// Books returns the current book projection, newest import first.
func (m *Manager) Books() []library.Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]library.Book, len(m.books))
	copy(out, m.books)
	return out
}

// Clips returns the current clip projection.
func (m *Manager) Clips() []library.ClipWithFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]library.ClipWithFile, len(m.clips))
	copy(out, m.clips)
	return out
}

// Sessions lists persisted listening sessions, newest first.
func (m *Manager) Sessions(ctx context.Context) ([]library.Session, error) {
	sessions, err := m.records.Sessions(ctx)
	if err != nil {
		return nil, library.Wrap(library.ErrPersistence, "catalog", "sessions", "", err)
	}
	return sessions, nil
}

// enqueueSync records a change intent, surfacing the failure to the caller.
func (m *Manager) enqueueSync(ctx context.Context, entityType, entityID, operation string, payload any) error {
	if m.syncs == nil {
		return nil
	}
	if err := m.syncs.Enqueue(ctx, entityType, entityID, operation, payload); err != nil {
		return library.Wrap(library.ErrPersistence, "catalog", "queue sync change", entityType, err)
	}
	return nil
}

// removeFileDetached deletes an audio file without the caller waiting on the
// outcome. The record-level operation already succeeded when this runs, so a
// failure leaves recoverable garbage and is only logged.
func (m *Manager) removeFileDetached(uri string) {
	if uri == "" {
		return
	}
	go func() {
		if err := m.files.Remove(uri); err != nil {
			m.logger.Warn("detached file removal failed",
				logging.String(logging.FieldURI, uri),
				logging.String(logging.FieldImpact, "orphaned audio file remains on disk"),
				logging.Error(err))
		}
	}()
}

func (m *Manager) bookIndexLocked(id string) int {
	for i := range m.books {
		if m.books[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) clipIndexLocked(id string) int {
	for i := range m.clips {
		if m.clips[i].ID == id {
			return i
		}
	}
	return -1
}
