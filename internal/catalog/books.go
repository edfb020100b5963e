package catalog

import (
	"context"

	"earmark/internal/library"
	"earmark/internal/logging"
	"earmark/internal/player"
)

// ArchiveBook removes a book's audio file while keeping its record so the
// same content can be restored by a later import. The projection is updated
// before persistence and rolled back if the store or sync queue rejects the
// change; the file itself is removed detached only after both succeed.
func (m *Manager) ArchiveBook(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	book, err := m.records.BookByID(ctx, id)
	if err != nil {
		return library.Wrap(library.ErrPersistence, "catalog", "archive book", "load book", err)
	}
	if book == nil {
		return library.Wrap(library.ErrNotFound, "catalog", "archive book", id, nil)
	}

	m.unloadIfPlaying(ctx, book.URI)

	idx := m.bookIndexLocked(id)
	var prior library.Book
	if idx >= 0 {
		prior = m.books[idx]
		m.books[idx].URI = ""
	}

	if err := m.archiveAndQueue(ctx, id); err != nil {
		if idx >= 0 {
			m.books[idx] = prior
		}
		return err
	}

	m.removeFileDetached(book.URI)
	m.logger.Info("book archived",
		logging.String(logging.FieldBookID, id),
		logging.String("name", book.Name))
	return nil
}

func (m *Manager) archiveAndQueue(ctx context.Context, id string) error {
	if err := m.records.ArchiveBook(ctx, id); err != nil {
		return library.Wrap(library.ErrPersistence, "catalog", "archive book", "persist", err)
	}
	return m.enqueueSync(ctx, EntityBook, id, OpUpsert, nil)
}

// DeleteBook hides a book from the library. The row survives as a hidden
// record so clips and sessions keep valid references and a future import of
// the same content restores it. The projection entry is removed before
// persistence and reinstated if the store or sync queue rejects the change.
func (m *Manager) DeleteBook(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	book, err := m.records.BookByID(ctx, id)
	if err != nil {
		return library.Wrap(library.ErrPersistence, "catalog", "delete book", "load book", err)
	}
	if book == nil {
		return library.Wrap(library.ErrNotFound, "catalog", "delete book", id, nil)
	}

	m.unloadIfPlaying(ctx, book.URI)

	idx := m.bookIndexLocked(id)
	var prior library.Book
	if idx >= 0 {
		prior = m.books[idx]
		m.books = append(m.books[:idx], m.books[idx+1:]...)
	}

	if err := m.hideAndQueue(ctx, id); err != nil {
		if idx >= 0 {
			m.books = append(m.books[:idx], append([]library.Book{prior}, m.books[idx:]...)...)
		}
		return err
	}

	m.removeFileDetached(book.URI)
	m.logger.Info("book deleted",
		logging.String(logging.FieldBookID, id),
		logging.String("name", book.Name))
	return nil
}

func (m *Manager) hideAndQueue(ctx context.Context, id string) error {
	if err := m.records.HideBook(ctx, id); err != nil {
		return library.Wrap(library.ErrPersistence, "catalog", "delete book", "persist", err)
	}
	return m.enqueueSync(ctx, EntityBook, id, OpDelete, nil)
}

// SavePosition records the last known playback position on a book, keeping
// the projection in step.
func (m *Manager) SavePosition(ctx context.Context, id string, positionMS int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.records.SetBookPosition(ctx, id, positionMS); err != nil {
		return library.Wrap(library.ErrPersistence, "catalog", "save position", id, err)
	}
	if idx := m.bookIndexLocked(id); idx >= 0 {
		m.books[idx].PositionMS = positionMS
	}
	return m.enqueueSync(ctx, EntityBook, id, OpUpsert, nil)
}

// unloadIfPlaying stops playback when the stream about to be removed is the
// loaded one. Best effort: a stuck engine must not block archiving.
func (m *Manager) unloadIfPlaying(ctx context.Context, uri string) {
	if m.playback == nil || uri == "" || m.playback.LoadedURI() != uri {
		return
	}
	if err := m.playback.Unload(ctx); err != nil {
		m.logger.Warn("unload before removal failed",
			logging.String(logging.FieldURI, uri),
			logging.Error(err))
	}
}

// TrackForURI resolves the display metadata of the book owning a file,
// satisfying the playback controller's record lookup.
func (m *Manager) TrackForURI(ctx context.Context, uri string) (player.TrackInfo, error) {
	book, err := m.records.BookByURI(ctx, uri)
	if err != nil {
		return player.TrackInfo{}, library.Wrap(library.ErrPersistence, "catalog", "lookup by uri", uri, err)
	}
	if book == nil {
		return player.TrackInfo{}, library.Wrap(library.ErrNotFound, "catalog", "lookup by uri", uri, nil)
	}
	return player.TrackInfo{
		Title:   book.DisplayTitle(),
		Artist:  book.Artist,
		Artwork: book.Artwork,
	}, nil
}
