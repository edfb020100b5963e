package catalog

import (
	"context"

	"earmark/internal/library"
	"earmark/internal/logging"
)

// TrackSession records a playback tick for a book. The first tick opens a
// session; subsequent ticks extend its end timestamp. Ticks for a book that
// does not exist are dropped so no orphaned session is ever written.
func (m *Manager) TrackSession(ctx context.Context, bookID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()

	if open, ok := m.open[bookID]; ok {
		if now.Before(open.EndedAt) {
			return nil
		}
		if err := m.records.UpdateSessionEnd(ctx, open.ID, now); err != nil {
			return library.Wrap(library.ErrPersistence, "catalog", "track session", "extend", err)
		}
		open.EndedAt = now
		m.open[bookID] = open
		return nil
	}

	book, err := m.records.BookByID(ctx, bookID)
	if err != nil {
		return library.Wrap(library.ErrPersistence, "catalog", "track session", "load book", err)
	}
	if book == nil {
		return nil
	}

	session := library.Session{
		ID:          m.newID(),
		BookID:      bookID,
		StartedAt:   now,
		EndedAt:     now,
		BookName:    book.Name,
		BookTitle:   book.Title,
		BookArtist:  book.Artist,
		BookArtwork: book.Artwork,
	}
	if err := m.records.CreateSession(ctx, &session); err != nil {
		return library.Wrap(library.ErrPersistence, "catalog", "track session", "create", err)
	}
	m.open[bookID] = session

	m.logger.Debug("session opened",
		logging.String(logging.FieldSessionID, session.ID),
		logging.String(logging.FieldBookID, bookID))
	return nil
}

// FinalizeSession closes the open session for a book when playback of that
// book stops or switches away. Listens shorter than the configured minimum
// are deleted rather than kept; a listen exactly at the minimum is kept.
// Finalizing a book with no open session is a no-op.
func (m *Manager) FinalizeSession(ctx context.Context, bookID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	open, ok := m.open[bookID]
	if !ok {
		return nil
	}

	now := m.now().UTC()
	if now.Sub(open.StartedAt) < m.minSessionDuration {
		if err := m.records.DeleteSession(ctx, open.ID); err != nil {
			return library.Wrap(library.ErrPersistence, "catalog", "finalize session", "discard short listen", err)
		}
		delete(m.open, bookID)
		m.logger.Debug("short session discarded",
			logging.String(logging.FieldSessionID, open.ID),
			logging.String(logging.FieldBookID, bookID))
		return nil
	}

	if err := m.records.UpdateSessionEnd(ctx, open.ID, now); err != nil {
		return library.Wrap(library.ErrPersistence, "catalog", "finalize session", "close", err)
	}
	if err := m.enqueueSync(ctx, EntitySession, open.ID, OpUpsert, nil); err != nil {
		return err
	}
	delete(m.open, bookID)

	m.logger.Info("session recorded",
		logging.String(logging.FieldSessionID, open.ID),
		logging.String(logging.FieldBookID, bookID),
		logging.Duration("length", now.Sub(open.StartedAt)))
	return nil
}

// OpenSession returns the in-flight session for a book, if any.
func (m *Manager) OpenSession(bookID string) (library.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.open[bookID]
	return session, ok
}
