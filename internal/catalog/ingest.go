package catalog

import (
	"context"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"earmark/internal/library"
	"earmark/internal/logging"
)

var nameCaser = cases.Title(language.Und, cases.NoLower)

// LoadFile ingests an external audio file: copy it into managed storage,
// fingerprint it, and branch on what the library already knows about that
// content. A fresh fingerprint creates a new book, a fingerprint matching an
// archived book restores that book in place, and a fingerprint matching an
// active book discards the copy and keeps the existing row. Any failure
// removes whatever file the attempt produced before the error returns.
func (m *Manager) LoadFile(ctx context.Context, sourceURI, displayName string) (*library.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var tempURI, finalURI string
	book, err := m.ingestLocked(ctx, sourceURI, displayName, &tempURI, &finalURI)
	if err != nil {
		m.discardImportArtifacts(tempURI, finalURI)
		return nil, err
	}

	if refreshErr := m.refreshLocked(ctx); refreshErr != nil {
		m.logger.Warn("projection refresh after import failed", logging.Error(refreshErr))
	}
	return book, nil
}

func (m *Manager) ingestLocked(ctx context.Context, sourceURI, displayName string, tempURI, finalURI *string) (*library.Book, error) {
	temp, err := m.files.CopyIn(sourceURI, "import-"+m.newID())
	if err != nil {
		return nil, library.Wrap(library.ErrMedia, "catalog", "import", "copy into library", err)
	}
	*tempURI = temp

	meta, err := m.metadata.Read(ctx, temp)
	if err != nil {
		return nil, library.Wrap(library.ErrMedia, "catalog", "import", "read metadata", err)
	}
	fp, err := m.files.Fingerprint(temp)
	if err != nil {
		return nil, library.Wrap(library.ErrMedia, "catalog", "import", "fingerprint", err)
	}

	existing, err := m.records.BookByFingerprint(ctx, fp.Key())
	if err != nil {
		return nil, library.Wrap(library.ErrPersistence, "catalog", "import", "fingerprint lookup", err)
	}

	name := importName(displayName, sourceURI)

	switch {
	case existing == nil:
		return m.ingestNewBook(ctx, temp, name, meta, fp, tempURI, finalURI)
	case existing.Archived():
		return m.restoreArchivedBook(ctx, existing, temp, name, meta, fp, tempURI, finalURI)
	default:
		return m.absorbDuplicate(ctx, existing, temp, tempURI)
	}
}

// ingestNewBook handles a fingerprint the library has never seen.
func (m *Manager) ingestNewBook(ctx context.Context, temp, name string, meta library.TrackMetadata, fp library.Fingerprint, tempURI, finalURI *string) (*library.Book, error) {
	id := m.newID()
	uri, err := m.files.Rename(temp, id)
	if err != nil {
		return nil, library.Wrap(library.ErrMedia, "catalog", "import", "rename into place", err)
	}
	*tempURI = ""
	*finalURI = uri

	book := &library.Book{
		ID:          id,
		URI:         uri,
		Name:        name,
		DurationMS:  meta.DurationMS,
		Title:       meta.Title,
		Artist:      meta.Artist,
		Artwork:     meta.Artwork,
		FileSize:    fp.Size,
		Fingerprint: fp.Key(),
	}
	if err := m.records.InsertBook(ctx, book); err != nil {
		return nil, library.Wrap(library.ErrPersistence, "catalog", "import", "insert book", err)
	}
	if err := m.enqueueSync(ctx, EntityBook, id, OpUpsert, book); err != nil {
		return nil, err
	}

	m.logger.Info("book imported",
		logging.String(logging.FieldBookID, id),
		logging.String("name", name),
		logging.Int64("duration_ms", meta.DurationMS))
	return book, nil
}

// restoreArchivedBook re-activates a book whose file was removed. The
// existing id is kept so clips and sessions stay attached to it.
func (m *Manager) restoreArchivedBook(ctx context.Context, existing *library.Book, temp, name string, meta library.TrackMetadata, fp library.Fingerprint, tempURI, finalURI *string) (*library.Book, error) {
	uri, err := m.files.Rename(temp, existing.ID)
	if err != nil {
		return nil, library.Wrap(library.ErrMedia, "catalog", "import", "rename into place", err)
	}
	*tempURI = ""
	*finalURI = uri

	upd := library.BookUpdate{
		URI:        uri,
		Name:       name,
		DurationMS: meta.DurationMS,
		Title:      meta.Title,
		Artist:     meta.Artist,
		Artwork:    meta.Artwork,
		FileSize:   fp.Size,
	}
	if err := m.records.RestoreBook(ctx, existing.ID, upd); err != nil {
		return nil, library.Wrap(library.ErrPersistence, "catalog", "import", "restore book", err)
	}
	if err := m.enqueueSync(ctx, EntityBook, existing.ID, OpUpsert, upd); err != nil {
		return nil, err
	}

	restored, err := m.records.BookByID(ctx, existing.ID)
	if err != nil {
		return nil, library.Wrap(library.ErrPersistence, "catalog", "import", "reread restored book", err)
	}

	m.logger.Info("archived book restored",
		logging.String(logging.FieldBookID, existing.ID),
		logging.String("name", name))
	return restored, nil
}

// absorbDuplicate handles a fingerprint matching a book whose file is still
// present. The fresh copy is discarded; only updated_at moves. Metadata from
// the new file is deliberately not merged over the existing record.
func (m *Manager) absorbDuplicate(ctx context.Context, existing *library.Book, temp string, tempURI *string) (*library.Book, error) {
	if err := m.files.Remove(temp); err != nil {
		return nil, library.Wrap(library.ErrMedia, "catalog", "import", "discard duplicate copy", err)
	}
	*tempURI = ""

	if err := m.records.TouchBook(ctx, existing.ID); err != nil {
		return nil, library.Wrap(library.ErrPersistence, "catalog", "import", "touch duplicate book", err)
	}
	if err := m.enqueueSync(ctx, EntityBook, existing.ID, OpUpsert, nil); err != nil {
		return nil, err
	}

	touched, err := m.records.BookByID(ctx, existing.ID)
	if err != nil {
		return nil, library.Wrap(library.ErrPersistence, "catalog", "import", "reread duplicate book", err)
	}

	m.logger.Info("duplicate import absorbed",
		logging.String(logging.FieldBookID, existing.ID),
		logging.String("name", existing.Name))
	return touched, nil
}

// discardImportArtifacts removes whatever files a failed import left behind.
// Removal failures are logged, never allowed to replace the import error.
func (m *Manager) discardImportArtifacts(uris ...string) {
	for _, uri := range uris {
		if uri == "" {
			continue
		}
		if err := m.files.Remove(uri); err != nil {
			m.logger.Warn("import cleanup failed",
				logging.String(logging.FieldURI, uri),
				logging.String(logging.FieldImpact, "stray file remains in library directory"),
				logging.Error(err))
		}
	}
}

// importName settles the display name for an ingested book: the caller's
// name when given, otherwise the source file name with its extension dropped
// and separators turned back into titled words.
func importName(displayName, sourceURI string) string {
	if name := strings.TrimSpace(displayName); name != "" {
		return name
	}
	base := filepath.Base(sourceURI)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return "Untitled"
	}
	return nameCaser.String(base)
}
