package catalog_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"earmark/internal/library"
)

func TestArchiveBookClearsURIAndRemovesFile(t *testing.T) {
	e := newEnv(t)
	book := e.importFile(t, "archive target", "target.mp3")

	if err := e.mgr.ArchiveBook(context.Background(), book.ID); err != nil {
		t.Fatalf("ArchiveBook: %v", err)
	}

	row, err := e.store.BookByID(context.Background(), book.ID)
	if err != nil {
		t.Fatalf("BookByID: %v", err)
	}
	if !row.Archived() {
		t.Errorf("row not archived: %+v", row)
	}

	books := e.mgr.Books()
	if len(books) != 1 || !books[0].Archived() {
		t.Errorf("projection = %+v, want archived entry retained", books)
	}
	if ops := e.syncs.ops("book"); ops[len(ops)-1] != "upsert" {
		t.Errorf("sync ops = %v, want trailing upsert", ops)
	}
	waitForRemoval(t, book.URI)
}

func TestArchiveBookUnknownFails(t *testing.T) {
	e := newEnv(t)
	err := e.mgr.ArchiveBook(context.Background(), "ghost")
	if !errors.Is(err, library.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestArchiveBookRollsBackProjectionOnPersistFailure(t *testing.T) {
	e := newEnv(t)
	book := e.importFile(t, "rollback target", "rb.mp3")
	e.records.archiveErr = errors.New("database locked")
	syncBefore := len(e.syncs.entries)

	err := e.mgr.ArchiveBook(context.Background(), book.ID)
	if !errors.Is(err, library.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}

	books := e.mgr.Books()
	if len(books) != 1 || books[0].URI != book.URI {
		t.Errorf("projection uri not restored: %+v", books)
	}
	if len(e.syncs.entries) != syncBefore {
		t.Error("failed archive must not queue sync changes")
	}
	// No file deletion is attempted on the failure path.
	if _, statErr := os.Stat(book.URI); statErr != nil {
		t.Errorf("audio file removed despite failed archive: %v", statErr)
	}
}

func TestArchiveBookRollsBackOnSyncFailure(t *testing.T) {
	e := newEnv(t)
	book := e.importFile(t, "sync fail target", "sf.mp3")
	e.syncs.err = errors.New("queue unavailable")

	err := e.mgr.ArchiveBook(context.Background(), book.ID)
	if !errors.Is(err, library.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if books := e.mgr.Books(); books[0].URI != book.URI {
		t.Errorf("projection uri not restored: %+v", books[0])
	}
	if _, statErr := os.Stat(book.URI); statErr != nil {
		t.Errorf("audio file removed despite failed archive: %v", statErr)
	}
}

func TestDeleteBookHidesRowAndRemovesProjectionEntry(t *testing.T) {
	e := newEnv(t)
	keep := e.importFile(t, "kept book", "keep.mp3")
	doomed := e.importFile(t, "doomed book", "doom.mp3")

	if err := e.mgr.DeleteBook(context.Background(), doomed.ID); err != nil {
		t.Fatalf("DeleteBook: %v", err)
	}

	row, err := e.store.BookByID(context.Background(), doomed.ID)
	if err != nil {
		t.Fatalf("BookByID: %v", err)
	}
	if row == nil || !row.Hidden {
		t.Errorf("row should survive hidden: %+v", row)
	}

	books := e.mgr.Books()
	if len(books) != 1 || books[0].ID != keep.ID {
		t.Errorf("projection = %+v", books)
	}
	if ops := e.syncs.ops("book"); ops[len(ops)-1] != "delete" {
		t.Errorf("sync ops = %v, want trailing delete", ops)
	}
	waitForRemoval(t, doomed.URI)
}

func TestDeleteBookReinstatesProjectionEntryOnFailure(t *testing.T) {
	e := newEnv(t)
	first := e.importFile(t, "list first", "l1.mp3")
	second := e.importFile(t, "list second", "l2.mp3")
	e.records.hideErr = errors.New("database locked")

	err := e.mgr.DeleteBook(context.Background(), second.ID)
	if !errors.Is(err, library.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}

	books := e.mgr.Books()
	if len(books) != 2 {
		t.Fatalf("projection = %d entries, want 2", len(books))
	}
	// The entry comes back in its original slot.
	if books[0].ID != second.ID || books[1].ID != first.ID {
		t.Errorf("order after rollback = [%s, %s]", books[0].ID, books[1].ID)
	}
	if _, statErr := os.Stat(second.URI); statErr != nil {
		t.Errorf("audio file removed despite failed delete: %v", statErr)
	}
}

func TestDestructiveOpsUnloadLoadedStream(t *testing.T) {
	e := newEnv(t)
	book := e.importFile(t, "loaded book", "loaded.mp3")

	playback := &playbackStub{loaded: book.URI}
	e.mgr.WithPlayback(playback)

	if err := e.mgr.ArchiveBook(context.Background(), book.ID); err != nil {
		t.Fatalf("ArchiveBook: %v", err)
	}
	if playback.unloads != 1 {
		t.Errorf("unloads = %d, want 1", playback.unloads)
	}

	other := e.importFile(t, "unrelated book", "other.mp3")
	playback.loaded = "/somewhere/else.mp3"
	if err := e.mgr.DeleteBook(context.Background(), other.ID); err != nil {
		t.Fatalf("DeleteBook: %v", err)
	}
	if playback.unloads != 1 {
		t.Error("delete of an unloaded book must not unload playback")
	}
}

func TestSavePositionPersistsAndProjects(t *testing.T) {
	e := newEnv(t)
	book := e.importFile(t, "position book", "pos.mp3")

	if err := e.mgr.SavePosition(context.Background(), book.ID, 42_500); err != nil {
		t.Fatalf("SavePosition: %v", err)
	}

	row, err := e.store.BookByID(context.Background(), book.ID)
	if err != nil {
		t.Fatalf("BookByID: %v", err)
	}
	if row.PositionMS != 42_500 {
		t.Errorf("persisted position = %d", row.PositionMS)
	}
	if books := e.mgr.Books(); books[0].PositionMS != 42_500 {
		t.Errorf("projected position = %d", books[0].PositionMS)
	}
}

func TestTrackForURI(t *testing.T) {
	e := newEnv(t)
	book := e.importFile(t, "resolver book", "res.mp3")

	info, err := e.mgr.TrackForURI(context.Background(), book.URI)
	if err != nil {
		t.Fatalf("TrackForURI: %v", err)
	}
	if info.Title != "The Title" || info.Artist != "The Artist" {
		t.Errorf("track info = %+v", info)
	}

	_, err = e.mgr.TrackForURI(context.Background(), "/not/managed.mp3")
	if !errors.Is(err, library.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
