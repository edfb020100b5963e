package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"earmark/internal/library"
	"earmark/internal/testsupport"
)

func TestBookRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	book := testsupport.InsertBook(t, st, library.Book{
		ID:          "book-1",
		URI:         "/library/book-1.mp3",
		Name:        "Dune",
		DurationMS:  3_600_000,
		Title:       "Dune",
		Artist:      "Frank Herbert",
		FileSize:    1024,
		Fingerprint: "1024:abc",
	})

	got, err := st.BookByID(ctx, book.ID)
	if err != nil {
		t.Fatalf("BookByID: %v", err)
	}
	if got == nil {
		t.Fatal("expected book, got nil")
	}
	if got.URI != book.URI || got.Name != book.Name || got.Fingerprint != book.Fingerprint {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if got.Archived() {
		t.Error("book with uri should not report archived")
	}
}

func TestBookByIDMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	got, err := st.BookByID(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("BookByID: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown id, got %+v", got)
	}
}

func TestFingerprintLookupPrefersActiveRow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.InsertBook(t, st, library.Book{ID: "archived", Name: "A", Fingerprint: "9:zz"})
	testsupport.InsertBook(t, st, library.Book{ID: "active", URI: "/library/active.mp3", Name: "B", Fingerprint: "9:zz"})

	got, err := st.BookByFingerprint(ctx, "9:zz")
	if err != nil {
		t.Fatalf("BookByFingerprint: %v", err)
	}
	if got == nil || got.ID != "active" {
		t.Fatalf("expected active row to win, got %+v", got)
	}
}

func TestFingerprintLookupFindsHiddenRow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.InsertBook(t, st, library.Book{ID: "soft-deleted", Name: "A", Fingerprint: "5:hh", Hidden: true})

	got, err := st.BookByFingerprint(ctx, "5:hh")
	if err != nil {
		t.Fatalf("BookByFingerprint: %v", err)
	}
	if got == nil || got.ID != "soft-deleted" {
		t.Fatal("hidden rows must stay reachable by fingerprint for restore")
	}
}

func TestArchiveAndRestore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.InsertBook(t, st, library.Book{ID: "b", URI: "/library/b.mp3", Name: "B", Fingerprint: "7:ff"})

	if err := st.ArchiveBook(ctx, "b"); err != nil {
		t.Fatalf("ArchiveBook: %v", err)
	}
	got, _ := st.BookByID(ctx, "b")
	if !got.Archived() {
		t.Fatal("expected archived book after ArchiveBook")
	}

	err := st.RestoreBook(ctx, "b", library.BookUpdate{
		URI:        "/library/b.m4b",
		Name:       "B restored",
		DurationMS: 1234,
		Title:      "Title",
		FileSize:   99,
	})
	if err != nil {
		t.Fatalf("RestoreBook: %v", err)
	}
	got, _ = st.BookByID(ctx, "b")
	if got.Archived() || got.Name != "B restored" || got.DurationMS != 1234 {
		t.Errorf("restore did not apply: %+v", got)
	}
}

func TestHideBookExcludesFromListingOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.InsertBook(t, st, library.Book{ID: "x", URI: "/library/x.mp3", Name: "X", Fingerprint: "3:xx"})
	if err := st.HideBook(ctx, "x"); err != nil {
		t.Fatalf("HideBook: %v", err)
	}

	books, err := st.Books(ctx)
	if err != nil {
		t.Fatalf("Books: %v", err)
	}
	if len(books) != 0 {
		t.Errorf("hidden book should be excluded from listings, got %d", len(books))
	}

	got, _ := st.BookByID(ctx, "x")
	if got == nil || !got.Hidden {
		t.Error("hidden row should still exist")
	}
}

func TestMutationsOnMissingBookReturnNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := st.TouchBook(ctx, "ghost"); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("TouchBook: expected ErrNotFound, got %v", err)
	}
	if err := st.ArchiveBook(ctx, "ghost"); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("ArchiveBook: expected ErrNotFound, got %v", err)
	}
}

func TestBooksOrderedNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	testsupport.InsertBook(t, st, library.Book{ID: "first", URI: "/l/1.mp3", Name: "1"})
	testsupport.InsertBook(t, st, library.Book{ID: "second", URI: "/l/2.mp3", Name: "2"})

	books, err := st.Books(context.Background())
	if err != nil {
		t.Fatalf("Books: %v", err)
	}
	if len(books) != 2 || books[0].ID != "second" {
		t.Errorf("expected newest first, got %+v", books)
	}
}

func TestClipRoundTripWithJoin(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.InsertBook(t, st, library.Book{
		ID: "src", URI: "/library/src.mp3", Name: "Source", Title: "T", Artist: "A", DurationMS: 90_000,
	})
	clip := &library.Clip{
		ID:         "clip-1",
		SourceID:   "src",
		URI:        "/clips/clip-1.mp3",
		StartMS:    1000,
		DurationMS: 5000,
		Note:       "great bit",
	}
	if err := st.CreateClip(ctx, clip); err != nil {
		t.Fatalf("CreateClip: %v", err)
	}

	got, err := st.ClipByID(ctx, "clip-1")
	if err != nil {
		t.Fatalf("ClipByID: %v", err)
	}
	if got == nil {
		t.Fatal("expected clip")
	}
	if got.SourceURI != "/library/src.mp3" || got.SourceDurationMS != 90_000 {
		t.Errorf("join fields missing: %+v", got)
	}
	if got.Note != "great bit" {
		t.Errorf("note mismatch: %q", got.Note)
	}
}

func TestClipUpdateAndTranscription(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.InsertBook(t, st, library.Book{ID: "src", URI: "/l/src.mp3", Name: "S", DurationMS: 60_000})
	clip := &library.Clip{ID: "c", SourceID: "src", URI: "/clips/c.mp3", StartMS: 0, DurationMS: 2000}
	if err := st.CreateClip(ctx, clip); err != nil {
		t.Fatalf("CreateClip: %v", err)
	}

	clip.StartMS = 500
	clip.Note = "edited"
	if err := st.UpdateClip(ctx, clip); err != nil {
		t.Fatalf("UpdateClip: %v", err)
	}
	if err := st.SetClipTranscription(ctx, "c", "hello world"); err != nil {
		t.Fatalf("SetClipTranscription: %v", err)
	}

	got, _ := st.ClipByID(ctx, "c")
	if got.StartMS != 500 || got.Note != "edited" || got.Transcription != "hello world" {
		t.Errorf("updates not applied: %+v", got)
	}
}

func TestDeleteClipReportsExistence(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.InsertBook(t, st, library.Book{ID: "src", URI: "/l/src.mp3", Name: "S"})
	if err := st.CreateClip(ctx, &library.Clip{ID: "c", SourceID: "src", URI: "/clips/c.mp3"}); err != nil {
		t.Fatalf("CreateClip: %v", err)
	}

	existed, err := st.DeleteClip(ctx, "c")
	if err != nil || !existed {
		t.Fatalf("DeleteClip existing: existed=%v err=%v", existed, err)
	}
	existed, err = st.DeleteClip(ctx, "c")
	if err != nil || existed {
		t.Fatalf("DeleteClip missing: existed=%v err=%v", existed, err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	start := time.Now().UTC().Add(-time.Minute)
	session := &library.Session{
		ID:        "s1",
		BookID:    "b1",
		StartedAt: start,
		EndedAt:   start,
		BookName:  "Book",
	}
	if err := st.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	end := start.Add(45 * time.Second)
	if err := st.UpdateSessionEnd(ctx, "s1", end); err != nil {
		t.Fatalf("UpdateSessionEnd: %v", err)
	}

	current, err := st.CurrentSession(ctx, "b1")
	if err != nil {
		t.Fatalf("CurrentSession: %v", err)
	}
	if current == nil || !current.EndedAt.Equal(end) {
		t.Errorf("ended_at not extended: %+v", current)
	}

	if err := st.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	current, _ = st.CurrentSession(ctx, "b1")
	if current != nil {
		t.Error("expected no session after delete")
	}
}

func TestCheckHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	health, err := st.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.IntegrityCheck {
		t.Errorf("unexpected health: %+v", health)
	}
	if len(health.MissingTables) != 0 {
		t.Errorf("missing tables: %v", health.MissingTables)
	}
}
