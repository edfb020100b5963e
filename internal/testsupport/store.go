package testsupport

import (
	"context"
	"testing"

	"earmark/internal/config"
	"earmark/internal/library"
	"earmark/internal/store"
)

// MustOpenStore opens a record store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// InsertBook persists a book for tests using the provided store.
func InsertBook(t testing.TB, st *store.Store, book library.Book) library.Book {
	t.Helper()

	if err := st.InsertBook(context.Background(), &book); err != nil {
		t.Fatalf("store.InsertBook: %v", err)
	}
	return book
}
