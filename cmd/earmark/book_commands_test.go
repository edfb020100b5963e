package main

import (
	"testing"

	"earmark/internal/library"
)

func TestResolveBookByTitle(t *testing.T) {
	books := []library.Book{
		{ID: "aaa", Name: "My Summer Book"},
		{ID: "bbb", Name: "Winter Stories"},
		{ID: "ccc", Title: "The Count of Monte Cristo", Name: "monte_cristo"},
	}

	book, err := resolveBookByTitle("summer book", books)
	if err != nil {
		t.Fatalf("resolveBookByTitle: %v", err)
	}
	if book.ID != "aaa" {
		t.Errorf("matched %s, want aaa", book.ID)
	}

	book, err = resolveBookByTitle("monte cristo", books)
	if err != nil {
		t.Fatalf("resolveBookByTitle metadata title: %v", err)
	}
	if book.ID != "ccc" {
		t.Errorf("matched %s, want ccc", book.ID)
	}

	if _, err := resolveBookByTitle("nonexistent", books); err == nil {
		t.Error("expected error for unmatched title")
	}
}

func TestResolveBookByTitleRejectsTies(t *testing.T) {
	books := []library.Book{
		{ID: "aaa", Name: "Summer Book"},
		{ID: "bbb", Name: "Summer Book"},
	}
	if _, err := resolveBookByTitle("summer book", books); err == nil {
		t.Error("expected error when two titles match equally")
	}
}
