package textutil

import (
	"math"
	"testing"
)

func TestSimilarityIdentical(t *testing.T) {
	text := "The Count of Monte Cristo"
	if got := Similarity(text, text); got != 1.0 {
		t.Errorf("Similarity(identical) = %v, want 1.0", got)
	}
}

func TestSimilarityCaseAndPunctuationInsensitive(t *testing.T) {
	got := Similarity("Moby-Dick; or, The Whale", "moby dick or the whale")
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Similarity = %v, want 1.0", got)
	}
}

func TestSimilarityDisjoint(t *testing.T) {
	if got := Similarity("apple banana cherry", "dog elephant frog"); got != 0 {
		t.Errorf("Similarity(disjoint) = %v, want 0", got)
	}
}

func TestSimilarityPartialOverlap(t *testing.T) {
	got := Similarity("summer book", "my summer book")
	if got <= 0 || got >= 1 {
		t.Errorf("Similarity(partial) = %v, want between 0 and 1", got)
	}
}

func TestSimilarityEmptyInputs(t *testing.T) {
	if got := Similarity("", "anything"); got != 0 {
		t.Errorf("Similarity(empty) = %v, want 0", got)
	}
	if got := Similarity("!!!", "???"); got != 0 {
		t.Errorf("Similarity(no tokens) = %v, want 0", got)
	}
}

func TestTokenizeDropsShortFragments(t *testing.T) {
	tokens := Tokenize("A Tale of Two Cities")
	want := []string{"tale", "of", "two", "cities"}
	if len(tokens) != len(want) {
		t.Fatalf("Tokenize = %v, want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, tokens[i], want[i])
		}
	}
}
