// Package textutil provides fuzzy text matching for resolving books by
// title on the command line.
package textutil

import (
	"math"
	"regexp"
	"strings"
)

var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Tokenize splits text into lowercase alphanumeric tokens, dropping
// single-character fragments.
func Tokenize(text string) []string {
	raw := tokenSplitPattern.Split(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, token := range raw {
		if len(token) < 2 {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// Similarity computes the cosine similarity of the term-frequency vectors
// of two strings. The result is 0 when either string has no usable tokens
// and 1 when both tokenize identically.
func Similarity(a, b string) float64 {
	va, normA := termVector(a)
	vb, normB := termVector(b)
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for token, count := range va {
		if other, ok := vb[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (normA * normB)
}

func termVector(text string) (map[string]float64, float64) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, 0
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var norm float64
	for _, count := range counts {
		norm += count * count
	}
	return counts, math.Sqrt(norm)
}
