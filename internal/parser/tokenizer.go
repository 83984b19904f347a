package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minTokenLen is the shortest token kept for indexing, in runes.
const minTokenLen = 2

// Tokenize normalizes text for indexing: case-fold, strip punctuation,
// split on whitespace. Tokens shorter than two runes are dropped. The
// same function is applied to documents at ingest time and to queries,
// so matching stays symmetric.
func Tokenize(text string) []string {
	folded := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	fields := strings.Fields(folded)
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// TermFreqs counts token occurrences.
func TermFreqs(tokens []string) map[string]int {
	freqs := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freqs[t]++
	}
	return freqs
}
