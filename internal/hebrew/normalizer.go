// Package hebrew provides text normalisation for Hebrew sources:
// vowel-mark stripping and offset-preserving tokenisation. All indexing
// and search components share this package rather than carrying their
// own word-splitting logic.
package hebrew

import (
	"strings"
	"unicode"
)

// Combining-mark range for Hebrew vowel points and cantillation
// (niqqud and te'amim).
const (
	markLow  = '֑'
	markHigh = 'ׇ'
)

// MinTokenLength is the minimum normalised length for an emitted token.
const MinTokenLength = 2

// Token is one normalised word together with its position in the
// original text. Index and Length are rune offsets into the source so
// they remain valid for the un-normalised text.
type Token struct {
	// Text is the normalised form: marks stripped, lowercased.
	Text string

	// Index is the rune offset of the original run.
	Index int

	// Length is the rune length of the original run.
	Length int
}

// StripMarks removes Hebrew vowel and cantillation marks.
func StripMarks(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= markLow && r <= markHigh {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Normalize strips marks and lowercases.
func Normalize(s string) string {
	return strings.ToLower(StripMarks(s))
}

// Tokenize scans the text for maximal runs of Unicode letters and
// digits and emits the normalised form of each run at least
// MinTokenLength long. Hebrew combining marks inside a run do not
// break it; they are stripped from the emitted token but counted in
// the run's original length.
func Tokenize(text string) []Token {
	runes := []rune(text)
	var tokens []Token

	i := 0
	for i < len(runes) {
		if !isWordRune(runes[i]) {
			i++
			continue
		}
		start := i
		for i < len(runes) && isWordRune(runes[i]) {
			i++
		}
		raw := string(runes[start:i])
		cleaned := strings.ToLower(StripMarks(raw))
		if len([]rune(cleaned)) >= MinTokenLength {
			tokens = append(tokens, Token{
				Text:   cleaned,
				Index:  start,
				Length: i - start,
			})
		}
	}
	return tokens
}

// isWordRune reports whether r belongs to a token run. Combining marks
// continue a run so that pointed words tokenize as single words.
func isWordRune(r rune) bool {
	if r >= markLow && r <= markHigh {
		return true
	}
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}
