package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var foldCaser = cases.Fold()

// isSourceTerminator reports sentence terminators for Arabic or Latin text:
// . ! ? plus the Arabic comma and question mark, and newlines.
func isSourceTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '،', '؟', '\n':
		return true
	}
	return false
}

// isTargetTerminator reports sentence terminators for the translated text.
func isTargetTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '\n':
		return true
	}
	return false
}

// IsSentenceEnd reports whether r ends a sentence in the target text.
func IsSentenceEnd(r rune) bool { return r != '\n' && isTargetTerminator(r) }

// SourceSentences splits source text on Arabic and Latin terminators and
// returns the non-empty, trimmed segments.
func SourceSentences(s string) []string { return splitSentences(s, isSourceTerminator) }

// Sentences splits translated text on . ! ? and newlines and returns the
// non-empty, trimmed segments.
func Sentences(s string) []string { return splitSentences(s, isTargetTerminator) }

func splitSentences(s string, isTerm func(rune) bool) []string {
	parts := strings.FieldsFunc(s, isTerm)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Words splits s on whitespace.
func Words(s string) []string { return strings.Fields(s) }

// Tokens returns the case-folded, NFKC-normalized word tokens of s with
// surrounding punctuation removed. Tokens that consist only of punctuation
// are dropped.
func Tokens(s string) []string {
	s = foldCaser.String(norm.NFKC.String(s))
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, "'-"); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Fold returns s case-folded and NFKC-normalized with whitespace collapsed.
func Fold(s string) string {
	s = norm.NFKC.String(strings.TrimSpace(s))
	return foldCaser.String(strings.Join(strings.Fields(s), " "))
}

// RuneLen returns the number of runes in s.
func RuneLen(s string) int { return utf8.RuneCountInString(s) }

// Tail returns at most n trailing runes of s, starting at a word boundary
// when one exists inside the window.
func Tail(s string, n int) string {
	runes := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(runes) <= n {
		return s
	}
	window := runes[len(runes)-n:]
	for i, r := range window {
		if unicode.IsSpace(r) {
			return strings.TrimSpace(string(window[i:]))
		}
	}
	return string(window)
}

// ChunkText splits text into chunks of at most maxRunes runes. Splits prefer
// the last sentence boundary inside the window, then the last space, and
// fall back to a hard cut. Boundaries are measured in runes so Arabic text
// is never cut inside a character. Empty chunks are dropped.
func ChunkText(text string, maxRunes int) []string {
	runes := []rune(text)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + maxRunes
		if end >= len(runes) {
			chunks = appendChunk(chunks, runes[start:])
			break
		}

		split := lastBoundary(runes[start:end])
		if split <= 0 {
			split = end - start
		}
		chunks = appendChunk(chunks, runes[start:start+split])
		start += split
	}
	return chunks
}

// lastBoundary returns the offset just past the last sentence terminator and
// any following spaces in window, or the offset of the last space, or 0.
func lastBoundary(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if isSourceTerminator(window[i]) {
			j := i + 1
			for j < len(window) && unicode.IsSpace(window[j]) {
				j++
			}
			return j
		}
	}
	for i := len(window) - 1; i > 0; i-- {
		if window[i] == ' ' {
			return i
		}
	}
	return 0
}

func appendChunk(chunks []string, r []rune) []string {
	if c := strings.TrimSpace(string(r)); c != "" {
		return append(chunks, c)
	}
	return chunks
}
