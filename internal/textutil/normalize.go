package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText returns s in Unicode NFC form with surrounding whitespace
// removed.
func NormalizeText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// Excerpt returns at most n runes of s, appending "..." when truncated.
func Excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "..."
}
