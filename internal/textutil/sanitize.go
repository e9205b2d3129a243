package textutil

import (
	"strings"
	"unicode"
)

// maxFileNameRunes caps client-supplied names stored in the ledger.
const maxFileNameRunes = 120

// SanitizeFileName reduces a client-supplied upload name to a bare file name.
// Directory parts (either separator) are dropped, control characters and
// reserved characters removed, colons and asterisks turned into dashes. The
// result never starts with a dot.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	count := 0
	for _, r := range name {
		if count == maxFileNameRunes {
			break
		}
		switch {
		case unicode.IsControl(r), strings.ContainsRune(`?"<>|`, r):
			continue
		case r == ':' || r == '*':
			r = '-'
		}
		b.WriteRune(r)
		count++
	}
	return strings.TrimSpace(strings.TrimLeft(b.String(), ". "))
}
