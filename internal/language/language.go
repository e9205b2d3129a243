package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Sorani is the BCP 47 tag of Central Kurdish, the dubbing target.
const Sorani = "ckb"

type entry struct {
	code    string   // shortest BCP 47 tag (ISO 639-1 where one exists)
	code3   string   // ISO 639-2/3 code
	display string   // Human-readable name
	words   []string // Full word forms as reported by speech recognizers
}

var languages = []entry{
	{"en", "eng", "English", []string{"english"}},
	{"ar", "ara", "Arabic", []string{"arabic"}},
	{"fa", "fas", "Persian", []string{"persian", "farsi"}},
	{"tr", "tur", "Turkish", []string{"turkish"}},
	{"de", "deu", "German", []string{"german"}},
	{"fr", "fra", "French", []string{"french"}},
	{"es", "spa", "Spanish", []string{"spanish"}},
	{"ru", "rus", "Russian", []string{"russian"}},
	{"ku", "kur", "Kurdish", []string{"kurdish"}},
	{"ckb", "ckb", "Central Kurdish (Sorani)", []string{"sorani", "central kurdish"}},
	{"kmr", "kmr", "Northern Kurdish (Kurmanji)", []string{"kurmanji", "northern kurdish"}},
}

var (
	byCode  map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages))
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode[e.code] = e
		byCode3[e.code3] = e
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// Normalize converts a language code or word ("english", "eng", "en-US") to
// its shortest tag. Unrecognized input that parses as BCP 47 is reduced to its
// base language; anything else yields "".
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code
	}
	tag, err := xlanguage.Parse(code)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	if e := lookup(base.String()); e != nil {
		return e.code
	}
	return base.String()
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	if e := lookup(trimmed); e != nil {
		return e.display
	}
	if tag, err := xlanguage.Parse(trimmed); err == nil {
		if name := display.English.Languages().Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(trimmed)
}
