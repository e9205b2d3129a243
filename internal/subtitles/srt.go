package subtitles

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Segment is one timed span of recognized (or translated) speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// FormatTimestamp renders seconds as an SRT time code (HH:MM:SS,mmm). Every
// field is floored, so 5.999 stays 00:00:05,999. Hours widen past two digits
// instead of wrapping. Callers must pass a finite, non-negative value.
func FormatTimestamp(seconds float64) string {
	// The epsilon absorbs binary representation error (5.999*1000 may land
	// just under 5999) without ever reaching the next millisecond.
	total := int64(math.Floor(seconds*1000 + msEpsilon))
	millis := total % 1000
	secs := (total / 1000) % 60
	minutes := (total / 60_000) % 60
	hours := total / 3_600_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

const msEpsilon = 1e-6

// Assemble builds an SRT document with one cue per segment, numbered from 1
// in input order. Segment order and timing are trusted as given. An empty
// slice yields an empty document.
func Assemble(segments []Segment) string {
	if len(segments) == 0 {
		return ""
	}
	var b strings.Builder
	for i, seg := range segments {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte('\n')
		b.WriteString(FormatTimestamp(seg.Start))
		b.WriteString(" --> ")
		b.WriteString(FormatTimestamp(seg.End))
		b.WriteByte('\n')
		b.WriteString(seg.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}
