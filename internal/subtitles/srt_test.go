package subtitles

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{3661.25, "01:01:01,250"},
		{5.999, "00:00:05,999"},
		{59.9999, "00:00:59,999"},
		{1.5, "00:00:01,500"},
		{3599.5, "00:59:59,500"},
		{360000, "100:00:00,000"},
		{86399.5, "23:59:59,500"},
		{0.0009999, "00:00:00,000"},
		{1.0009999, "00:00:01,000"},
		{2.0999995, "00:00:02,099"},
	}
	for _, tc := range tests {
		if got := FormatTimestamp(tc.seconds); got != tc.want {
			t.Fatalf("FormatTimestamp(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestFormatTimestampRoundTripsToMillisecond(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{2,}:\d{2}:\d{2},\d{3}$`)
	for _, ms := range []int64{0, 1, 999, 1000, 61_001, 3_599_999, 3_600_000, 45_296_789, 359_999_999, 400_000_123} {
		// Offset inside the millisecond so the value is unambiguous in binary.
		seconds := float64(ms)/1000 + 0.0004
		code := FormatTimestamp(seconds)
		if !pattern.MatchString(code) {
			t.Fatalf("FormatTimestamp(%v) = %q does not match SRT pattern", seconds, code)
		}
		parsed, err := ParseTimestamp(code)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", code, err)
		}
		want := float64(ms) / 1000
		if math.Abs(parsed-want) > 1e-9 {
			t.Fatalf("round trip of %v = %v, want %v", seconds, parsed, want)
		}
	}
}

func TestAssembleTwoSegments(t *testing.T) {
	got := Assemble([]Segment{
		{Start: 0, End: 1, Text: "a"},
		{Start: 1.5, End: 2, Text: "b"},
	})
	want := "1\n00:00:00,000 --> 00:00:01,000\na\n\n2\n00:00:01,500 --> 00:00:02,000\nb\n\n"
	if got != want {
		t.Fatalf("Assemble mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestAssembleEmpty(t *testing.T) {
	if got := Assemble(nil); got != "" {
		t.Fatalf("expected empty document, got %q", got)
	}
	if got := Assemble([]Segment{}); got != "" {
		t.Fatalf("expected empty document, got %q", got)
	}
}

func TestAssembleBlockCountAndOrder(t *testing.T) {
	for _, n := range []int{1, 2, 7, 25} {
		segments := make([]Segment, n)
		for i := range segments {
			segments[i] = Segment{
				Start: float64(i) * 2.5,
				End:   float64(i)*2.5 + 2,
				Text:  "line " + strconv.Itoa(i),
			}
		}
		doc := Assemble(segments)
		if again := Assemble(segments); again != doc {
			t.Fatalf("Assemble is not deterministic for n=%d", n)
		}
		cues := Parse(doc)
		if len(cues) != n {
			t.Fatalf("expected %d cues, got %d", n, len(cues))
		}
		for i, cue := range cues {
			if cue.Index != i+1 {
				t.Fatalf("cue %d has index %d", i, cue.Index)
			}
			if cue.Text != segments[i].Text {
				t.Fatalf("cue %d text = %q, want %q", i, cue.Text, segments[i].Text)
			}
		}
		if !strings.HasSuffix(doc, "\n\n") {
			t.Fatalf("expected trailing blank line, got %q", doc[len(doc)-4:])
		}
	}
}

func TestAssembleKeepsInputOrder(t *testing.T) {
	doc := Assemble([]Segment{
		{Start: 10, End: 11, Text: "later"},
		{Start: 1, End: 2, Text: "earlier"},
	})
	if strings.Index(doc, "later") > strings.Index(doc, "earlier") {
		t.Fatalf("expected input order to be preserved, got %q", doc)
	}
	if !strings.HasPrefix(doc, "1\n00:00:10,000") {
		t.Fatalf("expected first cue to be the first segment, got %q", doc)
	}
}

func TestAssembleKeepsUnicodeText(t *testing.T) {
	text := "سڵاو، چۆنی؟"
	doc := Assemble([]Segment{{Start: 0, End: 1.2, Text: text}})
	if !strings.Contains(doc, "\n"+text+"\n\n") {
		t.Fatalf("expected Sorani text verbatim, got %q", doc)
	}
}
