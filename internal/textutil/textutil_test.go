package textutil

import (
	"strings"
	"testing"
)

func TestNormalizeTextComposes(t *testing.T) {
	decomposed := "e\u0301"
	if got := NormalizeText("  " + decomposed + "\n"); got != "\u00e9" {
		t.Fatalf("NormalizeText = %q, want %q", got, "\u00e9")
	}
}

func TestNormalizeTextKeepsSorani(t *testing.T) {
	in := "سڵاو لە هەمووان"
	if got := NormalizeText(" " + in + " "); got != in {
		t.Fatalf("NormalizeText = %q, want %q", got, in)
	}
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"hello world", 5, "hello..."},
		{"سڵاو لە هەمووان", 4, "سڵاو..."},
		{"anything", 0, "anything"},
	}
	for _, tc := range tests {
		if got := Excerpt(tc.in, tc.n); got != tc.want {
			t.Fatalf("Excerpt(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{` clip: "take" 1.mp4 `, "clip- take 1.mp4"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\voice*.wav`, "voice-.wav"},
		{"..hidden.mp3", "hidden.mp3"},
		{"ده\u0000نگ.ogg", "دهنگ.ogg"},
		{"dir/", ""},
		{"   ", ""},
	}
	for _, tc := range tests {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if got := SanitizeFileName(strings.Repeat("a", 300) + ".mp4"); len([]rune(got)) != maxFileNameRunes {
		t.Fatalf("expected name capped at %d runes, got %d", maxFileNameRunes, len([]rune(got)))
	}
}
