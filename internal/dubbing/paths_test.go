package dubbing

import (
	"path/filepath"
	"testing"
)

func TestUploadExt(t *testing.T) {
	tests := []struct {
		filename, contentType, want string
	}{
		{"clip.MP4", "video/mp4", ".mp4"},
		{"voice.wav", "", ".wav"},
		{"noext", "audio/mpeg", ".mp3"},
		{"weird.ext with space", "", ".bin"},
		{"", "application/x-unknown-type", ".bin"},
		{"", "video/quicktime; codecs=avc1", ".mov"},
	}
	for _, tt := range tests {
		got := uploadExt(tt.filename, tt.contentType)
		if got != tt.want {
			t.Errorf("uploadExt(%q, %q) = %q, want %q", tt.filename, tt.contentType, got, tt.want)
		}
	}
}

func TestIsVideo(t *testing.T) {
	for ct, want := range map[string]bool{
		"video/mp4":       true,
		"Video/WebM":      true,
		"audio/mpeg":      false,
		"":                false,
		"application/mp4": false,
	} {
		if got := isVideo(ct); got != want {
			t.Errorf("isVideo(%q) = %v", ct, got)
		}
	}
}

func TestRequestPathsDistinctPerID(t *testing.T) {
	a := newRequestPaths("/s", "/o", NewRequestID(), ".wav", false)
	b := newRequestPaths("/s", "/o", NewRequestID(), ".wav", false)
	seen := map[string]bool{}
	for _, p := range append(append(a.scratch(), a.outputs()...), append(b.scratch(), b.outputs()...)...) {
		if seen[p] {
			t.Fatalf("duplicate path %s", p)
		}
		seen[p] = true
	}
	if filepath.Dir(a.upload) != "/s" || filepath.Dir(a.dubbed) != "/o" {
		t.Fatalf("unexpected layout %+v", a)
	}
}

func TestValidRequestID(t *testing.T) {
	if !ValidRequestID(NewRequestID()) {
		t.Fatal("generated id rejected")
	}
	for _, id := range []string{"", "abc", "../../etc/passwd", "{0b7c2c55-6f4e-4f0e-8f43-2f2b8d0f6a11}"} {
		if ValidRequestID(id) {
			t.Fatalf("accepted %q", id)
		}
	}
}

func TestWebPath(t *testing.T) {
	if got := webPath("/outputs", "/var/lib/dengbej/outputs/x-kurdish.mp3"); got != "/outputs/x-kurdish.mp3" {
		t.Fatalf("webPath = %q", got)
	}
	if got := webPath("outputs/", "a.mp3"); got != "/outputs/a.mp3" {
		t.Fatalf("webPath = %q", got)
	}
}
