package ffprobe

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCountSkipsCoverArt(t *testing.T) {
	var result Result
	result.Streams = []Stream{
		{CodecType: "audio", CodecName: "mp3"},
		{CodecType: "video", CodecName: "mjpeg"},
		{CodecType: "video", CodecName: "h264"},
	}
	result.Streams[2].Disposition.AttachedPic = 1

	if got := result.Count(KindAudio); got != 1 {
		t.Fatalf("audio count = %d, want 1", got)
	}
	if result.HasVideo() {
		t.Fatal("cover art should not count as video")
	}

	result.Streams = append(result.Streams, Stream{CodecType: "VIDEO", CodecName: "vp9"})
	if !result.HasVideo() || result.Count(KindVideo) != 1 {
		t.Fatalf("expected one real video stream, got %d", result.Count(KindVideo))
	}
}

func TestDurationSeconds(t *testing.T) {
	tests := map[string]float64{
		"123.45": 123.45,
		" 7 ":    7,
		"":       0,
		"N/A":    0,
		"-3":     0,
	}
	for raw, want := range tests {
		if got := (Result{Format: Format{Duration: raw}}).DurationSeconds(); got != want {
			t.Fatalf("DurationSeconds(%q) = %v, want %v", raw, got, want)
		}
	}
}

func writeStub(t *testing.T, body string) string {
	t.Helper()
	stub := filepath.Join(t.TempDir(), "ffprobe")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return stub
}

func TestInspectorRunsBinary(t *testing.T) {
	stub := writeStub(t, `echo '{"streams":[{"index":0,"codec_type":"audio","codec_name":"mp3","sample_rate":"44100","channels":2}],"format":{"duration":"12.5"}}'`+"\n")

	result, err := Inspector{Binary: stub}.Inspect(context.Background(), "clip.mp3")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if result.Count(KindAudio) != 1 || result.HasVideo() {
		t.Fatalf("unexpected streams %+v", result.Streams)
	}
	if result.Streams[0].Channels != 2 || result.DurationSeconds() != 12.5 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestInspectorReportsStderr(t *testing.T) {
	stub := writeStub(t, "echo 'clip.mp3: Invalid data found' >&2\nexit 1\n")

	_, err := Inspector{Binary: stub}.Inspect(context.Background(), "clip.mp3")
	if err == nil || !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	if _, err := (Inspector{}).Inspect(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
