package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Stream kinds as reported in codec_type.
const (
	KindAudio = "audio"
	KindVideo = "video"
)

// Result is the subset of `ffprobe -show_format -show_streams` output the
// upload path reads.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream is one elementary stream.
type Stream struct {
	Index       int         `json:"index"`
	CodecName   string      `json:"codec_name"`
	CodecType   string      `json:"codec_type"`
	SampleRate  string      `json:"sample_rate"`
	Channels    int         `json:"channels"`
	Disposition Disposition `json:"disposition"`
}

// Disposition carries the stream flags ffprobe reports as 0 or 1.
type Disposition struct {
	AttachedPic int `json:"attached_pic"`
}

// Format is the container section.
type Format struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
}

// Inspector runs ffprobe. Its zero value uses "ffprobe" from PATH.
type Inspector struct {
	Binary string
}

// Inspect probes path and decodes the JSON report.
func (i Inspector) Inspect(ctx context.Context, path string) (Result, error) {
	if strings.TrimSpace(path) == "" {
		return Result{}, errors.New("ffprobe: empty path")
	}
	binary := strings.TrimSpace(i.Binary)
	if binary == "" {
		binary = "ffprobe"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner",
		"-show_format", "-show_streams", "-of", "json", "--", path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}

	var result Result
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe %s: decode: %w", path, err)
	}
	return result, nil
}

// Count returns the number of streams of the given kind. Attached pictures
// (cover art) are not counted as video.
func (r Result) Count(kind string) int {
	n := 0
	for _, s := range r.Streams {
		if !strings.EqualFold(s.CodecType, kind) {
			continue
		}
		if kind == KindVideo && s.isCoverArt() {
			continue
		}
		n++
	}
	return n
}

// HasVideo reports whether the container carries real picture content.
func (r Result) HasVideo() bool {
	return r.Count(KindVideo) > 0
}

// DurationSeconds is the container duration, or 0 when ffprobe did not
// report a usable one.
func (r Result) DurationSeconds() float64 {
	d, err := strconv.ParseFloat(strings.TrimSpace(r.Format.Duration), 64)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

func (s Stream) isCoverArt() bool {
	if s.Disposition.AttachedPic == 1 {
		return true
	}
	switch strings.ToLower(s.CodecName) {
	case "mjpeg", "png", "bmp":
		return true
	}
	return false
}
