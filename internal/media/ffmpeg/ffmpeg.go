// Package ffmpeg wraps the ffmpeg invocations used by the dubbing pipeline:
// pulling the audio track out of uploaded video, normalizing synthesized
// speech to MP3, and deriving the background and reference-voice tracks.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultBinary is used when no ffmpeg path is configured.
const DefaultBinary = "ffmpeg"

// Filter graphs for track derivation. Vocals are usually mixed to the centre
// of a stereo image, so subtracting one channel from the other leaves the
// accompaniment. The voice band-pass keeps the speech range.
const (
	backgroundFilter = "pan=stereo|c0=c0-c1|c1=c1-c0"
	voiceFilter      = "highpass=f=200,lowpass=f=3400,afftdn=nf=-25"
)

// CommandRunner executes a binary and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Runner executes ffmpeg.
type Runner struct {
	binary string
	run    CommandRunner
}

// New builds a Runner for the given binary.
func New(binary string) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultBinary
	}
	return &Runner{binary: binary, run: execCombined}
}

// WithCommandRunner replaces process execution, for tests.
func (r *Runner) WithCommandRunner(run CommandRunner) *Runner {
	if run != nil {
		r.run = run
	}
	return r
}

// Binary reports the ffmpeg executable in use.
func (r *Runner) Binary() string {
	return r.binary
}

// ExtractAudio writes the audio of source to dest as MP3, dropping video,
// subtitle and data streams.
func (r *Runner) ExtractAudio(ctx context.Context, source, dest string) error {
	return r.exec(ctx, "ffmpeg extract", source, dest, []string{"-vn", "-sn", "-dn"}, mp3Args())
}

// ConvertToMP3 re-encodes source (typically WAV from a speech API) as MP3.
func (r *Runner) ConvertToMP3(ctx context.Context, source, dest string) error {
	return r.exec(ctx, "ffmpeg convert", source, dest, []string{"-vn"}, mp3Args())
}

// SeparateBackground writes the accompaniment of source to dest by cancelling
// centre-panned vocals. Mono sources produce near silence.
func (r *Runner) SeparateBackground(ctx context.Context, source, dest string) error {
	return r.exec(ctx, "ffmpeg background", source, dest, []string{"-vn", "-af", backgroundFilter}, mp3Args())
}

// IsolateVoice writes a speech-band copy of source to dest for use as the
// original-language reference track.
func (r *Runner) IsolateVoice(ctx context.Context, source, dest string) error {
	return r.exec(ctx, "ffmpeg voice", source, dest, []string{"-vn", "-af", voiceFilter}, mp3Args())
}

func (r *Runner) exec(ctx context.Context, label, source, dest string, filters, codec []string) error {
	source = strings.TrimSpace(source)
	dest = strings.TrimSpace(dest)
	if source == "" || dest == "" {
		return fmt.Errorf("%s: source and destination are required", label)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
	}
	args = append(args, filters...)
	args = append(args, codec...)
	args = append(args, dest)

	output, err := r.run(ctx, r.binary, args...)
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			return fmt.Errorf("%s: %w", label, err)
		}
		return fmt.Errorf("%s: %w: %s", label, err, detail)
	}
	return nil
}

func mp3Args() []string {
	return []string{"-c:a", "libmp3lame", "-q:a", "2"}
}

func execCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return output, fmt.Errorf("exit status %d", exitErr.ExitCode())
		}
		return output, err
	}
	return output, nil
}
