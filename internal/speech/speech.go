package speech

import (
	"context"
	"errors"

	"dengbej/internal/subtitles"
	"dengbej/internal/textutil"
)

// Mode names accepted in pipeline configuration.
const (
	ModeHosted = "hosted"
	ModeScript = "script"
)

// ErrEmptyText is returned when a text request carries nothing to translate
// or synthesize.
var ErrEmptyText = errors.New("text is empty")

// Request describes one media run. The output paths are allocated by the
// caller; engines write the dubbed, background and voice tracks there.
type Request struct {
	AudioPath      string
	Speaker        string
	DubbedPath     string
	BackgroundPath string
	VoicePath      string
}

// Result is what an engine returns for a media run.
type Result struct {
	Transcription      string
	Translated         string
	Segments           []subtitles.Segment
	TranslatedSegments []subtitles.Segment
	SourceLanguage     string
	// DubbedPath is set when the engine wrote the dubbed audio somewhere
	// other than Request.DubbedPath.
	DubbedPath string
}

// TextRequest describes a text-only run: translate then synthesize.
type TextRequest struct {
	Text       string
	Speaker    string
	DubbedPath string
}

// TextResult is the outcome of a text-only run.
type TextResult struct {
	Text       string
	Translated string
	DubbedPath string
}

// SynthesisRequest asks for speech from text that is already Sorani.
type SynthesisRequest struct {
	Text       string
	Speaker    string
	OutputPath string
}

// Pipeline is the contract between the HTTP controller and a speech engine.
type Pipeline interface {
	// Process transcribes, translates and dubs the audio at req.AudioPath.
	Process(ctx context.Context, req Request) (Result, error)
	// Translate translates text and writes the dubbed audio.
	Translate(ctx context.Context, req TextRequest) (TextResult, error)
	// Synthesize writes speech for already translated text.
	Synthesize(ctx context.Context, req SynthesisRequest) error
}

// CleanSegments NFC-normalizes and trims segment text. Every segment is
// kept, in order, with its times as the engine reported them.
func CleanSegments(segments []subtitles.Segment) []subtitles.Segment {
	if len(segments) == 0 {
		return nil
	}
	out := make([]subtitles.Segment, len(segments))
	for i, seg := range segments {
		seg.Text = textutil.NormalizeText(seg.Text)
		out[i] = seg
	}
	return out
}

// SubtitleSegments picks the segments used for the subtitle document:
// translated segments when the engine produced any, else the transcription.
func SubtitleSegments(result Result) []subtitles.Segment {
	if len(result.TranslatedSegments) > 0 {
		return CleanSegments(result.TranslatedSegments)
	}
	return CleanSegments(result.Segments)
}
