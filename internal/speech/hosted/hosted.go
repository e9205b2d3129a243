package hosted

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"dengbej/internal/language"
	"dengbej/internal/logging"
	"dengbej/internal/services"
	"dengbej/internal/speech"
	"dengbej/internal/subtitles"
	"dengbej/internal/textutil"
)

// Defaults mirror the models the service was built against.
const (
	DefaultTranscriptionModel = openai.Whisper1
	DefaultTranslationModel   = "gpt-4o-mini"
	DefaultSpeechModel        = string(openai.TTSModel1)
	DefaultSpeechVoice        = string(openai.VoiceAlloy)
)

// Config selects models and voices.
type Config struct {
	TranscriptionModel string
	TranslationModel   string
	SpeechModel        string
	SpeechVoice        string
}

// Synthesizer speaks Sorani text. *kurdishtts.Client satisfies it.
type Synthesizer interface {
	Configured() bool
	SynthesizeToFile(ctx context.Context, text, speaker, dest string) error
}

// Media post-processes audio. *ffmpeg.Runner satisfies it.
type Media interface {
	ConvertToMP3(ctx context.Context, source, dest string) error
	SeparateBackground(ctx context.Context, source, dest string) error
	IsolateVoice(ctx context.Context, source, dest string) error
}

// Engine implements speech.Pipeline against hosted APIs.
type Engine struct {
	cfg    Config
	client *openai.Client
	tts    Synthesizer
	media  Media
	logger *slog.Logger
}

var _ speech.Pipeline = (*Engine)(nil)

// New constructs a hosted engine. tts may be nil, in which case OpenAI
// speech synthesis is used for every request.
func New(cfg Config, client *openai.Client, tts Synthesizer, media Media, logger *slog.Logger) *Engine {
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = DefaultTranscriptionModel
	}
	if cfg.TranslationModel == "" {
		cfg.TranslationModel = DefaultTranslationModel
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = DefaultSpeechModel
	}
	if cfg.SpeechVoice == "" {
		cfg.SpeechVoice = DefaultSpeechVoice
	}
	return &Engine{
		cfg:    cfg,
		client: client,
		tts:    tts,
		media:  media,
		logger: logging.NewComponentLogger(logger, "speech-hosted"),
	}
}

// NewOpenAIClient builds an API client, honouring a custom base URL for
// compatible gateways.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if base := strings.TrimSpace(baseURL); base != "" {
		cfg.BaseURL = strings.TrimRight(base, "/")
	}
	return openai.NewClientWithConfig(cfg)
}

// Process transcribes, translates and dubs the audio.
func (e *Engine) Process(ctx context.Context, req speech.Request) (speech.Result, error) {
	logger := logging.WithContext(ctx, e.logger)

	transcript, err := e.transcribe(ctx, req.AudioPath)
	if err != nil {
		return speech.Result{}, err
	}
	result := speech.Result{
		Transcription:  textutil.NormalizeText(transcript.Text),
		Segments:       segmentsFromTranscript(transcript),
		SourceLanguage: language.Normalize(transcript.Language),
	}
	if result.Transcription == "" {
		return speech.Result{}, services.Wrap(services.ErrPipeline, "transcribe", "", "no speech detected", nil)
	}
	logger.Info("transcription complete",
		logging.String(logging.FieldEventType, "transcribed"),
		logging.Int("segments", len(result.Segments)),
		logging.String("source_language", language.DisplayName(result.SourceLanguage)),
	)

	result.Translated, err = e.translate(ctx, result.Transcription)
	if err != nil {
		return speech.Result{}, err
	}
	result.TranslatedSegments = e.translateSegments(ctx, logger, result.Segments)

	if err := e.synthesize(ctx, result.Translated, req.Speaker, req.DubbedPath); err != nil {
		return speech.Result{}, err
	}
	if req.BackgroundPath != "" {
		if err := e.media.SeparateBackground(ctx, req.AudioPath, req.BackgroundPath); err != nil {
			return speech.Result{}, services.Wrap(services.ErrPipeline, "background", "", "derive background track", err)
		}
	}
	if req.VoicePath != "" {
		if err := e.media.IsolateVoice(ctx, req.AudioPath, req.VoicePath); err != nil {
			return speech.Result{}, services.Wrap(services.ErrPipeline, "voice", "", "derive voice track", err)
		}
	}
	return result, nil
}

// Translate translates text and writes the dubbed audio.
func (e *Engine) Translate(ctx context.Context, req speech.TextRequest) (speech.TextResult, error) {
	text := textutil.NormalizeText(req.Text)
	if text == "" {
		return speech.TextResult{}, services.Wrap(services.ErrInput, "", "", "No text provided", speech.ErrEmptyText)
	}
	translated, err := e.translate(ctx, text)
	if err != nil {
		return speech.TextResult{}, err
	}
	if err := e.synthesize(ctx, translated, req.Speaker, req.DubbedPath); err != nil {
		return speech.TextResult{}, err
	}
	return speech.TextResult{Text: text, Translated: translated, DubbedPath: req.DubbedPath}, nil
}

// Synthesize writes speech for already translated text.
func (e *Engine) Synthesize(ctx context.Context, req speech.SynthesisRequest) error {
	text := textutil.NormalizeText(req.Text)
	if text == "" {
		return services.Wrap(services.ErrInput, "", "", "No text provided", speech.ErrEmptyText)
	}
	return e.synthesize(ctx, text, req.Speaker, req.OutputPath)
}

func (e *Engine) transcribe(ctx context.Context, audioPath string) (openai.AudioResponse, error) {
	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:                  e.cfg.TranscriptionModel,
		FilePath:               audioPath,
		Format:                 openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{openai.TranscriptionTimestampGranularitySegment},
	})
	if err != nil {
		return openai.AudioResponse{}, services.Wrap(services.ErrPipeline, "transcribe", e.cfg.TranscriptionModel, "transcription request failed", err)
	}
	return resp, nil
}

func segmentsFromTranscript(resp openai.AudioResponse) []subtitles.Segment {
	if len(resp.Segments) == 0 {
		return nil
	}
	out := make([]subtitles.Segment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		out = append(out, subtitles.Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	return speech.CleanSegments(out)
}

func translationPrompt() string {
	return fmt.Sprintf("You are a professional translator. Translate the following text to %s. Provide only the translation without any additional text.",
		language.DisplayName(language.Sorani))
}

func segmentPrompt() string {
	return fmt.Sprintf("You are a professional subtitle translator. The user message is a JSON array of subtitle lines. "+
		"Translate every line to %s and reply with a JSON object {\"segments\": [...]} holding exactly one translated string per line, in the same order.",
		language.DisplayName(language.Sorani))
}

func (e *Engine) translate(ctx context.Context, text string) (string, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.cfg.TranslationModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: translationPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", services.Wrap(services.ErrPipeline, "translate", e.cfg.TranslationModel, "translation request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", services.Wrap(services.ErrPipeline, "translate", e.cfg.TranslationModel, "translation returned no choices", nil)
	}
	translated := textutil.NormalizeText(resp.Choices[0].Message.Content)
	if translated == "" {
		return "", services.Wrap(services.ErrPipeline, "translate", e.cfg.TranslationModel, "translation returned empty text", nil)
	}
	return translated, nil
}

// translateSegments translates subtitle lines in one request. Failures are
// logged and yield nil so subtitles fall back to the transcription.
func (e *Engine) translateSegments(ctx context.Context, logger *slog.Logger, segments []subtitles.Segment) []subtitles.Segment {
	if len(segments) == 0 {
		return nil
	}
	lines := make([]string, len(segments))
	for i, seg := range segments {
		lines[i] = seg.Text
	}
	payload, err := json.Marshal(lines)
	if err != nil {
		return nil
	}
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:          e.cfg.TranslationModel,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: segmentPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
	})
	if err == nil && len(resp.Choices) == 0 {
		err = errors.New("no choices")
	}
	var decoded struct {
		Segments []string `json:"segments"`
	}
	if err == nil {
		err = json.Unmarshal([]byte(resp.Choices[0].Message.Content), &decoded)
	}
	if err == nil && len(decoded.Segments) != len(segments) {
		err = fmt.Errorf("expected %d lines, got %d", len(segments), len(decoded.Segments))
	}
	if err != nil {
		logging.WarnWithContext(logger, "segment translation unavailable", "segment_translation_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "subtitles use the source language"),
		)
		return nil
	}
	out := make([]subtitles.Segment, len(segments))
	for i, seg := range segments {
		out[i] = subtitles.Segment{Start: seg.Start, End: seg.End, Text: decoded.Segments[i]}
	}
	return speech.CleanSegments(out)
}

func (e *Engine) synthesize(ctx context.Context, text, speaker, dest string) error {
	if strings.TrimSpace(dest) == "" {
		return services.Wrap(services.ErrPipeline, "synthesize", "", "no output path", nil)
	}
	started := time.Now()
	if e.tts != nil && e.tts.Configured() {
		wav := strings.TrimSuffix(dest, filepath.Ext(dest)) + ".wav"
		defer os.Remove(wav)
		if err := e.tts.SynthesizeToFile(ctx, text, speaker, wav); err != nil {
			return services.Wrap(services.ErrPipeline, "synthesize", "kurdish-tts", "speech synthesis failed", err)
		}
		if err := e.media.ConvertToMP3(ctx, wav, dest); err != nil {
			return services.Wrap(services.ErrPipeline, "synthesize", "", "convert speech to mp3", err)
		}
	} else if err := e.openAISpeech(ctx, text, dest); err != nil {
		return err
	}
	logging.WithContext(ctx, e.logger).Info("speech synthesized",
		logging.String(logging.FieldEventType, "synthesized"),
		logging.String(logging.FieldSpeaker, speaker),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func (e *Engine) openAISpeech(ctx context.Context, text, dest string) error {
	resp, err := e.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(e.cfg.SpeechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(e.cfg.SpeechVoice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return services.Wrap(services.ErrPipeline, "synthesize", e.cfg.SpeechModel, "speech request failed", err)
	}
	defer resp.Close()

	file, err := os.Create(dest)
	if err != nil {
		return services.Wrap(services.ErrFilesystem, "synthesize", "", "create audio file", err)
	}
	if _, err := io.Copy(file, resp); err != nil {
		file.Close()
		return services.Wrap(services.ErrPipeline, "synthesize", e.cfg.SpeechModel, "read speech response", err)
	}
	if err := file.Close(); err != nil {
		return services.Wrap(services.ErrFilesystem, "synthesize", "", "close audio file", err)
	}
	return nil
}
