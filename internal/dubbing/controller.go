package dubbing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"dengbej/internal/config"
	"dengbej/internal/jobs"
	"dengbej/internal/logging"
	"dengbej/internal/media/ffprobe"
	"dengbej/internal/notifications"
	"dengbej/internal/services"
	"dengbej/internal/speech"
)

// DefaultPublicPrefix is the URL path under which the output directory is
// served.
const DefaultPublicPrefix = "/outputs"

// Config holds the controller's filesystem layout and limits.
type Config struct {
	ScratchDir     string
	OutputDir      string
	PublicPrefix   string
	DefaultSpeaker string
	MaxUploadBytes int64
}

// ConfigFromApp derives the controller configuration from the service config.
func ConfigFromApp(cfg *config.Config) Config {
	return Config{
		ScratchDir:     cfg.Paths.ScratchDir,
		OutputDir:      cfg.Paths.OutputDir,
		PublicPrefix:   DefaultPublicPrefix,
		DefaultSpeaker: cfg.Pipeline.DefaultSpeaker,
		MaxUploadBytes: cfg.MaxUploadBytes(),
	}
}

// Extractor pulls the audio track out of a video file.
type Extractor interface {
	ExtractAudio(ctx context.Context, source, dest string) error
}

// Prober inspects uploaded media.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Recorder persists finished jobs.
type Recorder interface {
	Record(ctx context.Context, job jobs.Job) error
}

// Mirror copies served files to object storage.
type Mirror interface {
	MirrorFiles(ctx context.Context, paths []string) error
}

// Progress receives stage transitions for live clients.
type Progress interface {
	Publish(requestID, stage, message string)
	Fail(requestID string, err error)
}

// Observer receives request and stage measurements.
type Observer interface {
	RequestStarted()
	RequestFinished(kind string, err error, elapsed time.Duration)
	StageFinished(stage string, elapsed time.Duration)
	UploadReceived(size int64)
}

// Upload is one media submission.
type Upload struct {
	// File is nil when the client sent no media part.
	File        io.Reader
	Filename    string
	ContentType string
	Speaker     string
	// RequestID may be supplied by the client so it can subscribe to
	// progress before the upload completes; a new ID is generated when empty.
	RequestID string
}

// TextInput is a text-only submission for Translate and Synthesize.
type TextInput struct {
	Text      string
	Speaker   string
	RequestID string
}

// Result is the JSON body returned for a processed request. Paths are web
// paths under the public prefix.
type Result struct {
	Transcription string `json:"transcription"`
	Translated    string `json:"translated"`
	SRT           string `json:"srt"`
	TTS           string `json:"tts"`
	Background    string `json:"background,omitempty"`
	EnglishVoice  string `json:"englishVoice,omitempty"`
	OriginalMedia string `json:"originalMedia,omitempty"`
	IsVideo       bool   `json:"isVideo"`
}

// Controller orchestrates dubbing requests.
type Controller struct {
	cfg      Config
	pipeline speech.Pipeline
	logger   *slog.Logger

	extractor Extractor
	prober    Prober
	recorder  Recorder
	mirror    Mirror
	notifier  notifications.Service
	progress  Progress
	observer  Observer

	mu       sync.Mutex
	inflight map[string]struct{}
}

// Option configures optional Controller collaborators.
type Option func(*Controller)

// WithExtractor sets the audio extractor used for video uploads.
func WithExtractor(extractor Extractor) Option {
	return func(c *Controller) { c.extractor = extractor }
}

// WithProber enables probing of uploads.
func WithProber(prober Prober) Option {
	return func(c *Controller) { c.prober = prober }
}

// WithRecorder enables the job ledger.
func WithRecorder(recorder Recorder) Option {
	return func(c *Controller) { c.recorder = recorder }
}

// WithMirror enables mirroring of served files.
func WithMirror(mirror Mirror) Option {
	return func(c *Controller) { c.mirror = mirror }
}

// WithNotifier sets the notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(c *Controller) { c.notifier = notifier }
}

// WithProgress publishes stage transitions.
func WithProgress(progress Progress) Option {
	return func(c *Controller) { c.progress = progress }
}

// WithObserver records request metrics.
func WithObserver(observer Observer) Option {
	return func(c *Controller) { c.observer = observer }
}

// New constructs a Controller around pipeline.
func New(cfg Config, pipeline speech.Pipeline, logger *slog.Logger, opts ...Option) (*Controller, error) {
	if pipeline == nil {
		return nil, errors.New("dubbing controller: speech pipeline is required")
	}
	if strings.TrimSpace(cfg.ScratchDir) == "" || strings.TrimSpace(cfg.OutputDir) == "" {
		return nil, errors.New("dubbing controller: scratch and output directories are required")
	}
	if strings.TrimSpace(cfg.PublicPrefix) == "" {
		cfg.PublicPrefix = DefaultPublicPrefix
	}
	for _, dir := range []string{cfg.ScratchDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("dubbing controller: create %q: %w", dir, err)
		}
	}
	c := &Controller{
		cfg:      cfg,
		pipeline: pipeline,
		logger:   logging.NewComponentLogger(logger, "dubbing"),
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// PublicPrefix reports the URL path the output directory is served under.
func (c *Controller) PublicPrefix() string {
	return c.cfg.PublicPrefix
}

// OutputDir reports the served output directory.
func (c *Controller) OutputDir() string {
	return c.cfg.OutputDir
}

func (c *Controller) speaker(value string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return c.cfg.DefaultSpeaker
}

func (c *Controller) webPath(local string) string {
	if local == "" {
		return ""
	}
	return webPath(c.cfg.PublicPrefix, local)
}

func inputError(message string) error {
	return services.Wrap(services.ErrInput, "", "", message, nil)
}

// classified reports whether err already carries one of the service markers.
func classified(err error) bool {
	for _, marker := range []error{
		services.ErrInput,
		services.ErrExtraction,
		services.ErrPipeline,
		services.ErrFilesystem,
		services.ErrExternalTool,
		services.ErrConfiguration,
		services.ErrTimeout,
	} {
		if errors.Is(err, marker) {
			return true
		}
	}
	return false
}

func pipelineError(operation string, err error) error {
	if classified(err) {
		return err
	}
	return services.Wrap(services.ErrPipeline, "speech", operation, "", err)
}
