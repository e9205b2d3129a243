package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dengbej/internal/config"
	"dengbej/internal/daemon"
	"dengbej/internal/deps"
	"dengbej/internal/dubbing"
	"dengbej/internal/jobs"
	"dengbej/internal/logging"
	"dengbej/internal/media/ffmpeg"
	"dengbej/internal/media/ffprobe"
	"dengbej/internal/metrics"
	"dengbej/internal/notifications"
	"dengbej/internal/progress"
	"dengbej/internal/services/kurdishtts"
	"dengbej/internal/speech"
	"dengbej/internal/speech/hosted"
	"dengbej/internal/speech/script"
	"dengbej/internal/storage"
)

const progressHistory = 4096

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dubbing web server in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx)
		},
	}
}

func runServe(cmdCtx context.Context, ctx *commandContext) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays)

	pipeline, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	hub := progress.NewHub(progressHistory)
	meter := metrics.New()
	notifier := notifications.NewService(cfg)

	ffmpegBinary := deps.ResolveMediaBinary(cfg.Pipeline.FFmpegBinary, "ffmpeg")
	opts := []dubbing.Option{
		dubbing.WithExtractor(ffmpeg.New(ffmpegBinary)),
		dubbing.WithNotifier(notifier),
		dubbing.WithProgress(hub),
		dubbing.WithObserver(meter),
	}
	if cfg.Pipeline.ProbeUploads {
		binary := deps.ResolveMediaBinary(cfg.Pipeline.FFprobeBinary, "ffprobe")
		opts = append(opts, dubbing.WithProber(ffprobe.Inspector{Binary: binary}))
	}

	daemonOpts := []daemon.Option{
		daemon.WithHub(hub),
		daemon.WithMetrics(meter),
		daemon.WithNotifier(notifier),
	}
	if cfg.Jobs.Enabled {
		store, err := jobs.Open(cfg)
		if err != nil {
			return fmt.Errorf("open job ledger: %w", err)
		}
		opts = append(opts, dubbing.WithRecorder(store))
		daemonOpts = append(daemonOpts, daemon.WithStore(store))
	}

	mirror, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return err
	}
	if mirror != nil {
		ensureCtx, ensureCancel := context.WithTimeout(signalCtx, 30*time.Second)
		err := mirror.EnsureBucket(ensureCtx)
		ensureCancel()
		if err != nil {
			logging.WarnWithContext(logger, "storage bucket unavailable; mirroring may fail", "storage_unavailable",
				logging.String("bucket", mirror.Bucket()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "served files are not mirrored"),
				logging.String(logging.FieldErrorHint, "check storage endpoint and credentials"),
			)
		}
		opts = append(opts, dubbing.WithMirror(mirror))
	}

	controller, err := dubbing.New(dubbing.ConfigFromApp(cfg), pipeline, logger, opts...)
	if err != nil {
		return fmt.Errorf("create controller: %w", err)
	}

	d, err := daemon.New(cfg, controller, logger, daemonOpts...)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("dengbej shutting down", logging.String(logging.FieldEventType, "shutdown"))
	return nil
}

// buildPipeline selects the speech adapter for pipeline.mode.
func buildPipeline(cfg *config.Config, logger *slog.Logger) (speech.Pipeline, error) {
	switch cfg.Pipeline.Mode {
	case config.ModeScript:
		return script.New(script.Config{
			ProcessCommand:    cfg.Pipeline.ScriptCommand,
			TranslateCommand:  cfg.Pipeline.TranslateCommand,
			SynthesizeCommand: cfg.Pipeline.SynthesizeCommand,
			Timeout:           cfg.PipelineTimeout(),
		}, logger), nil
	case config.ModeHosted:
		client := hosted.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
		tts := kurdishtts.NewClient(kurdishtts.Config{
			APIKey:   cfg.KurdishTTS.APIKey,
			Endpoint: cfg.KurdishTTS.Endpoint,
			Language: cfg.KurdishTTS.Language,
			Timeout:  time.Duration(cfg.KurdishTTS.TimeoutSeconds) * time.Second,
		})
		media := ffmpeg.New(deps.ResolveMediaBinary(cfg.Pipeline.FFmpegBinary, "ffmpeg"))
		return hosted.New(hosted.Config{
			TranscriptionModel: cfg.OpenAI.TranscriptionModel,
			TranslationModel:   cfg.OpenAI.TranslationModel,
			SpeechModel:        cfg.OpenAI.SpeechModel,
			SpeechVoice:        cfg.OpenAI.SpeechVoice,
		}, client, tts, media, logger), nil
	default:
		return nil, fmt.Errorf("unsupported pipeline mode %q", cfg.Pipeline.Mode)
	}
}
