package dubbing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"dengbej/internal/fileutil"
	"dengbej/internal/jobs"
	"dengbej/internal/logging"
	"dengbej/internal/media/ffprobe"
	"dengbej/internal/progress"
	"dengbej/internal/services"
	"dengbej/internal/speech"
	"dengbej/internal/subtitles"
	"dengbej/internal/textutil"
)

// ProcessUpload runs the media pipeline for one upload: save, extract audio
// when the upload is video, keep the original for playback, transcribe,
// translate and dub, then assemble subtitles. Scratch files are removed
// before returning. On failure the request's output files are removed too
// and the returned error is classified with a services marker.
func (c *Controller) ProcessUpload(ctx context.Context, up Upload) (Result, error) {
	job, err := c.startJob(ctx, up.RequestID, jobs.KindUpload, up.Speaker)
	if err != nil {
		return Result{}, err
	}
	ctx = job.ctx
	job.record.Filename = textutil.SanitizeFileName(up.Filename)
	job.record.ContentType = strings.TrimSpace(up.ContentType)

	if up.File == nil {
		err = inputError("No file uploaded")
		c.finish(ctx, job, nil, err)
		return Result{}, err
	}

	video := isVideo(up.ContentType)
	job.record.IsVideo = video
	paths := newRequestPaths(c.cfg.ScratchDir, c.cfg.OutputDir, job.id, uploadExt(up.Filename, up.ContentType), video)

	result, served, err := c.processUpload(ctx, job, up, paths)
	c.removeFiles(job.logger, "scratch", paths.scratch(), served)
	if err != nil {
		c.removeFiles(job.logger, "output", paths.outputs(), nil)
		c.finish(ctx, job, nil, err)
		return Result{}, err
	}
	c.finish(ctx, job, served, nil)
	return result, nil
}

func (c *Controller) processUpload(ctx context.Context, job *jobRun, up Upload, paths requestPaths) (Result, []string, error) {
	err := c.stage(ctx, job, progress.StageReceived, "saving upload", func(ctx context.Context) error {
		return c.saveUpload(ctx, job, up.File, paths.upload)
	})
	if err != nil {
		return Result{}, nil, err
	}
	c.probe(ctx, job, paths.upload)

	err = c.stage(ctx, job, progress.StageExtracting, "preparing audio", func(ctx context.Context) error {
		return c.prepareAudio(ctx, job.record.IsVideo, paths)
	})
	if err != nil {
		return Result{}, nil, err
	}

	var speechResult speech.Result
	err = c.stage(ctx, job, progress.StageProcessing, "transcribing, translating and dubbing", func(ctx context.Context) error {
		res, err := c.pipeline.Process(ctx, speech.Request{
			AudioPath:      paths.audio,
			Speaker:        job.speaker,
			DubbedPath:     paths.dubbed,
			BackgroundPath: paths.background,
			VoicePath:      paths.voice,
		})
		if err != nil {
			return pipelineError("process", err)
		}
		speechResult = res
		return nil
	})
	if err != nil {
		return Result{}, nil, err
	}

	dubbed, err := c.placeDubbed(speechResult.DubbedPath, paths.dubbed)
	if err != nil {
		return Result{}, nil, err
	}

	var srt string
	_ = c.stage(ctx, job, progress.StageSubtitling, "assembling subtitles", func(context.Context) error {
		segments := speech.SubtitleSegments(speechResult)
		srt = subtitles.Assemble(segments)
		job.logger.Debug("subtitles assembled",
			logging.Int("segments", len(segments)),
			logging.String(logging.FieldEventType, "subtitles_assembled"),
		)
		return nil
	})

	result := Result{
		Transcription: textutil.NormalizeText(speechResult.Transcription),
		Translated:    textutil.NormalizeText(speechResult.Translated),
		SRT:           srt,
		TTS:           c.webPath(dubbed),
		OriginalMedia: c.webPath(paths.original),
		IsVideo:       job.record.IsVideo,
	}
	served := []string{paths.original, dubbed}
	outputs := map[string]string{"originalMedia": result.OriginalMedia, "tts": result.TTS}
	if fileExists(paths.background) {
		result.Background = c.webPath(paths.background)
		served = append(served, paths.background)
		outputs["background"] = result.Background
	}
	if fileExists(paths.voice) {
		result.EnglishVoice = c.webPath(paths.voice)
		served = append(served, paths.voice)
		outputs["englishVoice"] = result.EnglishVoice
	}

	job.record.Transcription = result.Transcription
	job.record.Translated = result.Translated
	job.record.Outputs = outputs
	if speechResult.SourceLanguage != "" {
		job.logger.Info("source language detected",
			logging.String("language", speechResult.SourceLanguage),
			logging.String(logging.FieldEventType, "language_detected"),
		)
	}
	return result, served, nil
}

func (c *Controller) saveUpload(ctx context.Context, job *jobRun, file io.Reader, dest string) error {
	written, err := fileutil.SaveLimited(dest, file, c.cfg.MaxUploadBytes)
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, fileutil.ErrTooLarge), errors.As(err, &maxErr):
		return inputError(fmt.Sprintf("File too large (max %d MB)", c.cfg.MaxUploadBytes>>20))
	case err != nil:
		return services.Wrap(services.ErrFilesystem, "save", "write upload", "", err)
	case written == 0:
		return inputError("Uploaded file is empty")
	}
	if c.observer != nil {
		c.observer.UploadReceived(written)
	}
	logging.WithContext(ctx, job.logger).Info("upload saved",
		logging.String("path", dest),
		logging.Int64("bytes", written),
		logging.Bool("is_video", job.record.IsVideo),
		logging.String(logging.FieldEventType, "upload_saved"),
	)
	return nil
}

func (c *Controller) prepareAudio(ctx context.Context, video bool, paths requestPaths) error {
	if video {
		if c.extractor == nil {
			return services.Wrap(services.ErrConfiguration, "extract", "", "no audio extractor configured", nil)
		}
		if err := c.extractor.ExtractAudio(ctx, paths.upload, paths.audio); err != nil {
			return services.Wrap(services.ErrExtraction, "extract", "ffmpeg", "", err)
		}
	} else if err := fileutil.CopyFile(paths.upload, paths.audio); err != nil {
		return services.Wrap(services.ErrFilesystem, "extract", "copy audio", "", err)
	}
	if err := fileutil.CopyFileVerified(paths.upload, paths.original); err != nil {
		return services.Wrap(services.ErrFilesystem, "retain", "copy original", "", err)
	}
	return nil
}

// probe records media facts for logs and the ledger. Failures only warn.
func (c *Controller) probe(ctx context.Context, job *jobRun, path string) {
	if c.prober == nil {
		return
	}
	res, err := c.prober.Inspect(ctx, path)
	if err != nil {
		logging.WarnWithContext(job.logger, "upload probe failed", "upload_probe_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "verify ffprobe is installed"),
			logging.String(logging.FieldImpact, "duration not recorded"),
		)
		return
	}
	job.record.DurationSeconds = res.DurationSeconds()
	job.logger.Info("upload probed",
		logging.Float64("duration_seconds", res.DurationSeconds()),
		logging.Int("video_streams", res.Count(ffprobe.KindVideo)),
		logging.Int("audio_streams", res.Count(ffprobe.KindAudio)),
		logging.String(logging.FieldEventType, "upload_probed"),
	)
	if res.HasVideo() != job.record.IsVideo {
		logging.WarnWithContext(job.logger, "declared content type disagrees with probe", "upload_type_mismatch",
			logging.Bool("declared_video", job.record.IsVideo),
			logging.Bool("probed_video", res.HasVideo()),
			logging.String(logging.FieldImpact, "upload classified by declared content type"),
			logging.String(logging.FieldErrorHint, "check the client's Content-Type"),
		)
	}
	if res.Count(ffprobe.KindAudio) == 0 {
		logging.WarnWithContext(job.logger, "upload has no audio stream", "upload_no_audio",
			logging.String(logging.FieldImpact, "speech pipeline will likely fail"),
		)
	}
}

// placeDubbed returns the served location of the dubbed audio. An engine may
// report a path of its own; files outside the output directory are copied to
// want.
func (c *Controller) placeDubbed(reported, want string) (string, error) {
	reported = strings.TrimSpace(reported)
	if reported == "" || filepath.Clean(reported) == filepath.Clean(want) {
		if !fileExists(want) {
			return "", services.Wrap(services.ErrPipeline, "speech", "", "dubbed audio was not written", nil)
		}
		return want, nil
	}
	if !fileExists(reported) {
		return "", services.Wrap(services.ErrPipeline, "speech", "", fmt.Sprintf("dubbed audio %s not found", reported), nil)
	}
	if within(c.cfg.OutputDir, reported) {
		return reported, nil
	}
	if err := fileutil.CopyFile(reported, want); err != nil {
		return "", services.Wrap(services.ErrFilesystem, "speech", "copy dubbed audio", "", err)
	}
	return want, nil
}

// removeFiles deletes paths best-effort, skipping any path in keep.
func (c *Controller) removeFiles(logger *slog.Logger, area string, paths, keep []string) {
	for _, path := range paths {
		if path == "" || contains(keep, path) {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.WarnWithContext(logger, "failed to remove "+area+" file", "cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the next sweep retries the removal"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		}
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if filepath.Clean(item) == filepath.Clean(value) {
			return true
		}
	}
	return false
}
