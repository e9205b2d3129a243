package dubbing

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"dengbej/internal/jobs"
	"dengbej/internal/logging"
	"dengbej/internal/progress"
	"dengbej/internal/services"
)

// jobRun carries one request through the controller.
type jobRun struct {
	id      string
	speaker string
	ctx     context.Context
	logger  *slog.Logger
	started time.Time
	record  jobs.Job
}

// startJob claims the request ID and opens the job. A refused ID returns an
// InputError before anything is written or recorded under it.
func (c *Controller) startJob(ctx context.Context, requestID string, kind jobs.Kind, speaker string) (*jobRun, error) {
	id, err := c.claimID(ctx, strings.ToLower(strings.TrimSpace(requestID)))
	if err != nil {
		logging.WithContext(ctx, c.logger).Info("request rejected",
			logging.String("request_id", requestID),
			logging.String("reason", services.Message(err)),
			logging.String(logging.FieldEventType, "request_id_refused"),
		)
		return nil, err
	}
	speaker = c.speaker(speaker)
	ctx = services.WithSpeaker(services.WithRequestID(ctx, id), speaker)
	started := time.Now()
	run := &jobRun{
		id:      id,
		speaker: speaker,
		ctx:     ctx,
		logger:  logging.WithContext(ctx, c.logger),
		started: started,
		record: jobs.Job{
			ID:        id,
			Kind:      kind,
			Speaker:   speaker,
			CreatedAt: started,
		},
	}
	if c.observer != nil {
		c.observer.RequestStarted()
	}
	run.logger.Info("request received",
		logging.String("kind", string(kind)),
		logging.String(logging.FieldEventType, "request_received"),
	)
	return run, nil
}

// stage runs fn as one named pipeline step, publishing progress and timing.
func (c *Controller) stage(ctx context.Context, job *jobRun, stage, message string, fn func(context.Context) error) error {
	if c.progress != nil {
		c.progress.Publish(job.id, stage, message)
	}
	started := time.Now()
	err := fn(services.WithStage(ctx, stage))
	if c.observer != nil {
		c.observer.StageFinished(stage, time.Since(started))
	}
	return err
}

// finish reports the outcome of a request to every optional collaborator.
// None of them can change the response.
func (c *Controller) finish(ctx context.Context, job *jobRun, served []string, err error) {
	defer c.releaseID(job.id)
	elapsed := time.Since(job.started)
	job.record.Elapsed = elapsed
	job.record.CompletedAt = time.Now()
	kind := string(job.record.Kind)
	logger := job.logger

	if c.observer != nil {
		c.observer.RequestFinished(kind, err, elapsed)
	}

	if err != nil {
		job.record.Status = jobs.StatusFailed
		job.record.ErrorKind = services.Kind(err)
		job.record.ErrorMessage = services.Message(err)
		if c.progress != nil {
			c.progress.Fail(job.id, errors.New(services.Message(err)))
		}
		if errors.Is(err, services.ErrInput) {
			logger.Info("request rejected",
				logging.String("reason", services.Message(err)),
				logging.String(logging.FieldErrorKind, job.record.ErrorKind),
				logging.String(logging.FieldEventType, "request_rejected"),
			)
		} else {
			logging.ErrorWithContext(logger, "request failed", "request_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorKind, job.record.ErrorKind),
				logging.Duration("elapsed", elapsed),
				logging.String(logging.FieldErrorHint, failureHint(err)),
			)
			if c.notifier != nil {
				if nerr := c.notifier.NotifyJobFailed(ctx, kind, job.id, err); nerr != nil {
					logging.WarnWithContext(logger, "failure notification failed", "notify_failed",
						logging.Error(nerr),
						logging.String(logging.FieldImpact, "operators not alerted"),
						logging.String(logging.FieldErrorHint, "check ntfy topic and network"),
					)
				}
			}
		}
	} else {
		job.record.Status = jobs.StatusCompleted
		if c.mirror != nil && len(served) > 0 {
			if merr := c.mirror.MirrorFiles(ctx, served); merr != nil {
				logging.WarnWithContext(logger, "storage mirror failed", "mirror_failed",
					logging.Error(merr),
					logging.String(logging.FieldImpact, "files served locally only"),
					logging.String(logging.FieldErrorHint, "check storage endpoint and credentials"),
				)
			}
		}
		if c.progress != nil {
			c.progress.Publish(job.id, progress.StageCompleted, "")
		}
		logger.Info("request complete",
			logging.Duration("elapsed", elapsed),
			logging.Int("served_files", len(served)),
			logging.String(logging.FieldEventType, "request_complete"),
		)
		if c.notifier != nil {
			if nerr := c.notifier.NotifyJobCompleted(ctx, kind, job.id, elapsed); nerr != nil {
				logger.Debug("completion notification failed", logging.Error(nerr))
			}
		}
	}

	if c.recorder != nil {
		if rerr := c.recorder.Record(ctx, job.record); rerr != nil {
			logging.WarnWithContext(logger, "job ledger write failed", "job_record_failed",
				logging.Error(rerr),
				logging.String(logging.FieldImpact, "job missing from history"),
				logging.String(logging.FieldErrorHint, "check state_dir permissions"),
			)
		}
	}
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, services.ErrExtraction):
		return "verify ffmpeg is installed and the upload is a valid media file"
	case errors.Is(err, services.ErrFilesystem):
		return "check scratch_dir and output_dir permissions and free space"
	case errors.Is(err, services.ErrTimeout):
		return "raise pipeline.timeout_seconds or shorten the upload"
	case errors.Is(err, services.ErrConfiguration):
		return "run dengbej config validate"
	default:
		return "check speech pipeline logs and API keys"
	}
}
