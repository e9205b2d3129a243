package staging

import (
	"context"
	"log/slog"
	"time"

	"dengbej/internal/config"
	"dengbej/internal/jobs"
	"dengbej/internal/logging"
)

// Sweep areas, used as metric labels.
const (
	AreaScratch = "scratch"
	AreaOutputs = "outputs"
)

// SweepConfig selects what a sweep removes.
type SweepConfig struct {
	ScratchDir    string
	ScratchMaxAge time.Duration
	OutputDir     string
	// OutputMaxAge of zero keeps served files forever.
	OutputMaxAge time.Duration
	// JobRetention of zero keeps ledger rows forever.
	JobRetention time.Duration
}

// ConfigFromApp derives the sweep configuration from the service config.
func ConfigFromApp(cfg *config.Config) SweepConfig {
	return SweepConfig{
		ScratchDir:    cfg.Paths.ScratchDir,
		ScratchMaxAge: cfg.ScratchMaxAge(),
		OutputDir:     cfg.Paths.OutputDir,
		OutputMaxAge:  cfg.OutputMaxAge(),
		JobRetention:  time.Duration(cfg.Jobs.RetentionDays) * 24 * time.Hour,
	}
}

// Ledger is the part of the job store a sweep writes to.
type Ledger interface {
	RecordSweep(ctx context.Context, sweep jobs.Sweep) error
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Observer receives per-area sweep totals.
type Observer interface {
	SweepFinished(area string, removed int, bytes int64)
}

// SweepSummary is the outcome of Sweep.
type SweepSummary struct {
	Scratch    CleanStaleResult
	Outputs    CleanStaleResult
	JobsPruned int64
}

// Removed returns every removed path.
func (s SweepSummary) Removed() []string {
	out := make([]string, 0, len(s.Scratch.Removed)+len(s.Outputs.Removed))
	out = append(out, s.Scratch.Removed...)
	return append(out, s.Outputs.Removed...)
}

// ErrorCount returns the number of paths that could not be removed.
func (s SweepSummary) ErrorCount() int {
	return len(s.Scratch.Errors) + len(s.Outputs.Errors)
}

// Sweep removes stale scratch and output files and prunes old ledger rows.
// ledger and observer may be nil.
func Sweep(ctx context.Context, cfg SweepConfig, ledger Ledger, observer Observer, logger *slog.Logger) SweepSummary {
	logger = logging.NewComponentLogger(logger, "sweep")
	summary := SweepSummary{
		Scratch: CleanStale(ctx, cfg.ScratchDir, cfg.ScratchMaxAge, logger),
		Outputs: CleanStale(ctx, cfg.OutputDir, cfg.OutputMaxAge, logger),
	}
	if observer != nil {
		observer.SweepFinished(AreaScratch, len(summary.Scratch.Removed), summary.Scratch.RemovedBytes)
		observer.SweepFinished(AreaOutputs, len(summary.Outputs.Removed), summary.Outputs.RemovedBytes)
	}

	if ledger != nil {
		if cfg.JobRetention > 0 {
			pruned, err := ledger.Prune(ctx, time.Now().Add(-cfg.JobRetention))
			if err != nil {
				logging.WarnWithContext(logger, "job ledger prune failed", "jobs_prune_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "old job rows kept"),
				)
			}
			summary.JobsPruned = pruned
		}
		record := jobs.Sweep{
			RemovedCount: len(summary.Scratch.Removed) + len(summary.Outputs.Removed),
			RemovedBytes: summary.Scratch.RemovedBytes + summary.Outputs.RemovedBytes,
			Removed:      summary.Removed(),
			ErrorCount:   summary.ErrorCount(),
		}
		if err := ledger.RecordSweep(ctx, record); err != nil {
			logging.WarnWithContext(logger, "sweep record failed", "sweep_record_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "status shows an older sweep"),
			)
		}
	}

	logger.Info("sweep complete",
		logging.String(logging.FieldEventType, "sweep_complete"),
		logging.Int("scratch_removed", len(summary.Scratch.Removed)),
		logging.Int("outputs_removed", len(summary.Outputs.Removed)),
		logging.Int64("jobs_pruned", summary.JobsPruned),
		logging.Int("errors", summary.ErrorCount()),
	)
	return summary
}
