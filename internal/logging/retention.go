package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PruneRunLogs removes per-run logs in dir whose modification time is older
// than retentionDays. The log LogFileName currently points at is kept. It
// returns the number of files removed; retentionDays <= 0 disables pruning.
func PruneRunLogs(logger *slog.Logger, dir string, retentionDays int) int {
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(dir, RunLogPattern))
	if err != nil || len(matches) == 0 {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	current, _ := os.Stat(filepath.Join(dir, LogFileName))

	removed := 0
	for _, path := range matches {
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
			continue
		}
		if current != nil && os.SameFile(current, info) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "run log not pruned", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check ownership of paths.log_dir"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
	}
	if removed > 0 && logger != nil {
		logger.Info("run logs pruned",
			String(FieldEventType, "log_pruned"),
			Int("removed", removed),
			Int("retention_days", retentionDays),
		)
	}
	return removed
}
