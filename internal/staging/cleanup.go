package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dengbej/internal/logging"
)

// CleanStaleResult contains the outcome of a cleanup pass over one directory.
type CleanStaleResult struct {
	Removed      []string
	RemovedBytes int64
	Errors       []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes entries of dir (files or directories) whose
// modification time is older than maxAge. A maxAge <= 0 removes nothing.
func CleanStale(ctx context.Context, dir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	if maxAge <= 0 {
		return CleanStaleResult{}
	}
	cutoff := time.Now().Add(-maxAge)
	return clean(ctx, dir, logger, "stale", func(_ string, info os.FileInfo) bool {
		return info.ModTime().Before(cutoff)
	})
}

// CleanOrphaned removes entries of dir whose request ID prefix is not in
// active. Scratch files are named "<request-id>-<role>", so with an empty
// active set every leftover from a previous process is removed.
func CleanOrphaned(ctx context.Context, dir string, active map[string]struct{}, logger *slog.Logger) CleanStaleResult {
	return clean(ctx, dir, logger, "orphaned", func(name string, _ os.FileInfo) bool {
		_, ok := active[RequestIDFromName(name)]
		return !ok
	})
}

// RequestIDFromName extracts the request ID prefix of a generated file name.
func RequestIDFromName(name string) string {
	const uuidLen = 36
	if len(name) >= uuidLen {
		return name[:uuidLen]
	}
	return name
}

func clean(ctx context.Context, dir string, logger *slog.Logger, reason string, shouldRemove func(name string, info os.FileInfo) bool) CleanStaleResult {
	result := CleanStaleResult{}

	dir = strings.TrimSpace(dir)
	if dir == "" {
		return result
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			if !os.IsNotExist(err) {
				result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			}
			continue
		}
		if !shouldRemove(entry.Name(), info) {
			continue
		}

		size := info.Size()
		if info.IsDir() {
			size, _ = dirSize(path)
		}
		if err := os.RemoveAll(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to remove "+reason+" file", "sweep_remove_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check directory permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		result.RemovedBytes += size
		if logger != nil {
			logger.Info("removed "+reason+" file",
				logging.String("path", path),
				logging.Duration("age", time.Since(info.ModTime()).Round(time.Second)),
				logging.String(logging.FieldEventType, "sweep_removed"),
			)
		}
	}

	return result
}

// ListEntries returns the entries of dir with their metadata.
func ListEntries(dir string) ([]EntryInfo, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []EntryInfo
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		size := info.Size()
		if info.IsDir() {
			size, _ = dirSize(path)
		}
		out = append(out, EntryInfo{
			Name:    entry.Name(),
			Path:    path,
			ModTime: info.ModTime(),
			Size:    size,
			IsDir:   info.IsDir(),
		})
	}
	return out, nil
}

// EntryInfo contains metadata about a scratch or output entry.
type EntryInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
	IsDir   bool
}

// Usage sums the entry count and bytes under dir.
func Usage(dir string) (count int, bytes int64, err error) {
	entries, err := ListEntries(dir)
	if err != nil {
		return 0, 0, err
	}
	for _, e := range entries {
		bytes += e.Size
	}
	return len(entries), bytes, nil
}

// dirSize calculates the total size of a directory recursively.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best effort
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
