package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dengbej/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// OutputPaths accepts "stdout", "stderr" or file paths. Empty means stdout.
	OutputPaths []string
}

// LogFileName always points at the newest run log inside paths.log_dir.
const LogFileName = "dengbej.log"

// RunLogPattern matches the per-run log files pruned by retention.
const RunLogPattern = "dengbej-*.log"

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(opts.Level))
	addSource := levelVar.Level() <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format != "" && format != "console" && format != "json" {
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	out, err := openWriters(opts.OutputPaths)
	if err != nil {
		return nil, err
	}
	if format == "json" {
		return slog.New(newJSONHandler(out, levelVar, addSource)), nil
	}
	return slog.New(newConsoleHandler(out, levelVar, addSource)), nil
}

// NewFromConfig creates a logger using application config defaults. When a
// log directory is configured the output is duplicated into a per-run file
// there and LogFileName is pointed at it.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info"})
	}

	outputs := []string{"stdout"}
	var runLog string
	if dir := cfg.Paths.LogDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		runLog = filepath.Join(dir, "dengbej-"+time.Now().UTC().Format("20060102T150405.000Z")+".log")
		outputs = append(outputs, runLog)
	}

	logger, err := New(Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, OutputPaths: outputs})
	if err != nil {
		return nil, err
	}
	if runLog != "" {
		if err := pointCurrentLog(cfg.Paths.LogDir, runLog); err != nil {
			WarnWithContext(logger, "log pointer not updated", "log_pointer_failed",
				Error(err),
				String(FieldImpact, LogFileName+" shows an older run"),
			)
		}
	}
	return logger, nil
}

func pointCurrentLog(logDir, target string) error {
	current := filepath.Join(logDir, LogFileName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func parseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func openWriters(paths []string) (io.Writer, error) {
	seen := make(map[string]bool, len(paths))
	var writers []io.Writer
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		switch path {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("ensure log directory for %s: %w", path, err)
			}
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", path, err)
			}
			writers = append(writers, file)
		}
	}
	switch len(writers) {
	case 0:
		return os.Stdout, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}
