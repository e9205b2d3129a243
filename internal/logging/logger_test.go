package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dengbej/internal/config"
	"dengbej/internal/logging"
	"dengbej/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("server ready", logging.String("bind", "127.0.0.1:5000"))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "server ready") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerPrefixesComponentAndRequest(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRequestID(context.Background(), "3f2b9c1e-0000-4000-8000-000000000000")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "dubbing")).Info("upload received")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "dubbing [3f2b9c1e]: upload received") {
		t.Fatalf("unexpected console line %q", content)
	}
}

func TestNewJSONLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("json message", logging.String("k", "v"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record["msg"] != "json message" || record["level"] != "info" || record["k"] != "v" {
		t.Fatalf("unexpected record %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key in %v", record)
	}
	if record["service"] != "dengbej" {
		t.Fatalf("expected service field, got %v", record)
	}
}

func TestConsoleLoggerShowsStageAndGroups(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-stage.log")
	logger, err := logging.New(logging.Options{Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithStage(services.WithRequestID(context.Background(), "ab12cd34-0000-4000-8000-000000000000"), "extract")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "dubbing")).
		Info("audio extracted", logging.Group("audio", logging.Int("bytes", 2048)), logging.String("path", "a b.wav"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, want := range []string{"dubbing/extract [ab12cd34]: audio extracted", "audio.bytes=2048", `path="a b.wav"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "extract")
	ctx = services.WithRequestID(ctx, "req-xyz")
	ctx = services.WithSpeaker(ctx, "3_speaker")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WithContext(ctx, logger).Info("contextual log")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for key, want := range map[string]string{
		logging.FieldStage:     "extract",
		logging.FieldRequestID: "req-xyz",
		logging.FieldSpeaker:   "3_speaker",
	} {
		if record[key] != want {
			t.Fatalf("field %s = %v, want %q", key, record[key], want)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WarnWithContext(logger, "mirror failed", "storage_mirror_failed")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record[logging.FieldEventType] != "storage_mirror_failed" {
		t.Fatalf("unexpected event type %v", record[logging.FieldEventType])
	}
	if record[logging.FieldErrorHint] == nil || record[logging.FieldImpact] == nil {
		t.Fatalf("expected default hint and impact, got %v", record)
	}
}

func TestPruneRunLogsKeepsCurrent(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "dengbej-20250101T000000.000Z.log")
	newPath := filepath.Join(dir, "dengbej-20250301T000000.000Z.log")
	currentPath := filepath.Join(dir, "dengbej-20250201T000000.000Z.log")
	unrelated := filepath.Join(dir, "notes.log")
	for _, path := range []string{oldPath, newPath, currentPath, unrelated} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	past := time.Now().AddDate(0, 0, -10)
	for _, path := range []string{oldPath, currentPath, unrelated} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
	if err := os.Symlink(currentPath, filepath.Join(dir, logging.LogFileName)); err != nil {
		t.Skipf("symlink unsupported: %v", err)
	}

	if removed := logging.PruneRunLogs(logging.NewNop(), dir, 5); removed != 1 {
		t.Fatalf("PruneRunLogs removed %d, want 1", removed)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("expected old run log removed, got %v", err)
	}
	for _, path := range []string{newPath, currentPath, unrelated} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}
}

func TestPruneRunLogsDisabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dengbej-20250101T000000.000Z.log")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().AddDate(-1, 0, 0)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}
	if removed := logging.PruneRunLogs(logging.NewNop(), dir, 0); removed != 0 {
		t.Fatalf("expected pruning disabled, removed %d", removed)
	}
}
