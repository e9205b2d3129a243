package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dengbej/internal/logging"
	"dengbej/internal/testsupport"
)

const (
	reqA = "0b7c2c55-6f4e-4f0e-8f43-2f2b8d0f6a11"
	reqB = "9e1d7f00-4a2b-4c3d-9e8f-0a1b2c3d4e5f"
)

func writeAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	testsupport.WriteAged(t, path, 4, age)
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldFiles(t *testing.T) {
	tmpDir := t.TempDir()

	oldFile := filepath.Join(tmpDir, reqA+"-upload.mp4")
	writeAged(t, oldFile, 2*time.Hour)
	recentFile := filepath.Join(tmpDir, reqB+"-upload.mp4")
	writeAged(t, recentFile, time.Minute)

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != oldFile {
		t.Fatalf("expected %s removed, got %v", oldFile, result.Removed)
	}
	if result.RemovedBytes != 4 {
		t.Fatalf("RemovedBytes = %d, want 4", result.RemovedBytes)
	}
	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Error("old file should have been removed")
	}
	if _, err := os.Stat(recentFile); err != nil {
		t.Error("recent file should still exist")
	}
}

func TestCleanStaleRemovesOldDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	oldDir := filepath.Join(tmpDir, "old")
	if err := os.Mkdir(oldDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeAged(t, filepath.Join(oldDir, "inner"), 3*time.Hour)
	testsupport.Backdate(t, oldDir, 3*time.Hour)

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())
	if len(result.Removed) != 1 || result.RemovedBytes != 4 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCleanStaleZeroAgeKeepsEverything(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "kept.mp3")
	writeAged(t, file, 1000*time.Hour)

	result := CleanStale(context.Background(), tmpDir, 0, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("expected nothing removed, got %v", result.Removed)
	}
	if _, err := os.Stat(file); err != nil {
		t.Fatal("file should still exist")
	}
}

func TestCleanOrphanedRemovesInactiveRequests(t *testing.T) {
	tmpDir := t.TempDir()
	active := filepath.Join(tmpDir, reqA+"-audio.mp3")
	orphan := filepath.Join(tmpDir, reqB+"-audio.mp3")
	writeAged(t, active, time.Minute)
	writeAged(t, orphan, time.Minute)

	result := CleanOrphaned(context.Background(), tmpDir, map[string]struct{}{reqA: {}}, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != orphan {
		t.Fatalf("expected orphan removed, got %v", result.Removed)
	}
	if _, err := os.Stat(active); err != nil {
		t.Error("active request file should still exist")
	}
}

func TestCleanOrphanedEmptySetRemovesAll(t *testing.T) {
	tmpDir := t.TempDir()
	writeAged(t, filepath.Join(tmpDir, reqA+"-upload.wav"), time.Second)
	writeAged(t, filepath.Join(tmpDir, "stray"), time.Second)

	result := CleanOrphaned(context.Background(), tmpDir, nil, logging.NewNop())
	if len(result.Removed) != 2 {
		t.Fatalf("expected 2 removed, got %v", result.Removed)
	}
}

func TestCleanStopsOnCancelledContext(t *testing.T) {
	tmpDir := t.TempDir()
	writeAged(t, filepath.Join(tmpDir, "a"), 2*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := CleanStale(ctx, tmpDir, time.Hour, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("expected no removals after cancel, got %v", result.Removed)
	}
}

func TestRequestIDFromName(t *testing.T) {
	if got := RequestIDFromName(reqA + "-kurdish.mp3"); got != reqA {
		t.Fatalf("RequestIDFromName = %q", got)
	}
	if got := RequestIDFromName("short"); got != "short" {
		t.Fatalf("RequestIDFromName(short) = %q", got)
	}
}

func TestListEntriesAndUsage(t *testing.T) {
	for _, path := range []string{"", "/nonexistent/path/12345"} {
		entries, err := ListEntries(path)
		if err != nil || entries != nil {
			t.Fatalf("expected nil for %q, got %v, %v", path, entries, err)
		}
	}

	tmpDir := t.TempDir()
	writeAged(t, filepath.Join(tmpDir, "a"), time.Minute)
	writeAged(t, filepath.Join(tmpDir, "b"), time.Minute)

	count, bytes, err := Usage(tmpDir)
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if count != 2 || bytes != 8 {
		t.Fatalf("Usage = %d, %d", count, bytes)
	}
}
