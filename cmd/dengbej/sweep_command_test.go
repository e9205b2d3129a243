package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"dengbej/internal/testsupport"
)

func TestSweepCommandRemovesAgedScratch(t *testing.T) {
	env := setupCLITestEnv(t)

	stale := filepath.Join(env.cfg.Paths.ScratchDir, "stale-upload.wav")
	fresh := filepath.Join(env.cfg.Paths.ScratchDir, "fresh-upload.wav")
	served := filepath.Join(env.cfg.Paths.OutputDir, "old-kurdish.mp3")
	testsupport.WriteAged(t, stale, 16, 24*time.Hour)
	testsupport.WriteAged(t, served, 16, 24*time.Hour)
	testsupport.WriteFile(t, fresh, 16)

	out, _, err := runCLI(t, []string{"sweep"}, env.configPath)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	requireContains(t, out, "removed "+stale)
	requireContains(t, out, "Removed 1 files")

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("expected stale scratch removed")
	}
	for _, path := range []string{fresh, served} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}

	out, _, err = runCLI(t, []string{"status", "--offline"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	requireContains(t, out, "Last sweep")
}
