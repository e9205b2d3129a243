package testsupport

import (
	"context"
	"testing"
	"time"

	"dengbej/internal/config"
	"dengbej/internal/jobs"
)

// MustOpenJobs opens a jobs.Store for tests and registers cleanup.
func MustOpenJobs(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RecordJob inserts a finished job created at the given time.
func RecordJob(t testing.TB, store *jobs.Store, id string, status jobs.Status, created time.Time) jobs.Job {
	t.Helper()

	job := jobs.Job{
		ID:          id,
		Kind:        jobs.KindUpload,
		Status:      status,
		Speaker:     "1_speaker",
		CreatedAt:   created,
		CompletedAt: created.Add(time.Second),
	}
	if err := store.Record(context.Background(), job); err != nil {
		t.Fatalf("store.Record: %v", err)
	}
	return job
}
