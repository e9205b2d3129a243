package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RecordSweep stores the summary of a cleanup pass.
func (s *Store) RecordSweep(ctx context.Context, sweep Sweep) error {
	if sweep.RanAt.IsZero() {
		sweep.RanAt = time.Now()
	}
	var removed any
	if len(sweep.Removed) > 0 {
		data, err := json.Marshal(sweep.Removed)
		if err != nil {
			return fmt.Errorf("encode removed paths: %w", err)
		}
		removed = string(data)
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO sweeps (ran_at, removed_count, removed_bytes, removed_json, error_count) VALUES (?, ?, ?, ?, ?)`,
		formatTime(sweep.RanAt),
		sweep.RemovedCount,
		sweep.RemovedBytes,
		removed,
		sweep.ErrorCount,
	)
	if err != nil {
		return fmt.Errorf("record sweep: %w", err)
	}
	return nil
}

// LastSweep returns the most recent sweep, or nil when none ran yet.
func (s *Store) LastSweep(ctx context.Context) (*Sweep, error) {
	var (
		sweep   Sweep
		ranRaw  string
		removed sql.NullString
	)
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT id, ran_at, removed_count, removed_bytes, removed_json, error_count FROM sweeps ORDER BY id DESC LIMIT 1`,
	).Scan(&sweep.ID, &ranRaw, &sweep.RemovedCount, &sweep.RemovedBytes, &removed, &sweep.ErrorCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last sweep: %w", err)
	}
	if ran, err := parseTimeString(ranRaw); err == nil {
		sweep.RanAt = ran
	}
	if removed.Valid && removed.String != "" {
		if err := json.Unmarshal([]byte(removed.String), &sweep.Removed); err != nil {
			return nil, fmt.Errorf("decode removed paths: %w", err)
		}
	}
	return &sweep, nil
}
