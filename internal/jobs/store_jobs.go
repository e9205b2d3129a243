package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const jobColumns = "id, kind, status, speaker, filename, content_type, is_video, duration_seconds, error_kind, error_message, transcription, translated, outputs_json, elapsed_ms, created_at, completed_at"

// Record inserts or replaces a job row.
func (s *Store) Record(ctx context.Context, job Job) error {
	if strings.TrimSpace(job.ID) == "" {
		return errors.New("record job: id is required")
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	outputs, err := encodeOutputs(job.Outputs)
	if err != nil {
		return fmt.Errorf("record job: %w", err)
	}
	var completed *time.Time
	if !job.CompletedAt.IsZero() {
		completed = &job.CompletedAt
	}
	_, err = s.execWithRetry(ctx,
		`INSERT OR REPLACE INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		string(job.Kind),
		string(job.Status),
		nullableString(job.Speaker),
		nullableString(job.Filename),
		nullableString(job.ContentType),
		boolToInt(job.IsVideo),
		nullableFloat(job.DurationSeconds),
		nullableString(job.ErrorKind),
		nullableString(job.ErrorMessage),
		nullableString(job.Transcription),
		nullableString(job.Translated),
		outputs,
		job.Elapsed.Milliseconds(),
		formatTime(job.CreatedAt),
		nullableTime(completed),
	)
	if err != nil {
		return fmt.Errorf("record job %s: %w", job.ID, err)
	}
	return nil
}

// Get returns the job with id, or nil when absent.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// List returns jobs newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Job, error) {
	var (
		where []string
		args  []any
	)
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(opts.Status))
	}
	if opts.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(opts.Kind))
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Prune deletes jobs created before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE created_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	return res.RowsAffected()
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job          Job
		kind         string
		status       string
		speaker      sql.NullString
		filename     sql.NullString
		contentType  sql.NullString
		isVideo      int
		duration     sql.NullFloat64
		errorKind    sql.NullString
		errorMessage sql.NullString
		transcript   sql.NullString
		translated   sql.NullString
		outputs      sql.NullString
		elapsedMS    int64
		createdRaw   string
		completedRaw sql.NullString
	)
	if err := scanner.Scan(
		&job.ID,
		&kind,
		&status,
		&speaker,
		&filename,
		&contentType,
		&isVideo,
		&duration,
		&errorKind,
		&errorMessage,
		&transcript,
		&translated,
		&outputs,
		&elapsedMS,
		&createdRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}
	job.Kind = Kind(kind)
	job.Status = Status(status)
	job.Speaker = speaker.String
	job.Filename = filename.String
	job.ContentType = contentType.String
	job.IsVideo = isVideo != 0
	job.DurationSeconds = duration.Float64
	job.ErrorKind = errorKind.String
	job.ErrorMessage = errorMessage.String
	job.Transcription = transcript.String
	job.Translated = translated.String
	job.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	if outputs.Valid && outputs.String != "" {
		if err := json.Unmarshal([]byte(outputs.String), &job.Outputs); err != nil {
			return nil, fmt.Errorf("decode outputs: %w", err)
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			job.CompletedAt = completed
		}
	}
	return &job, nil
}

func encodeOutputs(outputs map[string]string) (any, error) {
	if len(outputs) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(outputs)
	if err != nil {
		return nil, fmt.Errorf("encode outputs: %w", err)
	}
	return string(data), nil
}
