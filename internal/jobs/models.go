package jobs

import "time"

// Kind identifies which endpoint produced a job.
type Kind string

const (
	KindUpload    Kind = "upload"
	KindTranslate Kind = "translate"
	KindSpeech    Kind = "speech"
)

// Status is the terminal state of a job. Jobs are recorded once they finish.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is one ledger row.
type Job struct {
	ID              string  `json:"id"`
	Kind            Kind    `json:"kind"`
	Status          Status  `json:"status"`
	Speaker         string  `json:"speaker,omitempty"`
	Filename        string  `json:"filename,omitempty"`
	ContentType     string  `json:"content_type,omitempty"`
	IsVideo         bool    `json:"is_video"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	ErrorKind       string  `json:"error_kind,omitempty"`
	ErrorMessage    string  `json:"error_message,omitempty"`
	Transcription   string  `json:"transcription,omitempty"`
	Translated      string  `json:"translated,omitempty"`
	// Outputs maps result fields (tts, background, ...) to web paths.
	Outputs     map[string]string `json:"outputs,omitempty"`
	Elapsed     time.Duration     `json:"elapsed_ns"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt time.Time         `json:"completed_at"`
}

// Failed reports whether the job ended in failure.
func (j *Job) Failed() bool {
	return j != nil && j.Status == StatusFailed
}

// ListOptions filters List results.
type ListOptions struct {
	Status Status
	Kind   Kind
	// Limit caps the number of rows; zero means DefaultListLimit.
	Limit int
}

// DefaultListLimit bounds List when no limit is given.
const DefaultListLimit = 50

// Sweep summarizes one cleanup pass.
type Sweep struct {
	ID           int64     `json:"id"`
	RanAt        time.Time `json:"ran_at"`
	RemovedCount int       `json:"removed_count"`
	RemovedBytes int64     `json:"removed_bytes"`
	Removed      []string  `json:"removed,omitempty"`
	ErrorCount   int       `json:"error_count"`
}
