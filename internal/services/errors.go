package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrInput         = errors.New("invalid input")
	ErrExtraction    = errors.New("audio extraction failed")
	ErrPipeline      = errors.New("speech pipeline failed")
	ErrFilesystem    = errors.New("filesystem error")
	ErrExternalTool  = errors.New("external tool error")
	ErrConfiguration = errors.New("configuration error")
	ErrTimeout       = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrPipeline
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind names the failure class of err for logs, metrics and the job ledger.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrInput):
		return "input"
	case errors.Is(err, ErrExtraction):
		return "extraction"
	case errors.Is(err, ErrFilesystem):
		return "filesystem"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "pipeline"
	}
}

// HTTPStatus maps a pipeline error to the response status. Input problems are
// the caller's fault; everything else is reported as a server failure.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrInput) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Message returns the single user-facing message for err. Input errors carry
// their own descriptive text without the marker prefix; other failures keep
// the full chain so the underlying tool or API message reaches the client.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if errors.Is(err, ErrInput) {
		if trimmed := strings.TrimSpace(strings.TrimPrefix(msg, ErrInput.Error()+":")); trimmed != "" {
			return trimmed
		}
	}
	return msg
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
