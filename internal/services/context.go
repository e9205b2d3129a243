package services

import "context"

type contextKey string

const (
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
	speakerKey   contextKey = "speaker"
)

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSpeaker annotates context with the requested voice selector.
func WithSpeaker(ctx context.Context, speaker string) context.Context {
	if speaker == "" {
		return ctx
	}
	return context.WithValue(ctx, speakerKey, speaker)
}

// SpeakerFromContext returns the voice selector if present.
func SpeakerFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(speakerKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
