package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dengbej/internal/config"
	"dengbej/internal/textutil"
)

const (
	userAgent    = "dengbej/0.1"
	messageLimit = 300
)

// Service defines the notification surface exposed to the request path and
// maintenance jobs.
type Service interface {
	NotifyJobFailed(ctx context.Context, kind, requestID string, err error) error
	NotifyJobCompleted(ctx context.Context, kind, requestID string, elapsed time.Duration) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		failures:    cfg.Notifications.Failures,
		completions: cfg.Notifications.Completions,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	failures    bool
	completions bool
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, kind, requestID string, err error) error {
	if !n.failures {
		return nil
	}
	reason := "unknown error"
	if err != nil {
		reason = textutil.Excerpt(err.Error(), messageLimit)
	}
	data := payload{
		title:    "Dengbej - Dubbing Failed",
		message:  fmt.Sprintf("❌ %s %s failed: %s", kind, shortID(requestID), reason),
		tags:     []string{"dengbej", kind, "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, kind, requestID string, elapsed time.Duration) error {
	if !n.completions {
		return nil
	}
	data := payload{
		title:   "Dengbej - Dubbing Complete",
		message: fmt.Sprintf("✅ %s %s finished in %s", kind, shortID(requestID), elapsed.Round(time.Second)),
		tags:    []string{"dengbej", kind, "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(textutil.Excerpt(err.Error(), messageLimit))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Dengbej - Error",
		message:  builder.String(),
		tags:     []string{"dengbej", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Dengbej - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"dengbej", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type noopService struct{}

func (noopService) NotifyJobFailed(context.Context, string, string, error) error { return nil }
func (noopService) NotifyJobCompleted(context.Context, string, string, time.Duration) error {
	return nil
}
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
