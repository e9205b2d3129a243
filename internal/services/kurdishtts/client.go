package kurdishtts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	// DefaultEndpoint is the public Kurdish TTS proxy.
	DefaultEndpoint = "https://www.kurdishtts.com/api/tts-proxy"
	// DefaultLanguage selects the Central Kurdish (Sorani) voices.
	DefaultLanguage    = "sorani"
	defaultHTTPTimeout = 120 * time.Second
	userAgent          = "dengbej/0.1"
	errorBodyLimit     = 512
)

// ErrEmptyText is returned when there is nothing to speak.
var ErrEmptyText = errors.New("kurdish tts: empty text")

// Config captures the runtime settings required to talk to the API.
type Config struct {
	APIKey   string
	Endpoint string
	Language string
	Timeout  time.Duration
}

// Client calls the Kurdish TTS proxy. Requests are never retried.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := &Client{
		cfg: Config{
			APIKey:   strings.TrimSpace(cfg.APIKey),
			Endpoint: strings.TrimSpace(cfg.Endpoint),
			Language: strings.TrimSpace(cfg.Language),
			Timeout:  timeout,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.Endpoint == "" {
		client.cfg.Endpoint = DefaultEndpoint
	}
	if client.cfg.Language == "" {
		client.cfg.Language = DefaultLanguage
	}
	return client
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

type synthesizeRequest struct {
	Text       string `json:"text"`
	Language   string `json:"language"`
	SpeakerKey string `json:"speaker_key"`
}

// StatusError reports a non-2xx answer from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("kurdish tts: http %d", e.StatusCode)
	}
	return fmt.Sprintf("kurdish tts: http %d: %s", e.StatusCode, body)
}

// Synthesize speaks text with the given voice and returns the audio bytes
// (WAV). The speaker key is forwarded unchanged.
func (c *Client) Synthesize(ctx context.Context, text, speaker string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	payload, err := json.Marshal(synthesizeRequest{
		Text:       text,
		Language:   c.cfg.Language,
		SpeakerKey: speaker,
	})
	if err != nil {
		return nil, fmt.Errorf("kurdish tts: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("kurdish tts: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.cfg.APIKey != "" {
		req.Header.Set("x-api-key", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kurdish tts: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kurdish tts: read response: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("kurdish tts: empty audio response")
	}
	return audio, nil
}

// SynthesizeToFile writes the synthesized audio to dest.
func (c *Client) SynthesizeToFile(ctx context.Context, text, speaker, dest string) error {
	audio, err := c.Synthesize(ctx, text, speaker)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest, audio, 0o644); err != nil {
		return fmt.Errorf("kurdish tts: write audio: %w", err)
	}
	return nil
}
