package kurdishtts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSynthesizeSendsSoraniRequest(t *testing.T) {
	var got synthesizeRequest
	var apiKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		apiKey = r.Header.Get("x-api-key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFF0000WAVE"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: " secret ", Endpoint: server.URL})
	audio, err := client.Synthesize(context.Background(), " سڵاو ", "3_speaker")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "RIFF0000WAVE" {
		t.Fatalf("unexpected audio %q", audio)
	}
	if apiKey != "secret" {
		t.Fatalf("expected trimmed api key header, got %q", apiKey)
	}
	if got.Text != "سڵاو" || got.Language != DefaultLanguage || got.SpeakerKey != "3_speaker" {
		t.Fatalf("unexpected request body %+v", got)
	}
}

func TestSynthesizeReportsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exhausted", http.StatusTooManyRequests)
	}))
	defer server.Close()

	calls := 0
	client := NewClient(Config{Endpoint: server.URL}, WithHTTPClient(&http.Client{Transport: countingTransport{next: http.DefaultTransport, calls: &calls}}))
	_, err := client.Synthesize(context.Background(), "text", "1_speaker")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests || !strings.Contains(statusErr.Error(), "quota exhausted") {
		t.Fatalf("unexpected status error %v", statusErr)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	client := NewClient(Config{})
	if _, err := client.Synthesize(context.Background(), "   ", "1_speaker"); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if client.Configured() {
		t.Fatal("expected client without key to be unconfigured")
	}
}

func TestSynthesizeToFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("audio-bytes"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "tts.wav")
	client := NewClient(Config{APIKey: "k", Endpoint: server.URL})
	if err := client.SynthesizeToFile(context.Background(), "text", "2_speaker", dest); err != nil {
		t.Fatalf("SynthesizeToFile: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Fatalf("unexpected file content %q", data)
	}
}

type countingTransport struct {
	next  http.RoundTripper
	calls *int
}

func (c countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	*c.calls++
	return c.next.RoundTrip(req)
}
