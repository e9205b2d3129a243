package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"dengbej/internal/config"
	"dengbej/internal/dubbing"
	"dengbej/internal/jobs"
	"dengbej/internal/logging"
	"dengbej/internal/metrics"
	"dengbej/internal/progress"
	"dengbej/internal/speech"
	"dengbej/internal/subtitles"
	"dengbej/internal/testsupport"
)

type stubPipeline struct {
	err error
}

func (p stubPipeline) Process(_ context.Context, req speech.Request) (speech.Result, error) {
	if p.err != nil {
		return speech.Result{}, p.err
	}
	if err := os.WriteFile(req.DubbedPath, []byte("dubbed"), 0o644); err != nil {
		return speech.Result{}, err
	}
	return speech.Result{
		Transcription:      "Hello",
		Translated:         "سڵاو",
		TranslatedSegments: []subtitles.Segment{{Start: 0, End: 1.25, Text: "سڵاو"}},
	}, nil
}

func (p stubPipeline) Translate(_ context.Context, req speech.TextRequest) (speech.TextResult, error) {
	if p.err != nil {
		return speech.TextResult{}, p.err
	}
	if err := os.WriteFile(req.DubbedPath, []byte("dubbed"), 0o644); err != nil {
		return speech.TextResult{}, err
	}
	return speech.TextResult{Text: req.Text, Translated: "سڵاو"}, nil
}

func (p stubPipeline) Synthesize(_ context.Context, req speech.SynthesisRequest) error {
	if p.err != nil {
		return p.err
	}
	return os.WriteFile(req.OutputPath, []byte("speech"), 0o644)
}

type testEnv struct {
	cfg     *config.Config
	daemon  *Daemon
	store   *jobs.Store
	handler http.Handler
}

func newTestEnv(t *testing.T, pipeline speech.Pipeline, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	for _, fn := range mutate {
		fn(cfg)
	}
	return newEnvFromConfig(t, cfg, pipeline)
}

func newEnvFromConfig(t *testing.T, cfg *config.Config, pipeline speech.Pipeline) *testEnv {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenJobs(t, cfg)
	hub := progress.NewHub(64)
	m := metrics.New()
	logger := logging.NewNop()

	controller, err := dubbing.New(dubbing.ConfigFromApp(cfg), pipeline, logger,
		dubbing.WithRecorder(store),
		dubbing.WithProgress(hub),
		dubbing.WithObserver(m),
	)
	if err != nil {
		t.Fatalf("dubbing.New: %v", err)
	}
	d, err := New(cfg, controller, logger, WithStore(store), WithHub(hub), WithMetrics(m))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return &testEnv{cfg: cfg, daemon: d, store: store, handler: d.Handler()}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, filename, contentType string, data []byte, speaker string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if data != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="media"; filename="`+filename+`"`)
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if speaker != "" {
		if err := mw.WriteField("speaker", speaker); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestUploadAudioRoundTrip(t *testing.T) {
	env := newTestEnv(t, stubPipeline{})
	payload := []byte("ID3 fake mp3 payload")

	w := env.do(uploadRequest(t, "song.mp3", "audio/mpeg", payload, "2_speaker"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res dubbing.Result
	decodeBody(t, w, &res)
	if res.IsVideo {
		t.Fatal("expected isVideo=false")
	}
	if res.SRT != "1\n00:00:00,000 --> 00:00:01,250\nسڵاو\n\n" {
		t.Fatalf("unexpected srt %q", res.SRT)
	}

	get := env.do(httptest.NewRequest(http.MethodGet, res.OriginalMedia, nil))
	if get.Code != http.StatusOK {
		t.Fatalf("expected original media served, got %d", get.Code)
	}
	if !bytes.Equal(get.Body.Bytes(), payload) {
		t.Fatal("served original differs from upload")
	}
	if tts := env.do(httptest.NewRequest(http.MethodGet, res.TTS, nil)); tts.Code != http.StatusOK {
		t.Fatalf("expected dubbed audio served, got %d", tts.Code)
	}
}

func TestUploadWithoutMediaReturns400(t *testing.T) {
	env := newTestEnv(t, stubPipeline{})
	w := env.do(uploadRequest(t, "", "", nil, "1_speaker"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var body map[string]string
	decodeBody(t, w, &body)
	if body["error"] != "No file uploaded" {
		t.Fatalf("unexpected error body %v", body)
	}
	entries, err := os.ReadDir(env.cfg.Paths.OutputDir)
	if err != nil {
		t.Fatalf("read outputs: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no outputs, got %d", len(entries))
	}
}

func TestUploadTooLargeReturns400(t *testing.T) {
	small := newTestEnv(t, stubPipeline{}, func(cfg *config.Config) {
		cfg.Server.MaxUploadMiB = 1
	})

	big := bytes.Repeat([]byte("a"), 3<<20)
	w := small.do(uploadRequest(t, "big.wav", "audio/wav", big, ""))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "too large") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestUploadRejectsNonMultipart(t *testing.T) {
	env := newTestEnv(t, stubPipeline{})
	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(`{"media":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	if w := env.do(req); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUploadMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, stubPipeline{})
	if w := env.do(httptest.NewRequest(http.MethodGet, "/upload", nil)); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestUploadPipelineFailureReturns500(t *testing.T) {
	env := newTestEnv(t, stubPipeline{err: errors.New("whisper: quota exceeded")})
	w := env.do(uploadRequest(t, "a.wav", "audio/wav", []byte("x"), ""))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "quota exceeded") {
		t.Fatalf("underlying message missing: %s", w.Body.String())
	}
}

func TestUploadHonoursRequestIDHeader(t *testing.T) {
	env := newTestEnv(t, stubPipeline{})
	id := "0B7C2C55-6F4E-4F0E-8F43-2F2B8D0F6A11"

	req := uploadRequest(t, "a.wav", "audio/wav", []byte("x"), "")
	req.Header.Set("X-Request-ID", id)
	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res dubbing.Result
	decodeBody(t, w, &res)
	if res.TTS != "/outputs/"+strings.ToLower(id)+"-kurdish.mp3" {
		t.Fatalf("unexpected tts %q", res.TTS)
	}

	replay := uploadRequest(t, "b.wav", "audio/wav", []byte(""), "")
	replay.Header.Set("X-Request-ID", id)
	if w := env.do(replay); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a reused request id, got %d: %s", w.Code, w.Body.String())
	}
	kept := filepath.Join(env.cfg.Paths.OutputDir, strings.ToLower(id)+"-kurdish.mp3")
	if _, err := os.Stat(kept); err != nil {
		t.Fatalf("first request output removed: %v", err)
	}

	bad := uploadRequest(t, "a.wav", "audio/wav", []byte("x"), "")
	bad.Header.Set("X-Request-ID", "../../etc")
	if w := env.do(bad); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad request id, got %d", w.Code)
	}
}

func TestTranslateEndpoint(t *testing.T) {
	env := newTestEnv(t, stubPipeline{})
	req := httptest.NewRequest(http.MethodPost, "/translate", strings.NewReader(`{"text":"Hello","speaker":"2_speaker"}`))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var raw map[string]any
	decodeBody(t, w, &raw)
	if _, ok := raw["originalMedia"]; ok {
		t.Fatalf("originalMedia should be omitted: %v", raw)
	}
	if raw["srt"] != "" || raw["translated"] != "سڵاو" || raw["transcription"] != "Hello" {
		t.Fatalf("unexpected body %v", raw)
	}
}

func TestTranslateInputErrors(t *testing.T) {
	env := newTestEnv(t, stubPipeline{})
	for _, body := range []string{`{"text":`, `{"text":"   "}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/translate", strings.NewReader(body))
		if w := env.do(req); w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, w.Code)
		}
	}
}

func TestKurdishSpeechEndpoint(t *testing.T) {
	env := newTestEnv(t, stubPipeline{})
	req := httptest.NewRequest(http.MethodPost, "/api/kurdish-tts", strings.NewReader(`{"text":"سڵاو"}`))
	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res speechResponse
	decodeBody(t, w, &res)
	if !strings.HasPrefix(res.TTS, "/outputs/") {
		t.Fatalf("unexpected tts %q", res.TTS)
	}
}

func TestSpeakersEndpoint(t *testing.T) {
	env := newTestEnv(t, stubPipeline{})
	w := env.do(httptest.NewRequest(http.MethodGet, "/api/speakers", nil))
	var res speakersResponse
	decodeBody(t, w, &res)
	if res.Default != "1_speaker" || len(res.Speakers) != 4 {
		t.Fatalf("unexpected speakers %+v", res)
	}
}

func TestOutputsDoNotListDirectories(t *testing.T) {
	env := newTestEnv(t, stubPipeline{})
	if w := env.do(httptest.NewRequest(http.MethodGet, "/outputs/", nil)); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, stubPipeline{})
	w := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var res healthResponse
	decodeBody(t, w, &res)
	if w.Code != http.StatusOK || res.Status != "ok" || res.Mode != config.ModeHosted {
		t.Fatalf("unexpected health %d %+v", w.Code, res)
	}
}

func TestOperatorEndpointsRequireToken(t *testing.T) {
	env := newTestEnv(t, stubPipeline{}, func(cfg *config.Config) {
		cfg.Server.APIToken = "secret"
	})

	for _, path := range []string{"/api/status", "/api/jobs", "/metrics"} {
		if w := env.do(httptest.NewRequest(http.MethodGet, path, nil)); w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, w.Code)
		}
	}

	wrong := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	wrong.Header.Set("Authorization", "Bearer guess")
	if w := env.do(wrong); w.Code != http.StatusUnauthorized || w.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("expected 401 with challenge, got %d %v", w.Code, w.Header())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "bearer secret")
	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var status Status
	decodeBody(t, w, &status)
	if status.Mode != config.ModeHosted || len(status.Directories) != 3 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestJobsEndpoints(t *testing.T) {
	env := newTestEnv(t, stubPipeline{})
	w := env.do(uploadRequest(t, "a.wav", "audio/wav", []byte("x"), ""))
	if w.Code != http.StatusOK {
		t.Fatalf("upload failed: %d", w.Code)
	}
	_ = env.do(uploadRequest(t, "", "", nil, ""))

	list := env.do(httptest.NewRequest(http.MethodGet, "/api/jobs?status=failed", nil))
	var res jobsResponse
	decodeBody(t, list, &res)
	if len(res.Jobs) != 1 || res.Jobs[0].ErrorKind != "input" {
		t.Fatalf("unexpected jobs %+v", res.Jobs)
	}

	one := env.do(httptest.NewRequest(http.MethodGet, "/api/jobs/"+res.Jobs[0].ID, nil))
	if one.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", one.Code)
	}
	if missing := env.do(httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil)); missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.Code)
	}
	if bad := env.do(httptest.NewRequest(http.MethodGet, "/api/jobs?limit=x", nil)); bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", bad.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, stubPipeline{})
	_ = env.do(uploadRequest(t, "a.wav", "audio/wav", []byte("x"), ""))
	w := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `dengbej_requests_total{kind="upload",outcome="ok"} 1`) {
		t.Fatalf("request counter missing from exposition")
	}
}

func TestProgressWebSocket(t *testing.T) {
	env := newTestEnv(t, stubPipeline{})
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	id := dubbing.NewRequestID()
	req := uploadRequest(t, "a.wav", "audio/wav", []byte("x"), "")
	req.Header.Set("X-Request-ID", id)
	if w := env.do(req); w.Code != http.StatusOK {
		t.Fatalf("upload failed: %d", w.Code)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/progress/" + id
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp != nil && resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var stages []string
	for {
		var evt progress.Event
		if err := conn.ReadJSON(&evt); err != nil {
			t.Fatalf("read event after %v: %v", stages, err)
		}
		stages = append(stages, evt.Stage)
		if evt.Terminal() {
			break
		}
	}
	if stages[0] != progress.StageReceived || stages[len(stages)-1] != progress.StageCompleted {
		t.Fatalf("unexpected stages %v", stages)
	}

	if w := env.do(httptest.NewRequest(http.MethodGet, "/api/progress/not-a-uuid", nil)); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid id, got %d", w.Code)
	}
}
