package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"dengbej/internal/config"
	"dengbej/internal/deps"
	"dengbej/internal/dubbing"
	"dengbej/internal/jobs"
	"dengbej/internal/logging"
	"dengbej/internal/preflight"
	"dengbej/internal/services"
)

const (
	// multipartSlack covers multipart framing and the speaker field on top of
	// the file ceiling.
	multipartSlack = 1 << 20
	// jsonBodyLimit bounds the text endpoints.
	jsonBodyLimit = 1 << 20
	// multipartMemory is held in memory before parts spill to temp files.
	multipartMemory = 8 << 20
)

// Speaker is a known voice selector offered to clients.
type Speaker struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var knownSpeakers = []Speaker{
	{ID: "1_speaker", Label: "Speaker 1"},
	{ID: "2_speaker", Label: "Speaker 2"},
	{ID: "3_speaker", Label: "Speaker 3"},
	{ID: "4_speaker", Label: "Speaker 4"},
}

type apiServer struct {
	bind       string
	logger     *slog.Logger
	daemon     *Daemon
	controller *dubbing.Controller
	maxUpload  int64
	token      string

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

type textRequest struct {
	Text    string `json:"text"`
	Speaker string `json:"speaker"`
}

type speechResponse struct {
	TTS string `json:"tts"`
}

type speakersResponse struct {
	Default  string    `json:"default"`
	Speakers []Speaker `json:"speakers"`
}

type healthResponse struct {
	Status  string   `json:"status"`
	Mode    string   `json:"mode"`
	Missing []string `json:"missing,omitempty"`
}

type jobsResponse struct {
	Jobs []*jobs.Job `json:"jobs"`
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Server.Bind)
	if bind == "" {
		return nil, errors.New("server.bind is required")
	}
	srv := &apiServer{
		bind:       bind,
		logger:     logging.NewComponentLogger(logger, "api-server"),
		daemon:     d,
		controller: d.controller,
		maxUpload:  cfg.MaxUploadBytes(),
		token:      cfg.Server.APIToken,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", srv.handleUpload)
	mux.HandleFunc("POST /api/upload", srv.handleUpload)
	mux.HandleFunc("POST /translate", srv.handleTranslate)
	mux.HandleFunc("POST /api/translate", srv.handleTranslate)
	mux.HandleFunc("POST /api/kurdish-tts", srv.handleSpeech)
	mux.HandleFunc("GET /api/speakers", srv.handleSpeakers)
	mux.HandleFunc("GET /api/progress/{id}", srv.handleProgress)
	mux.HandleFunc("GET /healthz", srv.handleHealth)
	mux.HandleFunc("GET /api/status", srv.operatorOnly(srv.handleStatus))
	mux.HandleFunc("GET /api/jobs", srv.operatorOnly(srv.handleJobs))
	mux.HandleFunc("GET /api/jobs/{id}", srv.operatorOnly(srv.handleJob))
	if cfg.Server.MetricsEnabled && d.metrics != nil {
		mux.HandleFunc("GET /metrics", srv.operatorOnly(d.metrics.Handler().ServeHTTP))
	}
	prefix := strings.TrimSuffix(d.controller.PublicPrefix(), "/") + "/"
	mux.Handle("GET "+prefix, http.StripPrefix(prefix, outputFiles(d.controller.OutputDir())))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}
	return srv, nil
}

// outputFiles serves files from dir without directory listings.
func outputFiles(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_server_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check server.bind"),
			)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// requestID returns the client-supplied X-Request-ID, or "" when absent.
func requestID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
	if id == "" {
		return "", nil
	}
	if !dubbing.ValidRequestID(id) {
		return "", services.Wrap(services.ErrInput, "", "", "X-Request-ID must be a UUID", nil)
	}
	return strings.ToLower(id), nil
}

// pipelineContext detaches the pipeline from client cancellation while
// keeping request-scoped values.
func pipelineContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	id, err := requestID(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartSlack)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("File too large (max %d MB)", s.maxUpload>>20))
			return
		}
		s.writeError(w, http.StatusBadRequest, "Expected a multipart/form-data body")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	upload := dubbing.Upload{
		Speaker:   r.FormValue("speaker"),
		RequestID: id,
	}
	file, header, err := r.FormFile("media")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		s.writeError(w, http.StatusBadRequest, "Unreadable media part")
		return
	default:
		defer file.Close()
		upload.File = file
		upload.Filename = header.Filename
		upload.ContentType = header.Header.Get("Content-Type")
	}

	result, err := s.controller.ProcessUpload(pipelineContext(r), upload)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleTranslate(w http.ResponseWriter, r *http.Request) {
	req, id, ok := s.decodeText(w, r)
	if !ok {
		return
	}
	result, err := s.controller.Translate(pipelineContext(r), dubbing.TextInput{Text: req.Text, Speaker: req.Speaker, RequestID: id})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleSpeech(w http.ResponseWriter, r *http.Request) {
	req, id, ok := s.decodeText(w, r)
	if !ok {
		return
	}
	path, err := s.controller.Synthesize(pipelineContext(r), dubbing.TextInput{Text: req.Text, Speaker: req.Speaker, RequestID: id})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, speechResponse{TTS: path})
}

func (s *apiServer) decodeText(w http.ResponseWriter, r *http.Request) (textRequest, string, bool) {
	id, err := requestID(r)
	if err != nil {
		s.writeServiceError(w, err)
		return textRequest{}, "", false
	}
	var req textRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, jsonBodyLimit))
	if err := decoder.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusBadRequest, "Request body too large")
			return textRequest{}, "", false
		}
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return textRequest{}, "", false
	}
	return req, id, true
}

func (s *apiServer) handleSpeakers(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, speakersResponse{
		Default:  s.daemon.cfg.Pipeline.DefaultSpeaker,
		Speakers: knownSpeakers,
	})
}

func (s *apiServer) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := strings.ToLower(r.PathValue("id"))
	if !dubbing.ValidRequestID(id) {
		s.writeError(w, http.StatusBadRequest, "request id must be a UUID")
		return
	}
	if s.daemon.hub == nil {
		s.writeError(w, http.StatusNotFound, "progress streaming disabled")
		return
	}
	s.daemon.hub.ServeWebSocket(w, r, id, s.logger)
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok", Mode: s.daemon.cfg.Pipeline.Mode}
	resp.Missing = deps.MissingRequired(preflight.CheckSystemDeps(s.daemon.cfg))
	if len(resp.Missing) > 0 {
		resp.Status = "degraded"
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	if s.daemon.store == nil {
		s.writeError(w, http.StatusNotFound, "job ledger disabled")
		return
	}
	query := r.URL.Query()
	opts := jobs.ListOptions{
		Status: jobs.Status(strings.TrimSpace(query.Get("status"))),
		Kind:   jobs.Kind(strings.TrimSpace(query.Get("kind"))),
	}
	if value := strings.TrimSpace(query.Get("limit")); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		opts.Limit = limit
	}
	list, err := s.daemon.store.List(r.Context(), opts)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, jobsResponse{Jobs: list})
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	if s.daemon.store == nil {
		s.writeError(w, http.StatusNotFound, "job ledger disabled")
		return
	}
	job, err := s.daemon.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	s.writeError(w, services.HTTPStatus(err), services.Message(err))
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
