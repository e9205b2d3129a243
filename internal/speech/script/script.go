package script

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"dengbej/internal/logging"
	"dengbej/internal/services"
	"dengbej/internal/speech"
	"dengbej/internal/subtitles"
	"dengbej/internal/textutil"
)

const (
	stage         = "pipeline"
	stderrExcerpt = 400
)

// Config lists the commands run for each operation. Each command is a
// program followed by fixed leading arguments; per-request arguments are
// appended.
type Config struct {
	// ProcessCommand receives <audio> <dubbed> <speaker> <background> <voice>.
	ProcessCommand []string
	// TranslateCommand receives <text> <dubbed> <speaker>.
	TranslateCommand []string
	// SynthesizeCommand receives <text> <speaker> <output>.
	SynthesizeCommand []string
	// Timeout bounds one invocation; zero means no limit.
	Timeout time.Duration
	// Env is appended to the inherited environment.
	Env []string
}

// CommandRunner executes a program and returns its separated output streams.
type CommandRunner func(ctx context.Context, env []string, name string, args ...string) (stdout, stderr []byte, err error)

// Engine implements speech.Pipeline by invoking external programs.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	run    CommandRunner
}

var _ speech.Pipeline = (*Engine)(nil)

// New constructs a script engine.
func New(cfg Config, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "speech-script"),
		run:    execSeparated,
	}
}

// WithCommandRunner replaces process execution, for tests.
func (e *Engine) WithCommandRunner(run CommandRunner) *Engine {
	if run != nil {
		e.run = run
	}
	return e
}

// output is the JSON document a script prints as its last stdout line.
type output struct {
	Text               string              `json:"text"`
	Segments           []subtitles.Segment `json:"segments"`
	Translated         string              `json:"translated"`
	TranslatedSegments []subtitles.Segment `json:"translated_segments"`
	AudioPath          string              `json:"audio_path"`
	Language           string              `json:"language"`
	Success            *bool               `json:"success"`
	Error              string              `json:"error"`
}

// Process runs the media command.
func (e *Engine) Process(ctx context.Context, req speech.Request) (speech.Result, error) {
	args := []string{req.AudioPath, req.DubbedPath, req.Speaker, req.BackgroundPath, req.VoicePath}
	out, err := e.invoke(ctx, "process", e.cfg.ProcessCommand, args)
	if err != nil {
		return speech.Result{}, err
	}
	result := speech.Result{
		Transcription:      textutil.NormalizeText(out.Text),
		Translated:         textutil.NormalizeText(out.Translated),
		Segments:           out.Segments,
		TranslatedSegments: out.TranslatedSegments,
		SourceLanguage:     out.Language,
	}
	if path := strings.TrimSpace(out.AudioPath); path != "" && path != req.DubbedPath {
		result.DubbedPath = path
	}
	return result, nil
}

// Translate runs the text command.
func (e *Engine) Translate(ctx context.Context, req speech.TextRequest) (speech.TextResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return speech.TextResult{}, services.Wrap(services.ErrInput, "", "", "No text provided", speech.ErrEmptyText)
	}
	out, err := e.invoke(ctx, "translate", e.cfg.TranslateCommand, []string{req.Text, req.DubbedPath, req.Speaker})
	if err != nil {
		return speech.TextResult{}, err
	}
	result := speech.TextResult{
		Text:       textutil.NormalizeText(out.Text),
		Translated: textutil.NormalizeText(out.Translated),
		DubbedPath: req.DubbedPath,
	}
	if result.Text == "" {
		result.Text = textutil.NormalizeText(req.Text)
	}
	if path := strings.TrimSpace(out.AudioPath); path != "" {
		result.DubbedPath = path
	}
	return result, nil
}

// Synthesize runs the speech command.
func (e *Engine) Synthesize(ctx context.Context, req speech.SynthesisRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return services.Wrap(services.ErrInput, "", "", "No text provided", speech.ErrEmptyText)
	}
	out, err := e.invoke(ctx, "synthesize", e.cfg.SynthesizeCommand, []string{req.Text, req.Speaker, req.OutputPath})
	if err != nil {
		return err
	}
	if out.Success != nil && !*out.Success {
		return services.Wrap(services.ErrPipeline, stage, "synthesize", "script reported failure", nil)
	}
	return nil
}

func (e *Engine) invoke(ctx context.Context, operation string, command, args []string) (output, error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return output{}, services.Wrap(services.ErrConfiguration, stage, operation, "no command configured", nil)
	}
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	argv := append(append([]string{}, command[1:]...), args...)
	logger := logging.WithContext(ctx, e.logger)
	started := time.Now()
	logger.Info("speech script started",
		logging.String(logging.FieldEventType, "script_start"),
		logging.String("operation", operation),
		logging.String("command", command[0]),
	)

	stdout, stderr, runErr := e.run(ctx, e.cfg.Env, command[0], argv...)
	if runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return output{}, services.Wrap(services.ErrTimeout, stage, operation,
				fmt.Sprintf("script exceeded %s", e.cfg.Timeout), runErr)
		}
		msg := failureMessage(stdout, stderr)
		logging.ErrorWithContext(logger, "speech script failed", "script_failed",
			logging.String("operation", operation),
			logging.String("stderr", textutil.Excerpt(string(stderr), stderrExcerpt)),
			logging.Error(runErr),
		)
		return output{}, services.Wrap(services.ErrPipeline, stage, operation, msg, runErr)
	}

	out, err := parseOutput(stdout)
	if err != nil {
		return output{}, services.Wrap(services.ErrPipeline, stage, operation, "malformed script output", err)
	}
	if msg := strings.TrimSpace(out.Error); msg != "" {
		return output{}, services.Wrap(services.ErrPipeline, stage, operation, msg, nil)
	}
	logger.Info("speech script finished",
		logging.String(logging.FieldEventType, "script_complete"),
		logging.String("operation", operation),
		logging.Duration("elapsed", time.Since(started)),
	)
	return out, nil
}

// parseOutput decodes the last non-empty line of stdout. Scripts may print
// progress before the result.
func parseOutput(stdout []byte) (output, error) {
	line := lastLine(stdout)
	if line == "" {
		return output{}, errors.New("no output")
	}
	var out output
	if err := json.Unmarshal([]byte(line), &out); err != nil {
		return output{}, fmt.Errorf("decode %q: %w", textutil.Excerpt(line, 80), err)
	}
	return out, nil
}

// failureMessage prefers an {"error": ...} document from either stream and
// falls back to the tail of stderr.
func failureMessage(stdout, stderr []byte) string {
	for _, stream := range [][]byte{stderr, stdout} {
		line := lastLine(stream)
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var out output
		if json.Unmarshal([]byte(line), &out) == nil && strings.TrimSpace(out.Error) != "" {
			return strings.TrimSpace(out.Error)
		}
	}
	if tail := lastLine(stderr); tail != "" {
		return textutil.Excerpt(tail, stderrExcerpt)
	}
	return "script failed"
}

func lastLine(data []byte) string {
	lines := bytes.Split(data, []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(string(lines[i])); line != "" {
			return line
		}
	}
	return ""
}

func execSeparated(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
