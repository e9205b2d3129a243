package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/sys/unix"

	"dengbej/internal/config"
	"dengbej/internal/deps"
	"dengbej/internal/speech/hosted"
)

// CheckOpenAI verifies that the OpenAI API is reachable and the key is valid.
// It uses a 15-second timeout and a single attempt.
func CheckOpenAI(ctx context.Context, apiKey, baseURL string) Result {
	const name = "OpenAI API"
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client := hosted.NewOpenAIClient(apiKey, baseURL)
	if _, err := client.ListModels(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeAPIError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates all binaries the request path shells out to.
// Both the server and the CLI status command use this to avoid duplicating
// the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     deps.ResolveMediaBinary(cfg.Pipeline.FFmpegBinary, "ffmpeg"),
			Description: "Required for audio extraction and track derivation",
		},
		{
			Name:        "FFprobe",
			Command:     deps.ResolveMediaBinary(cfg.Pipeline.FFprobeBinary, "ffprobe"),
			Description: "Probes uploads for duration and streams",
			Optional:    true,
		},
	}
	if cfg.Pipeline.Mode == config.ModeScript {
		requirements = append(requirements, scriptRequirement("Pipeline script", cfg.Pipeline.ScriptCommand, "Runs transcription, translation and dubbing", false))
		requirements = append(requirements, scriptRequirement("Translate script", cfg.Pipeline.TranslateCommand, "Serves the text translation path", true))
		requirements = append(requirements, scriptRequirement("Synthesize script", cfg.Pipeline.SynthesizeCommand, "Serves direct Kurdish speech", true))
	}
	return deps.CheckBinaries(requirements)
}

func scriptRequirement(name string, command []string, description string, optional bool) deps.Requirement {
	req := deps.Requirement{Name: name, Description: description, Optional: optional}
	if len(command) > 0 {
		req.Command = command[0]
	}
	return req
}

// summarizeAPIError produces a human-readable summary for API health check failures.
func summarizeAPIError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			return "auth failed (invalid api key)"
		default:
			return fmt.Sprintf("API error (%d): %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
	}
	return err.Error()
}
