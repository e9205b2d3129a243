package preflight

import (
	"context"
	"strings"
	"time"

	"dengbej/internal/config"
	"dengbej/internal/logging"
	"dengbej/internal/storage"
)

// CheckKurdishTTSFromConfig reports which engine will speak Sorani. A missing
// key is not a failure: hosted mode falls back to OpenAI speech.
func CheckKurdishTTSFromConfig(cfg *config.Config) Result {
	const name = "Kurdish TTS"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.KurdishTTS.APIKey) == "" {
		return Result{Name: name, Passed: true, Detail: "Not configured (OpenAI speech fallback)"}
	}
	if strings.TrimSpace(cfg.KurdishTTS.Endpoint) == "" {
		return Result{Name: name, Detail: "Missing endpoint"}
	}
	return Result{Name: name, Passed: true, Detail: "Configured (" + cfg.KurdishTTS.Language + ")"}
}

// CheckStorage verifies the mirror bucket is reachable.
func CheckStorage(ctx context.Context, cfg config.Storage) Result {
	const name = "Storage mirror"

	if !cfg.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	mirror, err := storage.New(cfg, logging.NewNop())
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := mirror.BucketExists(checkCtx)
	switch {
	case err != nil:
		return Result{Name: name, Detail: summarizeAPIError(err)}
	case !exists:
		return Result{Name: name, Detail: "bucket " + mirror.Bucket() + " does not exist (created on first serve)"}
	default:
		return Result{Name: name, Passed: true, Detail: "bucket " + mirror.Bucket() + " reachable"}
	}
}
