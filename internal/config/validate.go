package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateSweep(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.MaxUploadMiB <= 0 {
		return errors.New("server.max_upload_mib must be positive")
	}
	if err := ensureNonNegativeMap(map[string]int{
		"server.read_timeout_seconds":  c.Server.ReadTimeoutSeconds,
		"server.write_timeout_seconds": c.Server.WriteTimeoutSeconds,
		"server.idle_timeout_seconds":  c.Server.IdleTimeoutSeconds,
		"pipeline.timeout_seconds":     c.Pipeline.TimeoutSeconds,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePipeline() error {
	switch c.Pipeline.Mode {
	case ModeHosted:
		if c.OpenAI.APIKey == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = "~/.config/dengbej/config.toml"
			}
			return fmt.Errorf("openai.api_key is required for pipeline.mode = %q. Set OPENAI_API_KEY env var or edit %s (create with 'dengbej config init')", ModeHosted, defaultPath)
		}
	case ModeScript:
		if len(c.Pipeline.ScriptCommand) == 0 {
			return errors.New("pipeline.script_command must be set when pipeline.mode is \"script\"")
		}
	default:
		return fmt.Errorf("pipeline.mode must be %q or %q, got %q", ModeHosted, ModeScript, c.Pipeline.Mode)
	}
	return nil
}

func (c *Config) validateStorage() error {
	if !c.Storage.Enabled {
		return nil
	}
	if c.Storage.Endpoint == "" {
		return errors.New("storage.endpoint must be set when storage.enabled is true")
	}
	if strings.Contains(c.Storage.Endpoint, "://") {
		return errors.New("storage.endpoint must be host[:port] without a scheme (use storage.use_ssl)")
	}
	if c.Storage.Bucket == "" {
		return errors.New("storage.bucket must be set when storage.enabled is true")
	}
	if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
		return errors.New("storage.access_key and storage.secret_key must be set when storage.enabled is true (or set DENGBEJ_S3_ACCESS_KEY/DENGBEJ_S3_SECRET_KEY)")
	}
	return nil
}

func (c *Config) validateSweep() error {
	if c.Sweep.Schedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(c.Sweep.Schedule); err != nil {
		return fmt.Errorf("sweep.schedule: %w", err)
	}
	return nil
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}
