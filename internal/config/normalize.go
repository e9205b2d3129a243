package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizePipeline()
	c.normalizeOpenAI()
	c.normalizeKurdishTTS()
	c.normalizeStorage()
	c.normalizeSweep()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if c.Server.APIToken == "" {
		c.Server.APIToken = strings.TrimSpace(os.Getenv("DENGBEJ_API_TOKEN"))
	}
}

func (c *Config) normalizePipeline() {
	c.Pipeline.Mode = strings.ToLower(strings.TrimSpace(c.Pipeline.Mode))
	if c.Pipeline.Mode == "" {
		c.Pipeline.Mode = defaultPipelineMode
	}
	c.Pipeline.DefaultSpeaker = strings.TrimSpace(c.Pipeline.DefaultSpeaker)
	if c.Pipeline.DefaultSpeaker == "" {
		c.Pipeline.DefaultSpeaker = defaultSpeaker
	}
	c.Pipeline.FFmpegBinary = strings.TrimSpace(c.Pipeline.FFmpegBinary)
	if c.Pipeline.FFmpegBinary == "" {
		c.Pipeline.FFmpegBinary = defaultFFmpegBinary
	}
	c.Pipeline.FFprobeBinary = strings.TrimSpace(c.Pipeline.FFprobeBinary)
	if c.Pipeline.FFprobeBinary == "" {
		c.Pipeline.FFprobeBinary = defaultFFprobeBinary
	}
	c.Pipeline.ScriptCommand = trimArgs(c.Pipeline.ScriptCommand)
	c.Pipeline.TranslateCommand = trimArgs(c.Pipeline.TranslateCommand)
	c.Pipeline.SynthesizeCommand = trimArgs(c.Pipeline.SynthesizeCommand)
}

func (c *Config) normalizeOpenAI() {
	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	if c.OpenAI.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.OpenAI.APIKey = strings.TrimSpace(value)
		}
	}
	c.OpenAI.BaseURL = strings.TrimRight(strings.TrimSpace(c.OpenAI.BaseURL), "/")
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = defaultOpenAIBaseURL
	}
	c.OpenAI.TranscriptionModel = defaultString(c.OpenAI.TranscriptionModel, defaultTranscriptionModel)
	c.OpenAI.TranslationModel = defaultString(c.OpenAI.TranslationModel, defaultTranslationModel)
	c.OpenAI.SpeechModel = defaultString(c.OpenAI.SpeechModel, defaultSpeechModel)
	c.OpenAI.SpeechVoice = defaultString(c.OpenAI.SpeechVoice, defaultSpeechVoice)
}

func (c *Config) normalizeKurdishTTS() {
	c.KurdishTTS.APIKey = strings.TrimSpace(c.KurdishTTS.APIKey)
	if c.KurdishTTS.APIKey == "" {
		if value, ok := os.LookupEnv("KURDISH_TTS_API_KEY"); ok {
			c.KurdishTTS.APIKey = strings.TrimSpace(value)
		}
	}
	c.KurdishTTS.Endpoint = defaultString(c.KurdishTTS.Endpoint, defaultKurdishTTSEndpoint)
	c.KurdishTTS.Language = strings.ToLower(defaultString(c.KurdishTTS.Language, defaultKurdishTTSLanguage))
	if c.KurdishTTS.TimeoutSeconds <= 0 {
		c.KurdishTTS.TimeoutSeconds = defaultKurdishTTSTimeout
	}
}

func (c *Config) normalizeStorage() {
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.Region = strings.TrimSpace(c.Storage.Region)
	c.Storage.Prefix = strings.Trim(strings.TrimSpace(c.Storage.Prefix), "/")
	c.Storage.AccessKey = strings.TrimSpace(c.Storage.AccessKey)
	if c.Storage.AccessKey == "" {
		if value, ok := os.LookupEnv("DENGBEJ_S3_ACCESS_KEY"); ok {
			c.Storage.AccessKey = strings.TrimSpace(value)
		}
	}
	c.Storage.SecretKey = strings.TrimSpace(c.Storage.SecretKey)
	if c.Storage.SecretKey == "" {
		if value, ok := os.LookupEnv("DENGBEJ_S3_SECRET_KEY"); ok {
			c.Storage.SecretKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeSweep() {
	c.Sweep.Schedule = strings.TrimSpace(c.Sweep.Schedule)
	if c.Sweep.ScratchMaxAgeHours <= 0 {
		c.Sweep.ScratchMaxAgeHours = defaultScratchMaxAgeHours
	}
	if c.Sweep.OutputMaxAgeHours < 0 {
		c.Sweep.OutputMaxAgeHours = 0
	}
	if c.Jobs.RetentionDays < 0 {
		c.Jobs.RetentionDays = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func defaultString(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func trimArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
