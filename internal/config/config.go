package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	ScratchDir string `toml:"scratch_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
	StateDir   string `toml:"state_dir"`
}

// Server contains HTTP listener configuration.
type Server struct {
	Bind                string `toml:"bind"`
	MaxUploadMiB        int    `toml:"max_upload_mib"`
	ReadTimeoutSeconds  int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `toml:"write_timeout_seconds"`
	IdleTimeoutSeconds  int    `toml:"idle_timeout_seconds"`
	MetricsEnabled      bool   `toml:"metrics_enabled"`
	// APIToken guards the operator endpoints (status, jobs, metrics).
	APIToken string `toml:"api_token"`
}

// Pipeline selects and configures the speech pipeline adapter.
type Pipeline struct {
	Mode              string   `toml:"mode"`
	DefaultSpeaker    string   `toml:"default_speaker"`
	FFmpegBinary      string   `toml:"ffmpeg_binary"`
	FFprobeBinary     string   `toml:"ffprobe_binary"`
	ScriptCommand     []string `toml:"script_command"`
	TranslateCommand  []string `toml:"translate_command"`
	SynthesizeCommand []string `toml:"synthesize_command"`
	TimeoutSeconds    int      `toml:"timeout_seconds"`
	ProbeUploads      bool     `toml:"probe_uploads"`
}

// OpenAI contains settings for the hosted transcription and translation models.
type OpenAI struct {
	APIKey             string `toml:"api_key"`
	BaseURL            string `toml:"base_url"`
	TranscriptionModel string `toml:"transcription_model"`
	TranslationModel   string `toml:"translation_model"`
	SpeechModel        string `toml:"speech_model"`
	SpeechVoice        string `toml:"speech_voice"`
}

// KurdishTTS contains settings for the Sorani speech synthesis API.
type KurdishTTS struct {
	APIKey         string `toml:"api_key"`
	Endpoint       string `toml:"endpoint"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Storage contains the optional S3-compatible mirror for served files.
type Storage struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Prefix    string `toml:"prefix"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
}

// Sweep controls removal of leftover scratch files and aged outputs.
type Sweep struct {
	Schedule           string `toml:"schedule"`
	ScratchMaxAgeHours int    `toml:"scratch_max_age_hours"`
	OutputMaxAgeHours  int    `toml:"output_max_age_hours"`
}

// Jobs controls the job ledger.
type Jobs struct {
	Enabled       bool `toml:"enabled"`
	RetentionDays int  `toml:"retention_days"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Failures       bool   `toml:"failures"`
	Completions    bool   `toml:"completions"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for dengbej.
//
// Configuration sections by subsystem:
//   - Paths: scratch, output, log and state directories
//   - Server: HTTP bind address, upload ceiling and timeouts
//   - Pipeline: speech pipeline adapter selection and external binaries
//   - OpenAI: hosted transcription, translation and fallback speech
//   - KurdishTTS: Sorani speech synthesis API
//   - Storage: optional S3/MinIO mirror of served files
//   - Sweep: cleanup schedule and age limits
//   - Jobs: SQLite job ledger
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Server        Server        `toml:"server"`
	Pipeline      Pipeline      `toml:"pipeline"`
	OpenAI        OpenAI        `toml:"openai"`
	KurdishTTS    KurdishTTS    `toml:"kurdish_tts"`
	Storage       Storage       `toml:"storage"`
	Sweep         Sweep         `toml:"sweep"`
	Jobs          Jobs          `toml:"jobs"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/dengbej/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/dengbej/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dengbej.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the server writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ScratchDir, c.Paths.OutputDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MaxUploadBytes returns the upload size ceiling in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMiB) << 20
}

// JobsDBPath returns the SQLite ledger location.
func (c *Config) JobsDBPath() string {
	return filepath.Join(c.Paths.StateDir, "jobs.db")
}

// LockPath returns the single-instance lock file used by the server.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "dengbej.lock")
}

// PipelineTimeout returns the per-invocation limit for external pipeline
// commands. Zero means no limit.
func (c *Config) PipelineTimeout() time.Duration {
	return time.Duration(c.Pipeline.TimeoutSeconds) * time.Second
}

// ScratchMaxAge returns how long scratch files may linger before a sweep removes them.
func (c *Config) ScratchMaxAge() time.Duration {
	return time.Duration(c.Sweep.ScratchMaxAgeHours) * time.Hour
}

// OutputMaxAge returns how long served files are kept. Zero keeps them forever.
func (c *Config) OutputMaxAge() time.Duration {
	return time.Duration(c.Sweep.OutputMaxAgeHours) * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
