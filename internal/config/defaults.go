package config

const (
	defaultScratchDir          = "~/.local/share/dengbej/scratch"
	defaultOutputDir           = "~/.local/share/dengbej/outputs"
	defaultLogDir              = "~/.local/share/dengbej/logs"
	defaultStateDir            = "~/.local/state/dengbej"
	defaultBind                = "127.0.0.1:5000"
	defaultMaxUploadMiB        = 100
	defaultReadTimeoutSeconds  = 120
	defaultWriteTimeoutSeconds = 0
	defaultIdleTimeoutSeconds  = 120
	defaultPipelineMode        = ModeHosted
	defaultSpeaker             = "1_speaker"
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultOpenAIBaseURL       = "https://api.openai.com/v1"
	defaultTranscriptionModel  = "whisper-1"
	defaultTranslationModel    = "gpt-4o-mini"
	defaultSpeechModel         = "tts-1"
	defaultSpeechVoice         = "alloy"
	defaultKurdishTTSEndpoint  = "https://www.kurdishtts.com/api/tts-proxy"
	defaultKurdishTTSLanguage  = "sorani"
	defaultKurdishTTSTimeout   = 120
	defaultSweepSchedule       = "@hourly"
	defaultScratchMaxAgeHours  = 6
	defaultJobsRetentionDays   = 30
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

// Pipeline modes.
const (
	ModeHosted = "hosted"
	ModeScript = "script"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
			StateDir:   defaultStateDir,
		},
		Server: Server{
			Bind:                defaultBind,
			MaxUploadMiB:        defaultMaxUploadMiB,
			ReadTimeoutSeconds:  defaultReadTimeoutSeconds,
			WriteTimeoutSeconds: defaultWriteTimeoutSeconds,
			IdleTimeoutSeconds:  defaultIdleTimeoutSeconds,
			MetricsEnabled:      true,
		},
		Pipeline: Pipeline{
			Mode:              defaultPipelineMode,
			DefaultSpeaker:    defaultSpeaker,
			FFmpegBinary:      defaultFFmpegBinary,
			FFprobeBinary:     defaultFFprobeBinary,
			ScriptCommand:     []string{"python3", "dub_pipeline.py"},
			TranslateCommand:  []string{"python3", "kurdish_translate.py"},
			SynthesizeCommand: []string{"python3", "generate_tts.py"},
			ProbeUploads:      true,
		},
		OpenAI: OpenAI{
			BaseURL:            defaultOpenAIBaseURL,
			TranscriptionModel: defaultTranscriptionModel,
			TranslationModel:   defaultTranslationModel,
			SpeechModel:        defaultSpeechModel,
			SpeechVoice:        defaultSpeechVoice,
		},
		KurdishTTS: KurdishTTS{
			Endpoint:       defaultKurdishTTSEndpoint,
			Language:       defaultKurdishTTSLanguage,
			TimeoutSeconds: defaultKurdishTTSTimeout,
		},
		Storage: Storage{
			UseSSL: true,
		},
		Sweep: Sweep{
			Schedule:           defaultSweepSchedule,
			ScratchMaxAgeHours: defaultScratchMaxAgeHours,
		},
		Jobs: Jobs{
			Enabled:       true,
			RetentionDays: defaultJobsRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Failures:       true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
