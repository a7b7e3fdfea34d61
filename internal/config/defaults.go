package config

const (
	defaultConfigPath            = "~/.config/adtrim/config.toml"
	defaultStateDir              = "~/.local/share/adtrim"
	defaultLogDir                = "~/.local/share/adtrim/logs"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultTranscriptionProvider = "openai"
	defaultTranscriptionBaseURL  = "https://api.openai.com/v1/audio/transcriptions"
	defaultTranscriptionModel    = "whisper-1"
	defaultTranscriptionTimeout  = 600
	defaultWhisperXModel         = "large-v3"
	defaultLLMBaseURL            = "https://api.openai.com/v1/chat/completions"
	defaultLLMModelsURL          = "https://api.openai.com/v1/models"
	defaultLLMModel              = "gpt-4o-2024-08-06"
	defaultLLMTitle              = "adtrim"
	defaultLLMTimeoutSeconds     = 120
	defaultMaxChunkMB            = 25.0
	defaultBitrate               = "128k"
	defaultWatchInterval         = 600
	defaultMinF1                 = 0.85
	defaultMinIoU                = 0.80
	defaultNtfyTimeout           = 10

	ProviderOpenAI   = "openai"
	ProviderWhisperX = "whisperx"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Transcription: Transcription{
			Provider:       defaultTranscriptionProvider,
			BaseURL:        defaultTranscriptionBaseURL,
			Model:          defaultTranscriptionModel,
			TimeoutSeconds: defaultTranscriptionTimeout,
			WhisperXModel:  defaultWhisperXModel,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			ModelsURL:      defaultLLMModelsURL,
			Model:          defaultLLMModel,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Audio: Audio{
			MaxChunkMB: defaultMaxChunkMB,
			Bitrate:    defaultBitrate,
		},
		Watch: Watch{
			Directory:       ".",
			IntervalSeconds: defaultWatchInterval,
			Extensions:      []string{".mp3"},
		},
		Evaluation: Evaluation{
			MinF1:  defaultMinF1,
			MinIoU: defaultMinIoU,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
