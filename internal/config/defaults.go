package config

const (
	defaultLogDir                  = "~/.local/share/mediasift/logs"
	defaultWorkDir                 = "~/.local/share/mediasift/work"
	defaultLockPath                = "~/.local/share/mediasift/mediasiftd.lock"
	defaultAPIBind                 = "127.0.0.1:8437"
	defaultLLMBaseURL              = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel                = "google/gemini-3-flash-preview"
	defaultLLMTimeoutSeconds       = 60
	defaultWhisperCommand          = "whisper"
	defaultWhisperModel            = "base"
	defaultFFprobeBinary           = "ffprobe"
	defaultTranscribeSeconds       = 600
	defaultDownloadSeconds         = 120
	defaultWarningThreshold        = 0.5
	defaultUnsafeThreshold         = 0.7
	defaultTextSafetySeconds       = 60
	defaultImageLevel              = "moderate"
	defaultMaxImageBytes           = 4 * 1024 * 1024
	defaultImageSafetySeconds      = 30
	defaultSummaryStyle            = "brief"
	defaultSummarizerSeconds       = 60
	defaultStorageRewritePort      = 9000
	defaultJobsMaxConcurrent       = 4
	defaultRetryMaxAttempts        = 3
	defaultRetryBaseDelayMS        = 1000
	defaultLogFormat               = "text"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			WorkDir:  defaultWorkDir,
			LockPath: defaultLockPath,
			APIBind:  defaultAPIBind,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Transcriber: Transcriber{
			Command:         defaultWhisperCommand,
			Model:           defaultWhisperModel,
			FFprobeBinary:   defaultFFprobeBinary,
			TimeoutSeconds:  defaultTranscribeSeconds,
			DownloadSeconds: defaultDownloadSeconds,
		},
		TextSafety: TextSafety{
			WarningThreshold: defaultWarningThreshold,
			UnsafeThreshold:  defaultUnsafeThreshold,
			TimeoutSeconds:   defaultTextSafetySeconds,
		},
		ImageSafety: ImageSafety{
			DefaultLevel:   defaultImageLevel,
			MaxImageBytes:  defaultMaxImageBytes,
			TimeoutSeconds: defaultImageSafetySeconds,
		},
		Summarizer: Summarizer{
			DefaultStyle:   defaultSummaryStyle,
			TimeoutSeconds: defaultSummarizerSeconds,
		},
		Storage: Storage{
			RewritePort: defaultStorageRewritePort,
		},
		Jobs: Jobs{
			MaxConcurrent: defaultJobsMaxConcurrent,
		},
		Retry: Retry{
			MaxAttempts: defaultRetryMaxAttempts,
			BaseDelayMS: defaultRetryBaseDelayMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
