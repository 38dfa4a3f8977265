package config

const (
	defaultWorkDir              = "~/.local/share/curator/work"
	defaultLogDir               = "~/.local/share/curator/logs"
	defaultDatabase             = "~/.local/share/curator/curator.db"
	defaultProvider             = "gemini"
	defaultSlugAttempts         = 3
	defaultGeminiBaseURL        = "https://generativelanguage.googleapis.com"
	defaultGeminiModel          = "gemini-2.0-flash"
	defaultOpenRouterBaseURL    = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel      = "google/gemini-2.0-flash-001"
	defaultOpenRouterReferer    = "https://github.com/curator"
	defaultOpenRouterTitle      = "curator"
	defaultLLMTimeoutSeconds    = 120
	defaultLLMRetryAttempts     = 1
	defaultYouTubeRecentLimit   = 5
	defaultPodcastMinPublished  = "2025-01-01"
	defaultMaxArticleChars      = 20000
	defaultYtDlpBinary          = "yt-dlp"
	defaultFFmpegBinary         = "ffmpeg"
	defaultDownloadAttempts     = 3
	defaultDownloadRetryDelay   = 5
	defaultSourceRequestTimeout = 30
	defaultUserAgent            = "Mozilla/5.0 (compatible; curator/1.0)"
	defaultGhostStatus          = "published"
	defaultTelegramBaseURL      = "https://api.telegram.org"
	defaultTelegramPollTimeout  = 30
	defaultTelegramSendRate     = 25
	defaultNotifyTimeout        = 10
	defaultNATSSubject          = "curator.events"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

var defaultScheduleTimes = []string{"00:00", "12:00"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			LogDir:   defaultLogDir,
			Database: defaultDatabase,
		},
		LLM: LLM{
			DefaultProvider: defaultProvider,
			SlugAttempts:    defaultSlugAttempts,
			Gemini: Provider{
				BaseURL:        defaultGeminiBaseURL,
				Model:          defaultGeminiModel,
				TimeoutSeconds: defaultLLMTimeoutSeconds,
				RetryAttempts:  defaultLLMRetryAttempts,
			},
			OpenRouter: Provider{
				BaseURL:         defaultOpenRouterBaseURL,
				Model:           defaultOpenRouterModel,
				Temperature:     floatPtr(0.7),
				TopP:            floatPtr(0.95),
				MaxOutputTokens: 1024,
				Referer:         defaultOpenRouterReferer,
				Title:           defaultOpenRouterTitle,
				TimeoutSeconds:  defaultLLMTimeoutSeconds,
				RetryAttempts:   defaultLLMRetryAttempts,
			},
			LiteLLM: Provider{
				TimeoutSeconds: defaultLLMTimeoutSeconds,
				RetryAttempts:  defaultLLMRetryAttempts,
			},
		},
		Sources: Sources{
			YouTubeRecentLimit:  defaultYouTubeRecentLimit,
			PodcastMinPublished: defaultPodcastMinPublished,
			MaxArticleChars:     defaultMaxArticleChars,
			YtDlpBinary:         defaultYtDlpBinary,
			FFmpegBinary:        defaultFFmpegBinary,
			DownloadAttempts:    defaultDownloadAttempts,
			DownloadRetryDelay:  defaultDownloadRetryDelay,
			RequestTimeout:      defaultSourceRequestTimeout,
			UserAgent:           defaultUserAgent,
		},
		Ghost: Ghost{
			Status: defaultGhostStatus,
		},
		Telegram: Telegram{
			APIBaseURL:  defaultTelegramBaseURL,
			PollTimeout: defaultTelegramPollTimeout,
			SendRate:    defaultTelegramSendRate,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			NATSSubject:    defaultNATSSubject,
		},
		Schedule: Schedule{
			Times:      append([]string(nil), defaultScheduleTimes...),
			RunOnStart: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func floatPtr(v float64) *float64 { return &v }
