package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeSources()
	c.normalizePublishing()
	c.normalizeTelegram()
	c.normalizeNotifications()
	c.normalizeSchedule()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.Database) == "" {
		c.Paths.Database = defaultDatabase
	}
	if c.Paths.Database, err = expandPath(c.Paths.Database); err != nil {
		return fmt.Errorf("paths.database: %w", err)
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.DefaultProvider = strings.ToLower(strings.TrimSpace(c.LLM.DefaultProvider))
	if c.LLM.DefaultProvider == "" {
		c.LLM.DefaultProvider = defaultProvider
	}
	c.LLM.HeavyModels = cleanList(c.LLM.HeavyModels)
	c.LLM.LightModels = cleanList(c.LLM.LightModels)
	c.LLM.SystemPrompt = strings.TrimSpace(c.LLM.SystemPrompt)
	if c.LLM.SlugAttempts <= 0 {
		c.LLM.SlugAttempts = defaultSlugAttempts
	}

	normalizeProvider(&c.LLM.Gemini, defaultGeminiBaseURL)
	normalizeProvider(&c.LLM.OpenRouter, defaultOpenRouterBaseURL)
	normalizeProvider(&c.LLM.LiteLLM, "")
}

func normalizeProvider(p *Provider, baseURL string) {
	p.APIKey = strings.TrimSpace(p.APIKey)
	p.Model = strings.TrimSpace(p.Model)
	p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	if p.BaseURL == "" {
		p.BaseURL = baseURL
	}
	p.ResponseMIMEType = strings.TrimSpace(p.ResponseMIMEType)
	p.Referer = strings.TrimSpace(p.Referer)
	p.Title = strings.TrimSpace(p.Title)
	if p.TimeoutSeconds <= 0 {
		p.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if p.RetryAttempts <= 0 {
		p.RetryAttempts = defaultLLMRetryAttempts
	}
}

func (c *Config) normalizeSources() {
	if c.Sources.YouTubeRecentLimit <= 0 {
		c.Sources.YouTubeRecentLimit = defaultYouTubeRecentLimit
	}
	c.Sources.PodcastMinPublished = strings.TrimSpace(c.Sources.PodcastMinPublished)
	if c.Sources.MaxArticleChars <= 0 {
		c.Sources.MaxArticleChars = defaultMaxArticleChars
	}
	c.Sources.YtDlpBinary = strings.TrimSpace(c.Sources.YtDlpBinary)
	if c.Sources.YtDlpBinary == "" {
		c.Sources.YtDlpBinary = defaultYtDlpBinary
	}
	c.Sources.FFmpegBinary = strings.TrimSpace(c.Sources.FFmpegBinary)
	if c.Sources.FFmpegBinary == "" {
		c.Sources.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Sources.DownloadAttempts <= 0 {
		c.Sources.DownloadAttempts = defaultDownloadAttempts
	}
	if c.Sources.DownloadRetryDelay < 0 {
		c.Sources.DownloadRetryDelay = 0
	}
	if c.Sources.RequestTimeout <= 0 {
		c.Sources.RequestTimeout = defaultSourceRequestTimeout
	}
	c.Sources.UserAgent = strings.TrimSpace(c.Sources.UserAgent)
	if c.Sources.UserAgent == "" {
		c.Sources.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizePublishing() {
	c.WordPress.URL = strings.TrimRight(strings.TrimSpace(c.WordPress.URL), "/")
	c.WordPress.User = strings.TrimSpace(c.WordPress.User)
	if len(c.WordPress.Categories) > 0 {
		categories := make(map[string]int, len(c.WordPress.Categories))
		for handle, id := range c.WordPress.Categories {
			key := strings.ToLower(strings.TrimSpace(handle))
			if key == "" {
				continue
			}
			if !strings.HasPrefix(key, "@") {
				key = "@" + key
			}
			categories[key] = id
		}
		c.WordPress.Categories = categories
	}

	c.Ghost.URL = strings.TrimRight(strings.TrimSpace(c.Ghost.URL), "/")
	c.Ghost.AdminKey = strings.TrimSpace(c.Ghost.AdminKey)
	c.Ghost.Status = strings.ToLower(strings.TrimSpace(c.Ghost.Status))
	if c.Ghost.Status == "" {
		c.Ghost.Status = defaultGhostStatus
	}
}

func (c *Config) normalizeTelegram() {
	c.Telegram.Token = strings.TrimSpace(c.Telegram.Token)
	c.Telegram.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Telegram.APIBaseURL), "/")
	if c.Telegram.APIBaseURL == "" {
		c.Telegram.APIBaseURL = defaultTelegramBaseURL
	}
	if c.Telegram.PollTimeout <= 0 {
		c.Telegram.PollTimeout = defaultTelegramPollTimeout
	}
	if c.Telegram.SendRate <= 0 {
		c.Telegram.SendRate = defaultTelegramSendRate
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	c.Notifications.NATSURL = strings.TrimSpace(c.Notifications.NATSURL)
	c.Notifications.NATSSubject = strings.TrimSpace(c.Notifications.NATSSubject)
	if c.Notifications.NATSSubject == "" {
		c.Notifications.NATSSubject = defaultNATSSubject
	}
}

func (c *Config) normalizeSchedule() {
	c.Schedule.Times = cleanList(c.Schedule.Times)
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.Token = strings.TrimSpace(c.API.Token)
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
}

func cleanList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
