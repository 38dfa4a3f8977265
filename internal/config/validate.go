package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// KnownProviders lists the LLM backends curator can register, in registration order.
var KnownProviders = []string{"gemini", "openrouter", "litellm"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validatePublishing(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateLLM() error {
	known := false
	for _, name := range KnownProviders {
		if c.LLM.DefaultProvider == name {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("llm.default_provider %q must be one of %s", c.LLM.DefaultProvider, strings.Join(KnownProviders, ", "))
	}
	providers := map[string]Provider{
		"llm.gemini":     c.LLM.Gemini,
		"llm.openrouter": c.LLM.OpenRouter,
		"llm.litellm":    c.LLM.LiteLLM,
	}
	for key, p := range providers {
		if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 2) {
			return fmt.Errorf("%s.temperature must be between 0 and 2", key)
		}
		if p.TopP != nil && (*p.TopP < 0 || *p.TopP > 1) {
			return fmt.Errorf("%s.top_p must be between 0 and 1", key)
		}
		if p.TopK != nil && *p.TopK <= 0 {
			return fmt.Errorf("%s.top_k must be positive", key)
		}
		if p.MaxOutputTokens < 0 {
			return fmt.Errorf("%s.max_output_tokens must be >= 0", key)
		}
	}
	if c.LLM.LiteLLM.APIKey != "" && c.LLM.LiteLLM.BaseURL == "" {
		return errors.New("llm.litellm.base_url must be set when llm.litellm.api_key is set (or set LITELLM_BASE_URL)")
	}
	return nil
}

func (c *Config) validateSources() error {
	if c.Sources.PodcastMinPublished != "" {
		if _, err := c.PodcastCutoff(); err != nil {
			return fmt.Errorf("sources.podcast_min_published: %w", err)
		}
	}
	return nil
}

func (c *Config) validatePublishing() error {
	if c.WordPress.URL != "" && (c.WordPress.User == "" || c.WordPress.Password == "") {
		return errors.New("wordpress.user and wordpress.password must be set when wordpress.url is set (or set WP_USER/WP_PASS)")
	}
	if c.Ghost.AdminKey != "" {
		id, secret, ok := strings.Cut(c.Ghost.AdminKey, ":")
		if !ok || id == "" || secret == "" {
			return errors.New("ghost.admin_key must have the form <id>:<secret>")
		}
		if _, err := hex.DecodeString(secret); err != nil {
			return errors.New("ghost.admin_key secret must be hex encoded")
		}
		if c.Ghost.URL == "" {
			return errors.New("ghost.url must be set when ghost.admin_key is set")
		}
	}
	switch c.Ghost.Status {
	case "published", "draft":
	default:
		return fmt.Errorf("ghost.status %q must be published or draft", c.Ghost.Status)
	}
	return nil
}

func (c *Config) validateSchedule() error {
	for _, value := range c.Schedule.Times {
		if _, err := time.Parse("15:04", value); err != nil {
			return fmt.Errorf("schedule.times: %q is not HH:MM", value)
		}
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	return ensurePositiveMap(map[string]int{
		"llm.gemini.timeout_seconds":     c.LLM.Gemini.TimeoutSeconds,
		"llm.openrouter.timeout_seconds": c.LLM.OpenRouter.TimeoutSeconds,
		"llm.litellm.timeout_seconds":    c.LLM.LiteLLM.TimeoutSeconds,
		"notifications.request_timeout":  c.Notifications.RequestTimeout,
		"sources.request_timeout":        c.Sources.RequestTimeout,
		"telegram.poll_timeout":          c.Telegram.PollTimeout,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
}

// PodcastCutoff returns the earliest publish date for podcast episodes. A zero
// time means no cutoff.
func (c *Config) PodcastCutoff() (time.Time, error) {
	if c.Sources.PodcastMinPublished == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation("2006-01-02", c.Sources.PodcastMinPublished, time.Local)
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
