package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and database locations.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	LogDir   string `toml:"log_dir"`
	Database string `toml:"database"`
}

// Provider contains connection and generation settings for a single LLM backend.
// Unset sampling fields fall back to the backend's own defaults.
type Provider struct {
	APIKey           string   `toml:"api_key"`
	Model            string   `toml:"model"`
	BaseURL          string   `toml:"base_url"`
	Temperature      *float64 `toml:"temperature"`
	TopP             *float64 `toml:"top_p"`
	TopK             *int     `toml:"top_k"`
	MaxOutputTokens  int      `toml:"max_output_tokens"`
	ResponseMIMEType string   `toml:"response_mime_type"`
	TimeoutSeconds   int      `toml:"timeout_seconds"`
	RetryAttempts    int      `toml:"retry_attempts"`
	Referer          string   `toml:"referer"`
	Title            string   `toml:"title"`
}

// LLM contains the dispatch policy and per-backend settings.
type LLM struct {
	DefaultProvider string   `toml:"default_provider"`
	StrictProvider  bool     `toml:"strict_provider"`
	HeavyModels     []string `toml:"heavy_models"`
	LightModels     []string `toml:"light_models"`
	SystemPrompt    string   `toml:"system_prompt"`
	SlugAttempts    int      `toml:"slug_attempts"`
	Humanize        bool     `toml:"humanize"`
	Gemini          Provider `toml:"gemini"`
	OpenRouter      Provider `toml:"openrouter"`
	LiteLLM         Provider `toml:"litellm"`
}

// Sources contains polling and extraction settings for channels, feeds, and podcasts.
type Sources struct {
	YouTubeRecentLimit  int    `toml:"youtube_recent_limit"`
	PodcastMinPublished string `toml:"podcast_min_published"`
	MaxArticleChars     int    `toml:"max_article_chars"`
	YtDlpBinary         string `toml:"ytdlp_binary"`
	FFmpegBinary        string `toml:"ffmpeg_binary"`
	DownloadAttempts    int    `toml:"download_attempts"`
	DownloadRetryDelay  int    `toml:"download_retry_delay"`
	RequestTimeout      int    `toml:"request_timeout"`
	UserAgent           string `toml:"user_agent"`
}

// WordPress contains REST API credentials and taxonomy mapping.
type WordPress struct {
	URL          string         `toml:"url"`
	User         string         `toml:"user"`
	Password     string         `toml:"password"`
	SummaryTagID int            `toml:"summary_tag_id"`
	Categories   map[string]int `toml:"categories"`
}

// Ghost contains Admin API settings.
type Ghost struct {
	URL      string `toml:"url"`
	AdminKey string `toml:"admin_key"`
	Status   string `toml:"status"`
}

// Telegram contains bot settings.
type Telegram struct {
	Token       string  `toml:"token"`
	APIBaseURL  string  `toml:"api_base_url"`
	PollTimeout int     `toml:"poll_timeout"`
	SendRate    float64 `toml:"send_rate"`
}

// Notifications contains ntfy and NATS sink settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	NATSURL        string `toml:"nats_url"`
	NATSSubject    string `toml:"nats_subject"`
}

// Schedule contains the daily cycle times in local HH:MM form.
type Schedule struct {
	Times      []string `toml:"times"`
	RunOnStart bool     `toml:"run_on_start"`
}

// API contains the daemon status API bind address and token.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for curator.
//
// Configuration sections by subsystem:
//   - Paths: work directory, logs, and the sqlite database
//   - LLM: dispatch policy, model tiers, and per-provider settings
//   - Sources: YouTube, RSS, and podcast polling
//   - WordPress, Ghost: publishing backends
//   - Telegram: subscriber bot
//   - Notifications: ntfy and NATS sinks
//   - Schedule: daily cycle times
//   - API: daemon status endpoint
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	LLM           LLM           `toml:"llm"`
	Sources       Sources       `toml:"sources"`
	WordPress     WordPress     `toml:"wordpress"`
	Ghost         Ghost         `toml:"ghost"`
	Telegram      Telegram      `toml:"telegram"`
	Notifications Notifications `toml:"notifications"`
	Schedule      Schedule      `toml:"schedule"`
	API           API           `toml:"api"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/curator/config.toml")
}

// Load locates, parses, and validates a configuration file. Environment variables
// are applied on top of the file so secrets can stay out of it. The returned
// config has all path fields expanded and normalized.
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

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
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

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("curator.toml")
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

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.WorkDir, c.Paths.LogDir, filepath.Dir(c.Paths.Database)}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(filepath.Dir(c.Paths.Database), "curator.lock")
}

// WordPressEnabled reports whether WordPress publishing is configured.
func (c *Config) WordPressEnabled() bool {
	return c.WordPress.URL != "" && c.WordPress.User != "" && c.WordPress.Password != ""
}

// GhostEnabled reports whether Ghost publishing is configured.
func (c *Config) GhostEnabled() bool {
	return c.Ghost.URL != "" && c.Ghost.AdminKey != ""
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
