package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// envOverlay mirrors the environment variables the deployment has always used.
// Pointer fields stay nil when the variable is unset so the file value survives.
type envOverlay struct {
	GeminiAPIKey      *string  `envconfig:"GEMINI_API_KEY"`
	GeminiModel       *string  `envconfig:"GEMINI_MODEL"`
	GeminiTemperature *float64 `envconfig:"GEMINI_TEMPERATURE"`
	GeminiTopP        *float64 `envconfig:"GEMINI_TOP_P"`
	GeminiTopK        *int     `envconfig:"GEMINI_TOP_K"`
	GeminiMaxTokens   *int     `envconfig:"GEMINI_MAX_TOKENS"`

	OpenRouterAPIKey      *string  `envconfig:"OPENROUTER_API_KEY"`
	OpenRouterModel       *string  `envconfig:"OPENROUTER_MODEL"`
	OpenRouterTemperature *float64 `envconfig:"OPENROUTER_TEMPERATURE"`
	OpenRouterTopP        *float64 `envconfig:"OPENROUTER_TOP_P"`
	OpenRouterMaxTokens   *int     `envconfig:"OPENROUTER_MAX_TOKENS"`

	LiteLLMAPIKey  *string `envconfig:"LITELLM_API_KEY"`
	LiteLLMModel   *string `envconfig:"LITELLM_MODEL"`
	LiteLLMBaseURL *string `envconfig:"LITELLM_BASE_URL"`

	DefaultProvider *string `envconfig:"DEFAULT_LLM_PROVIDER"`
	HeavyModels     *string `envconfig:"HEAVY_MODELS"`
	LightModels     *string `envconfig:"LIGHT_MODELS"`
	SystemPrompt    *string `envconfig:"SYSTEM_PROMPT"`

	TelegramToken *string `envconfig:"TELEGRAM_TOKEN"`
	WPHost        *string `envconfig:"WP_HOST"`
	WPUser        *string `envconfig:"WP_USER"`
	WPPass        *string `envconfig:"WP_PASS"`
	GhostURL      *string `envconfig:"GHOST_URL"`
	GhostAdminKey *string `envconfig:"GHOST_ADMIN_KEY"`
	DBPath        *string `envconfig:"DB_PATH"`
}

func (c *Config) applyEnv() error {
	var env envOverlay
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("environment: %w", err)
	}

	setString(&c.LLM.Gemini.APIKey, env.GeminiAPIKey)
	setString(&c.LLM.Gemini.Model, env.GeminiModel)
	setFloat(&c.LLM.Gemini.Temperature, env.GeminiTemperature)
	setFloat(&c.LLM.Gemini.TopP, env.GeminiTopP)
	if env.GeminiTopK != nil {
		c.LLM.Gemini.TopK = env.GeminiTopK
	}
	setInt(&c.LLM.Gemini.MaxOutputTokens, env.GeminiMaxTokens)

	setString(&c.LLM.OpenRouter.APIKey, env.OpenRouterAPIKey)
	setString(&c.LLM.OpenRouter.Model, env.OpenRouterModel)
	setFloat(&c.LLM.OpenRouter.Temperature, env.OpenRouterTemperature)
	setFloat(&c.LLM.OpenRouter.TopP, env.OpenRouterTopP)
	setInt(&c.LLM.OpenRouter.MaxOutputTokens, env.OpenRouterMaxTokens)

	setString(&c.LLM.LiteLLM.APIKey, env.LiteLLMAPIKey)
	setString(&c.LLM.LiteLLM.Model, env.LiteLLMModel)
	setString(&c.LLM.LiteLLM.BaseURL, env.LiteLLMBaseURL)

	setString(&c.LLM.DefaultProvider, env.DefaultProvider)
	setString(&c.LLM.SystemPrompt, env.SystemPrompt)
	if env.HeavyModels != nil {
		c.LLM.HeavyModels = SplitList(*env.HeavyModels)
	}
	if env.LightModels != nil {
		c.LLM.LightModels = SplitList(*env.LightModels)
	}

	setString(&c.Telegram.Token, env.TelegramToken)
	setString(&c.WordPress.URL, env.WPHost)
	setString(&c.WordPress.User, env.WPUser)
	setString(&c.WordPress.Password, env.WPPass)
	setString(&c.Ghost.URL, env.GhostURL)
	setString(&c.Ghost.AdminKey, env.GhostAdminKey)
	setString(&c.Paths.Database, env.DBPath)
	return nil
}

// SplitList parses a comma separated list, dropping blank entries.
func SplitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst **float64, v *float64) {
	if v != nil {
		*dst = v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
