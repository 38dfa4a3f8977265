// Package providers assembles the llm.Service from configuration.
//
// Adapters are registered in a fixed order (gemini, openrouter, litellm). A
// provider without an API key is skipped rather than treated as an error, so a
// deployment only needs credentials for the backends it actually uses.
package providers

import (
	"log/slog"
	"strings"

	"curator/internal/config"
	"curator/internal/llm"
	"curator/internal/logging"
	"curator/internal/services/gemini"
	"curator/internal/services/litellm"
	"curator/internal/services/openrouter"
)

// Build registers every configured adapter and returns the dispatch service.
func Build(cfg *config.Config, logger *slog.Logger) (*llm.Service, error) {
	log := logging.NewComponentLogger(logger, "providers")
	registered, err := Adapters(cfg)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(registered))
	for _, p := range registered {
		names = append(names, p.Name())
	}
	if len(registered) == 0 {
		logging.WarnWithContext(log, "no llm provider configured", "llm_registry_empty",
			logging.String(logging.FieldErrorHint, "set GEMINI_API_KEY, OPENROUTER_API_KEY, or LITELLM_API_KEY"),
			logging.String(logging.FieldImpact, "content generation requests will fail"),
		)
	} else {
		log.Info("llm providers registered",
			logging.String(logging.FieldEventType, "llm_registry_ready"),
			logging.String("providers", strings.Join(names, ",")),
			logging.String("default", cfg.LLM.DefaultProvider),
		)
	}
	return llm.NewService(registered,
		llm.WithLogger(logger),
		llm.WithDefaultProvider(cfg.LLM.DefaultProvider),
		llm.WithTiers(cfg.LLM.HeavyModels, cfg.LLM.LightModels),
		llm.WithStrictProvider(cfg.LLM.StrictProvider),
	)
}

// Adapters returns the adapters that have credentials, in registration order.
func Adapters(cfg *config.Config) ([]llm.Provider, error) {
	var out []llm.Provider
	system := cfg.LLM.SystemPrompt
	if hasKey(cfg.LLM.Gemini) {
		out = append(out, gemini.New(cfg.LLM.Gemini, system))
	}
	if hasKey(cfg.LLM.OpenRouter) {
		out = append(out, openrouter.New(cfg.LLM.OpenRouter, system))
	}
	if hasKey(cfg.LLM.LiteLLM) {
		adapter, err := litellm.New(cfg.LLM.LiteLLM, system)
		if err != nil {
			return nil, err
		}
		out = append(out, adapter)
	}
	return out, nil
}

func hasKey(p config.Provider) bool {
	return strings.TrimSpace(p.APIKey) != ""
}
