// Package openrouter registers the OpenRouter gateway as an llm.Provider.
//
// OpenRouter speaks the OpenAI chat completion protocol, so the adapter is a
// configured chatapi.Adapter. Only images are forwarded as media; audio, video,
// and documents fail with llm.ErrUnsupportedMedia so the dispatch service can
// route them elsewhere.
package openrouter

import (
	"curator/internal/config"
	"curator/internal/llm"
	"curator/internal/services/chatapi"
)

// Name is the registry name of the provider.
const Name = "openrouter"

// DefaultBaseURL is used when the configuration leaves base_url empty.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// New builds the adapter from provider settings.
func New(cfg config.Provider, systemPrompt string, opts ...chatapi.Option) *chatapi.Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := chatapi.NewClient(chatapi.Config{
		Provider:       Name,
		APIKey:         cfg.APIKey,
		BaseURL:        baseURL,
		Referer:        cfg.Referer,
		Title:          cfg.Title,
		TimeoutSeconds: cfg.TimeoutSeconds,
		RetryAttempts:  cfg.RetryAttempts,
	}, opts...)
	return chatapi.NewAdapter(client, chatapi.AdapterConfig{
		Name:  Name,
		Model: cfg.Model,
		Params: chatapi.Params{
			Temperature:      cfg.Temperature,
			TopP:             cfg.TopP,
			MaxTokens:        cfg.MaxOutputTokens,
			ResponseMIMEType: cfg.ResponseMIMEType,
		},
		SystemPrompt: systemPrompt,
		Media:        []llm.MediaCategory{llm.MediaImage},
	})
}
