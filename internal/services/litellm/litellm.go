// Package litellm registers a LiteLLM proxy as an llm.Provider. The proxy
// accepts images and mp3/wav audio inline; video and documents are rejected
// with llm.ErrUnsupportedMedia.
package litellm

import (
	"strings"

	"curator/internal/config"
	"curator/internal/llm"
	"curator/internal/services"
	"curator/internal/services/chatapi"
)

// Name is the registry name of the provider.
const Name = "litellm"

// New builds the adapter. The proxy has no public default endpoint, so
// base_url is required.
func New(cfg config.Provider, systemPrompt string, opts ...chatapi.Option) (*chatapi.Adapter, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "llm", "litellm", "base_url is required", nil)
	}
	client := chatapi.NewClient(chatapi.Config{
		Provider:       Name,
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
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
		Media:        []llm.MediaCategory{llm.MediaImage, llm.MediaAudio},
	}), nil
}
