package llm

import "context"

// Provider is one LLM backend. Implementations hold no per-call state: the
// model travels with every call and an empty model selects the provider's
// configured default.
//
// GenerateText and GenerateWithMedia never retry rate limits themselves; they
// return a *GenerationError and leave fallback decisions to Service.
type Provider interface {
	Name() string
	DefaultModel() string
	GenerateText(ctx context.Context, model string, prompt Prompt) (Response, error)
	GenerateWithMedia(ctx context.Context, model string, prompt Prompt, mediaPath string) (Response, error)
	IsRateLimited(err error) bool
}
