// Package llm is the provider-agnostic dispatch core for text and media
// generation.
//
// # Entry Points
//
// Service is built once with the registered Provider adapters, a default
// provider, and the heavy and light model tiers. GenerateText and
// GenerateWithMedia are the only calls pipeline code needs.
//
// # Fallback Behaviour
//
// Text calls walk the tier's candidate models in order and move on only when
// the provider reports a rate limit. When every candidate is throttled the
// call fails with an *ExhaustedError matching ErrAllModelsExhausted.
//
// Media calls use the provider's default model and make at most one hop to
// another provider on a rate limit. A fallback that cannot read the media gets
// one text-only attempt with DegradedMediaPrefix in front of the prompt.
//
// Adapters classify failures into *GenerationError so callers can use
// errors.Is against ErrUnsupportedMedia and read RetryAfter hints.
package llm
