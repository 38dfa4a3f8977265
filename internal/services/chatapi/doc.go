// Package chatapi talks to OpenAI-compatible chat completion endpoints and
// exposes them as llm.Provider adapters.
//
// The OpenRouter and LiteLLM providers are both built from this package; they
// differ only in base URL, headers, defaults, and which media categories they
// accept.
//
// # Entry Points
//
// NewClient: construct a client from Config.
// Client.Complete: send one chat completion request.
// NewAdapter: wrap a client as a named llm.Provider.
//
// # Retry Behaviour
//
// The client retries HTTP 408, 5xx, empty content, and network timeouts with
// exponential backoff (base 1s, max 10s) up to Config.RetryAttempts, which
// defaults to a single attempt. HTTP 429 is never retried here; it is returned
// as a rate-limited *llm.GenerationError carrying the Retry-After hint so the
// dispatch service can move to the next model.
package chatapi
