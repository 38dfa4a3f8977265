// Package gemini implements llm.Provider against the Gemini Generative
// Language REST API.
//
// Text prompts go to models/{model}:generateContent with the configured system
// instruction and generation settings. Media is uploaded through the File API,
// polled until the backend marks it ACTIVE, and referenced by URI ahead of the
// prompt text. Every media category the File API accepts is supported.
//
// HTTP 429 and RESOURCE_EXHAUSTED responses are reported as rate limits and are
// never retried here. Transient failures (408, 5xx, timeouts, empty candidates)
// are retried up to the configured attempt count.
package gemini
