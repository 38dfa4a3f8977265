// Package services defines shared utilities consumed by the pipeline stages and
// the external integrations that live in its subpackages.
//
// Key responsibilities:
//   - Context helpers that stamp stage names, source descriptors, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can decide
//     whether an item is worth retrying on the next cycle.
//
// Provider adapters for the LLM dispatch core live under services/gemini,
// services/openrouter, and services/litellm; services/providers assembles them.
package services
