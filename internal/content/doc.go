// Package content writes publishable text from transcripts, audio, and web
// articles.
//
// A Writer sends prompts through a Generator (normally *llm.Service). Long-form
// work (summaries, articles, rewrites) runs on the heavy tier; slugs, tags, and
// search queries run on the light tier. Helpers that only shape text, such as
// FormatHTML and SplitTitle, never call a model.
//
// Generated text is used as the model produced it. Titles come from the first
// line of the output.
package content
