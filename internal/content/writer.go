package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"curator/internal/llm"
	"curator/internal/logging"
)

// Generator is the slice of the dispatch service the writer needs.
// *llm.Service satisfies it.
type Generator interface {
	GenerateText(ctx context.Context, prompt llm.Prompt, opts ...llm.CallOption) (llm.Response, error)
	GenerateWithMedia(ctx context.Context, prompt llm.Prompt, mediaPath string, opts ...llm.CallOption) (llm.Response, error)
}

// ErrEmptyOutput is returned when a generation succeeds without usable text.
var ErrEmptyOutput = errors.New("content: empty model output")

const (
	defaultSlugAttempts = 3
	maxPromptChars      = 4000
	maxSearchQueries    = 3
)

// Writer turns source material into publishable text through the LLM
// service. Heavy-tier models write long-form content; light-tier models
// handle slugs, tags, and queries.
type Writer struct {
	gen          Generator
	logger       *slog.Logger
	slugAttempts int
	now          func() time.Time
}

// Option customizes a Writer.
type Option func(*Writer)

// WithLogger sets the writer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		w.logger = logger
	}
}

// WithSlugAttempts bounds how many times GenerateSlug asks the model.
func WithSlugAttempts(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.slugAttempts = n
		}
	}
}

// WithClock overrides the time source used for fallback slugs.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		if now != nil {
			w.now = now
		}
	}
}

// NewWriter constructs a Writer over gen.
func NewWriter(gen Generator, opts ...Option) *Writer {
	w := &Writer{gen: gen, slugAttempts: defaultSlugAttempts, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.NewComponentLogger(w.logger, "content")
	return w
}

// SummarizeText writes a short summary of a transcript. The first output
// line is the title.
func (w *Writer) SummarizeText(ctx context.Context, title, transcript string) (string, string, error) {
	resp, err := w.gen.GenerateText(ctx, llm.Text(fmt.Sprintf(summarizeTranscriptPrompt, title, transcript)), llm.WithTier(llm.TierHeavy))
	if err != nil {
		return "", "", fmt.Errorf("summarize transcript: %w", err)
	}
	t, body := SplitTitle(resp.Text)
	return t, body, nil
}

// GenerateArticle writes a long-form article from a transcript.
func (w *Writer) GenerateArticle(ctx context.Context, transcript string) (string, error) {
	resp, err := w.gen.GenerateText(ctx, llm.Text(fmt.Sprintf(articleFromTranscriptPrompt, transcript)), llm.WithTier(llm.TierHeavy))
	if err != nil {
		return "", fmt.Errorf("generate article: %w", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", ErrEmptyOutput
	}
	return resp.Text, nil
}

// SummarizeAudio writes a short summary of the audio file at path.
func (w *Writer) SummarizeAudio(ctx context.Context, path string) (string, string, error) {
	resp, err := w.gen.GenerateWithMedia(ctx, llm.Text(summarizeAudioPrompt), path)
	if err != nil {
		return "", "", fmt.Errorf("summarize audio: %w", err)
	}
	t, body := SplitTitle(resp.Text)
	return t, body, nil
}

// ArticleFromAudio writes a long-form article from the audio at path. The
// source title steers the generated one.
func (w *Writer) ArticleFromAudio(ctx context.Context, title, path string) (string, string, error) {
	resp, err := w.gen.GenerateWithMedia(ctx, llm.Text(fmt.Sprintf(articleFromAudioPrompt, title)), path)
	if err != nil {
		return "", "", fmt.Errorf("article from audio: %w", err)
	}
	t, body := SplitTitle(resp.Text)
	return t, body, nil
}

// SummarizeArticle writes an analysis of a web article.
func (w *Writer) SummarizeArticle(ctx context.Context, title, article string) (string, string, error) {
	resp, err := w.gen.GenerateText(ctx, llm.Text(fmt.Sprintf(summarizeArticlePrompt, title, article)), llm.WithTier(llm.TierHeavy))
	if err != nil {
		return "", "", fmt.Errorf("summarize article: %w", err)
	}
	t, body := SplitTitle(resp.Text)
	return t, body, nil
}

// HumanizeContent rewrites text in a more natural voice. Any failure returns
// text unchanged.
func (w *Writer) HumanizeContent(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	resp, err := w.gen.GenerateText(ctx, llm.Text(fmt.Sprintf(humanizePrompt, text)), llm.WithTier(llm.TierHeavy))
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, w.logger), "humanize failed; keeping original text", "content_humanize_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check llm provider status"),
			logging.String(logging.FieldImpact, "post is published with the unedited text"),
		)
		return text
	}
	if strings.TrimSpace(resp.Text) == "" {
		return text
	}
	return resp.Text
}

// SearchQueries suggests up to three web-search queries for background on
// the article. Failures yield an empty slice.
func (w *Writer) SearchQueries(ctx context.Context, title, body string) []string {
	prompt := fmt.Sprintf(searchQueriesPrompt, title, truncate(body, maxPromptChars), maxSearchQueries)
	resp, err := w.gen.GenerateText(ctx, llm.Text(prompt), llm.WithTier(llm.TierLight))
	if err != nil {
		w.logger.Debug("search query generation failed", logging.Error(err))
		return []string{}
	}
	var queries []string
	if err := llm.DecodeJSON(resp.Text, &queries); err != nil {
		w.logger.Debug("search query response not a json array", logging.Error(err), logging.String("response", llm.Snippet(resp.Text)))
		return []string{}
	}
	out := make([]string, 0, maxSearchQueries)
	for _, q := range queries {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
		if len(out) == maxSearchQueries {
			break
		}
	}
	return out
}

// SplitTitle separates the first non-blank line of generated text from the
// rest. Markdown heading and emphasis markers around the title are dropped.
func SplitTitle(text string) (string, string) {
	text = strings.TrimLeft(text, " \t\r\n")
	first, rest, _ := strings.Cut(text, "\n")
	title := strings.TrimSpace(first)
	title = strings.TrimLeft(title, "# ")
	title = strings.Trim(title, "*_ ")
	return title, strings.TrimSpace(rest)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
