package content

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"curator/internal/llm"
	"curator/internal/logging"
)

const maxSlugLength = 50

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// GenerateSlug asks the light tier for a URL slug, retrying until the answer
// is valid. After the last attempt it derives a slug from the title instead.
func (w *Writer) GenerateSlug(ctx context.Context, title, body string) string {
	logger := logging.WithContext(ctx, w.logger)
	prompt := llm.Text(fmt.Sprintf(slugPrompt, title, truncate(body, maxPromptChars)))
	for attempt := 1; attempt <= w.slugAttempts; attempt++ {
		resp, err := w.gen.GenerateText(ctx, prompt, llm.WithTier(llm.TierLight))
		if err != nil {
			logger.Debug("slug generation failed",
				logging.Int("attempt", attempt),
				logging.Error(err),
			)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		slug := CleanSlug(resp.Text)
		if ValidSlug(slug) {
			return slug
		}
		logger.Debug("slug rejected",
			logging.Int("attempt", attempt),
			logging.String("slug", llm.Snippet(resp.Text)),
		)
	}

	slug := CleanSlug(foldASCII(title))
	if !ValidSlug(slug) {
		slug = fmt.Sprintf("post-%d", w.now().Unix())
	}
	logging.WarnWithContext(logger, "using fallback slug", "content_slug_fallback",
		logging.String("slug", slug),
		logging.Int("attempts", w.slugAttempts),
		logging.String(logging.FieldErrorHint, "check the light tier models"),
		logging.String(logging.FieldImpact, "post url is derived from the title"),
	)
	return slug
}

// CleanSlug lowercases s, turns whitespace and underscores into hyphens,
// drops everything outside [a-z0-9-], collapses hyphen runs, and truncates
// to 50 characters.
func CleanSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastHyphen := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case r == '-' || r == '_' || unicode.IsSpace(r):
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := b.String()
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	return strings.Trim(slug, "-")
}

// ValidSlug reports whether s is a non-empty hyphen-separated slug.
func ValidSlug(s string) bool {
	return len(s) <= maxSlugLength && slugPattern.MatchString(s)
}

// foldASCII strips combining marks so accented Latin titles keep their letters.
func foldASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
