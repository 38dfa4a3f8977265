package content

import (
	"context"
	"fmt"
	"strings"

	"curator/internal/llm"
	"curator/internal/logging"
)

// reservedTag is applied by the publisher itself and never chosen by the model.
const reservedTag = "summary"

// Tag is a publishing taxonomy term.
type Tag struct {
	ID   int
	Name string
}

// FindRelevantTags asks the light tier which of available fit the article.
// The answer is limited to known tags; errors and "none" yield no tags.
func (w *Writer) FindRelevantTags(ctx context.Context, title, body string, available []Tag) []Tag {
	known := make(map[string]Tag, len(available))
	names := make([]string, 0, len(available))
	for _, tag := range available {
		key := strings.ToLower(strings.TrimSpace(tag.Name))
		if key == "" || key == reservedTag {
			continue
		}
		if _, dup := known[key]; dup {
			continue
		}
		known[key] = tag
		names = append(names, "- "+tag.Name)
	}
	if len(known) == 0 {
		return []Tag{}
	}

	prompt := fmt.Sprintf(tagsPrompt, title, truncate(body, maxPromptChars), strings.Join(names, "\n"))
	resp, err := w.gen.GenerateText(ctx, llm.Text(prompt), llm.WithTier(llm.TierLight))
	if err != nil {
		w.logger.Debug("tag selection failed", logging.Error(err))
		return []Tag{}
	}
	answer := strings.TrimSpace(resp.Text)
	if strings.EqualFold(strings.Trim(answer, `."'`), "none") {
		return []Tag{}
	}
	var chosen []string
	if err := llm.DecodeJSON(answer, &chosen); err != nil {
		w.logger.Debug("tag response not a json array",
			logging.Error(err),
			logging.String("response", llm.Snippet(answer)),
		)
		return []Tag{}
	}

	out := make([]Tag, 0, len(chosen))
	seen := make(map[string]bool, len(chosen))
	for _, name := range chosen {
		key := strings.ToLower(strings.TrimSpace(name))
		tag, ok := known[key]
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
	}
	return out
}
