package llm

import "strings"

// Tier selects which ordered model list a text call walks.
type Tier int

const (
	TierHeavy Tier = iota
	TierLight
)

func (t Tier) String() string {
	if t == TierLight {
		return "light"
	}
	return "heavy"
}

// ParseTier maps "light" to TierLight and anything else to TierHeavy.
func ParseTier(value string) Tier {
	if strings.EqualFold(strings.TrimSpace(value), "light") {
		return TierLight
	}
	return TierHeavy
}

// Part is one element of a prompt: either text or a reference to a file the
// backend can fetch (an uploaded file URI or a public URL).
type Part struct {
	Text     string
	FileURI  string
	MIMEType string
}

// IsFile reports whether the part references a file instead of carrying text.
func (p Part) IsFile() bool { return p.FileURI != "" }

// Prompt is an ordered sequence of parts.
type Prompt struct {
	Parts []Part
}

// Text builds a single-part text prompt.
func Text(s string) Prompt {
	return Prompt{Parts: []Part{{Text: s}}}
}

// String joins the text parts with blank lines. File parts are skipped.
func (p Prompt) String() string {
	texts := make([]string, 0, len(p.Parts))
	for _, part := range p.Parts {
		if !part.IsFile() && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n\n")
}

// IsEmpty reports whether the prompt carries neither text nor files.
func (p Prompt) IsEmpty() bool {
	for _, part := range p.Parts {
		if part.IsFile() || strings.TrimSpace(part.Text) != "" {
			return false
		}
	}
	return true
}

// WithPrefix returns a copy of the prompt with prefix prepended to the first
// text part. A prompt without text parts gains a leading text part.
func (p Prompt) WithPrefix(prefix string) Prompt {
	parts := make([]Part, len(p.Parts))
	copy(parts, p.Parts)
	for i := range parts {
		if !parts[i].IsFile() {
			parts[i].Text = prefix + parts[i].Text
			return Prompt{Parts: parts}
		}
	}
	return Prompt{Parts: append([]Part{{Text: prefix}}, parts...)}
}

// Response is the uniform result of a generation call. Text is carried exactly
// as the backend produced it. Raw holds the decoded backend payload for
// diagnostics and is never inspected by dispatch logic.
type Response struct {
	Text     string
	Raw      any
	Provider string
	Model    string
}

// NewResponse wraps text and the backend payload into a Response.
func NewResponse(text string, raw any) Response {
	return Response{Text: text, Raw: raw}
}
