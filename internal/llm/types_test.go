package llm_test

import (
	"testing"

	"curator/internal/llm"
)

func TestResponseKeepsTextVerbatim(t *testing.T) {
	for _, text := range []string{"", "  padded \n", "Title\n\nBody"} {
		raw := map[string]any{"id": "x"}
		resp := llm.NewResponse(text, raw)
		if resp.Text != text {
			t.Fatalf("text changed: got %q want %q", resp.Text, text)
		}
		if resp.Raw == nil {
			t.Fatal("expected raw payload to be kept")
		}
	}
}

func TestPromptWithPrefix(t *testing.T) {
	prompt := llm.Prompt{Parts: []llm.Part{
		{FileURI: "files/abc", MIMEType: "audio/mpeg"},
		{Text: "describe"},
	}}
	prefixed := prompt.WithPrefix("[x] ")
	if prefixed.Parts[1].Text != "[x] describe" {
		t.Fatalf("unexpected prefixed text %q", prefixed.Parts[1].Text)
	}
	if prompt.Parts[1].Text != "describe" {
		t.Fatal("WithPrefix must not mutate the original prompt")
	}

	fileOnly := llm.Prompt{Parts: []llm.Part{{FileURI: "files/abc"}}}
	if got := fileOnly.WithPrefix("lead").String(); got != "lead" {
		t.Fatalf("expected leading text part, got %q", got)
	}
	if !(llm.Prompt{}).IsEmpty() || llm.Text("x").IsEmpty() {
		t.Fatal("unexpected IsEmpty result")
	}
}

func TestParseTier(t *testing.T) {
	if llm.ParseTier("LIGHT") != llm.TierLight || llm.ParseTier("") != llm.TierHeavy {
		t.Fatal("unexpected tier parsing")
	}
	if llm.TierLight.String() != "light" || llm.TierHeavy.String() != "heavy" {
		t.Fatal("unexpected tier names")
	}
}
