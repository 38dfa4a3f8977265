package llm_test

import (
	"testing"

	"curator/internal/llm"
)

func TestDecodeJSONHandlesFencesAndProse(t *testing.T) {
	var tags []string
	if err := llm.DecodeJSON("```json\n[\"go\", \"ai\"]\n```", &tags); err != nil {
		t.Fatalf("DecodeJSON fenced: %v", err)
	}
	if len(tags) != 2 || tags[0] != "go" {
		t.Fatalf("unexpected tags %v", tags)
	}

	var payload struct {
		OK bool `json:"ok"`
	}
	if err := llm.DecodeJSON("Sure! Here you go: {\"ok\": true} Thanks.", &payload); err != nil {
		t.Fatalf("DecodeJSON prose: %v", err)
	}
	if !payload.OK {
		t.Fatal("expected ok=true")
	}

	if err := llm.DecodeJSON("   ", &payload); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
