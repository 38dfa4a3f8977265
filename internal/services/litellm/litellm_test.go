package litellm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"curator/internal/config"
	"curator/internal/llm"
	"curator/internal/services"
	"curator/internal/services/litellm"
)

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := litellm.New(config.Provider{APIKey: "key", Model: "m"}, "")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestAudioIsSentInline(t *testing.T) {
	var raw []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		raw, _ = json.Marshal(payload)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"summary"}}]}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	audio := filepath.Join(dir, "episode.wav")
	video := filepath.Join(dir, "episode.mp4")
	for _, path := range []string{audio, video} {
		if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	provider, err := litellm.New(config.Provider{APIKey: "key", Model: "proxy-model", BaseURL: server.URL}, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := provider.GenerateWithMedia(context.Background(), "", llm.Text("summarize"), audio)
	if err != nil || resp.Text != "summary" {
		t.Fatalf("unexpected result %+v %v", resp, err)
	}
	if !strings.Contains(string(raw), `"input_audio"`) || !strings.Contains(string(raw), `"format":"wav"`) {
		t.Fatalf("expected input_audio part, got %s", raw)
	}

	if _, err := provider.GenerateWithMedia(context.Background(), "", llm.Text("summarize"), video); !errors.Is(err, llm.ErrUnsupportedMedia) {
		t.Fatalf("expected video to be unsupported, got %v", err)
	}
}
