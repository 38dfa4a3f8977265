package daemonrun

import (
	"context"
	"testing"

	"curator/internal/config"
	"curator/internal/logging"
	"curator/internal/testsupport"
)

func TestBuildWithoutOptionalServices(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	rt, err := Build(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rt.Close()

	if rt.Processor == nil || rt.Store == nil || rt.Writer == nil {
		t.Fatal("expected core collaborators wired")
	}
	if rt.Telegram != nil || rt.Bot != nil {
		t.Fatal("expected no telegram client without a token")
	}
	if rt.Publisher.Len() != 0 {
		t.Fatalf("expected no publishers, got %d", rt.Publisher.Len())
	}
	if len(rt.LLM.Providers()) != 0 {
		t.Fatalf("expected empty provider registry, got %v", rt.LLM.Providers())
	}

	summary, err := rt.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle on an empty store: %v", err)
	}
	if summary.Processed() != 0 || summary.Failed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestBuildWiresTelegramAndPublishers(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithGeminiKey("test-key", "http://127.0.0.1:1"),
		testsupport.WithConfig(func(cfg *config.Config) {
			cfg.Telegram.Token = "123:abc"
			cfg.WordPress.URL = "https://wp.example.com"
			cfg.WordPress.User = "editor"
			cfg.WordPress.Password = "pw"
			cfg.Ghost.URL = "https://ghost.example.com"
			cfg.Ghost.AdminKey = "6489e2:a1b2c3d4"
		}),
	)
	rt, err := Build(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rt.Close()

	if rt.Telegram == nil || rt.Bot == nil {
		t.Fatal("expected telegram client and bot")
	}
	if rt.Publisher.Len() != 2 || rt.Publisher.Name() != "wordpress+ghost" {
		t.Fatalf("unexpected publishers %q (%d)", rt.Publisher.Name(), rt.Publisher.Len())
	}
	if got := rt.LLM.Providers(); len(got) != 1 || got[0] != "gemini" {
		t.Fatalf("unexpected providers %v", got)
	}
}

func TestBuildRejectsBadGhostKey(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithConfig(func(cfg *config.Config) {
		cfg.Ghost.URL = "https://ghost.example.com"
		cfg.Ghost.AdminKey = "not-a-key"
	}))
	if rt, err := Build(cfg, logging.NewNop()); err == nil {
		rt.Close()
		t.Fatal("expected error for malformed ghost key")
	}
}
