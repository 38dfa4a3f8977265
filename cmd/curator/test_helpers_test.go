package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"curator/internal/store"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	dbPath     string
}

// setupCLITestEnv writes a config under a temp HOME and clears the
// environment overlay so host credentials never leak into a test.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	for _, key := range []string{
		"GEMINI_API_KEY", "OPENROUTER_API_KEY", "LITELLM_API_KEY",
		"TELEGRAM_TOKEN", "WP_HOST", "WP_USER", "WP_PASS", "GHOST_URL", "GHOST_ADMIN_KEY",
	} {
		t.Setenv(key, "")
	}

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(home, ".config", "curator", "config.toml"),
		dbPath:     filepath.Join(base, "data", "curator.db"),
	}
	t.Setenv("DB_PATH", env.dbPath)

	content := "[paths]\n" +
		"work_dir = \"" + filepath.Join(base, "work") + "\"\n" +
		"log_dir = \"" + filepath.Join(base, "logs") + "\"\n" +
		"database = \"" + env.dbPath + "\"\n\n" +
		"[logging]\nlevel = \"error\"\n"
	if err := os.MkdirAll(filepath.Dir(env.configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// seed opens the test database, runs fn, and closes it again before the CLI
// touches the file.
func (e *cliTestEnv) seed(t *testing.T, fn func(context.Context, *store.Store) error) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(e.dbPath), 0o755); err != nil {
		t.Fatalf("mkdir data dir: %v", err)
	}
	st, err := store.OpenPath(e.dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	if err := fn(context.Background(), st); err != nil {
		t.Fatalf("seed store: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
