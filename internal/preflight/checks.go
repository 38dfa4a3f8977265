package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"curator/internal/config"
	"curator/internal/deps"
	"curator/internal/llm"
)

// Pinger is the slice of the dispatch service used for health checks.
type Pinger interface {
	Providers() []string
	Ping(ctx context.Context, name string) (llm.Response, error)
}

// CheckLLM pings every registered provider with its default model. Each call
// gets a 30-second budget.
func CheckLLM(ctx context.Context, pinger Pinger) []Result {
	names := pinger.Providers()
	if len(names) == 0 {
		return []Result{{Name: "LLM", Detail: "no provider has an API key"}}
	}
	results := make([]Result, 0, len(names))
	for _, name := range names {
		label := "LLM " + name
		checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		resp, err := pinger.Ping(checkCtx, name)
		cancel()
		if err != nil {
			results = append(results, Result{Name: label, Detail: summarizeLLMError(err)})
			continue
		}
		detail := "API reachable"
		if resp.Model != "" {
			detail = fmt.Sprintf("API reachable (%s)", resp.Model)
		}
		results = append(results, Result{Name: label, Passed: true, Detail: detail})
	}
	return results
}

// CheckPublishing reports which publishing backends are configured.
func CheckPublishing(cfg *config.Config) Result {
	const name = "Publishing"
	var backends []string
	if cfg.WordPressEnabled() {
		backends = append(backends, "wordpress")
	}
	if cfg.GhostEnabled() {
		backends = append(backends, "ghost")
	}
	if len(backends) == 0 {
		return Result{Name: name, Detail: "no backend configured (set [wordpress] or [ghost])"}
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(backends, ", ")}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries the media pipeline runs.
// Both the daemon and the CLI status command use this.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Requirements(cfg.Sources))
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	if llm.IsRateLimited(err) {
		return "rate limited (key valid, quota exhausted)"
	}
	return err.Error()
}
