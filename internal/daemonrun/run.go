package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"curator/internal/config"
	"curator/internal/daemon"
	"curator/internal/logging"
	"curator/internal/preflight"
)

// Run starts the curator daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logDependencySnapshot(logger, cfg)

	rt, err := Build(cfg, logger)
	if err != nil {
		logger.Error("build runtime", logging.Error(err))
		return err
	}
	defer rt.Close()

	deps := daemon.Deps{Store: rt.Store, Cycler: rt.Processor, Logger: logger}
	if rt.Bot != nil {
		deps.Bot = rt.Bot
	}
	d, err := daemon.New(cfg, deps)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "stop the other curator instance or remove a stale lock at "+cfg.LockPath()),
		)
		return err
	}
	defer d.Stop()

	<-signalCtx.Done()
	logger.Info("curator daemon shutting down")
	return nil
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("gemini_key_present", strings.TrimSpace(cfg.LLM.Gemini.APIKey) != ""),
		logging.Bool("openrouter_key_present", strings.TrimSpace(cfg.LLM.OpenRouter.APIKey) != ""),
		logging.Bool("litellm_key_present", strings.TrimSpace(cfg.LLM.LiteLLM.APIKey) != ""),
		logging.String("default_provider", cfg.LLM.DefaultProvider),
		logging.Bool("wordpress_enabled", cfg.WordPressEnabled()),
		logging.Bool("ghost_enabled", cfg.GhostEnabled()),
		logging.Bool("telegram_enabled", strings.TrimSpace(cfg.Telegram.Token) != ""),
		logging.Bool("ntfy_enabled", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Bool("nats_enabled", strings.TrimSpace(cfg.Notifications.NATSURL) != ""),
	}
	for _, status := range preflight.CheckSystemDeps(cfg) {
		key := strings.ToLower(strings.ReplaceAll(status.Name, "-", ""))
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
