package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"curator/internal/config"
	"curator/internal/content"
	"curator/internal/llm"
	"curator/internal/logging"
	"curator/internal/media"
	"curator/internal/notifications"
	"curator/internal/pipeline"
	"curator/internal/publish"
	"curator/internal/services/providers"
	"curator/internal/sources"
	"curator/internal/store"
	"curator/internal/telegram"
)

// Runtime is the wired object graph shared by the daemon and the one-shot
// CLI commands.
type Runtime struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     *store.Store
	LLM       *llm.Service
	Writer    *content.Writer
	Publisher *publish.Multi
	Notifier  notifications.Service
	Processor *pipeline.Processor
	Telegram  *telegram.Client
	Bot       *telegram.Bot
}

// Build opens the store and wires every collaborator from cfg. The caller
// owns the returned Runtime and must Close it.
func Build(cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	rt := &Runtime{Config: cfg, Logger: logger, Store: st}

	rt.LLM, err = providers.Build(cfg, logger)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("build llm service: %w", err)
	}
	rt.Writer = content.NewWriter(rt.LLM,
		content.WithLogger(logger),
		content.WithSlugAttempts(cfg.LLM.SlugAttempts),
	)
	rt.Publisher, err = publish.NewFromConfig(cfg, logger)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	var broadcaster notifications.Broadcaster
	if cfg.Telegram.Token != "" {
		rt.Telegram, err = telegram.NewClient(cfg.Telegram)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("build telegram client: %w", err)
		}
		broadcaster = telegram.NewBroadcaster(rt.Telegram, st, logger)
	}
	rt.Notifier = notifications.NewService(cfg, notifications.Deps{Logger: logger, Broadcaster: broadcaster})

	cutoff, err := cfg.PodcastCutoff()
	if err != nil {
		rt.Close()
		return nil, err
	}
	client := sources.NewClientFromConfig(cfg.Sources, logger)
	rt.Processor, err = pipeline.New(pipeline.Deps{
		Store:      st,
		Feeds:      client,
		Extractor:  sources.NewArticleExtractor(client, cfg.Sources.MaxArticleChars),
		Downloader: sources.NewDownloader(client, cfg.Sources.DownloadAttempts, time.Duration(cfg.Sources.DownloadRetryDelay)*time.Second),
		Audio:      media.NewAudioFetcher(cfg.Sources, media.WithLogger(logger)),
		Writer:     rt.Writer,
		Publisher:  rt.Publisher,
		Notifier:   rt.Notifier,
		Logger:     logger,
	}, pipeline.Settings{
		WorkDir:       cfg.Paths.WorkDir,
		RecentVideos:  cfg.Sources.YouTubeRecentLimit,
		PodcastCutoff: cutoff,
		Humanize:      cfg.LLM.Humanize,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}

	if rt.Telegram != nil {
		rt.Bot = telegram.NewBot(rt.Telegram, st, rt.Processor, logger,
			telegram.WithPollTimeout(rt.Telegram.PollTimeout()))
	}
	return rt, nil
}

// RunCycle runs one cycle in the foreground.
func (rt *Runtime) RunCycle(ctx context.Context) (pipeline.CycleSummary, error) {
	return rt.Processor.RunCycle(ctx)
}

// Close releases the notifier and the store.
func (rt *Runtime) Close() error {
	if rt == nil {
		return nil
	}
	var errs []error
	if rt.Notifier != nil {
		errs = append(errs, rt.Notifier.Close())
	}
	if rt.Store != nil {
		errs = append(errs, rt.Store.Close())
	}
	return errors.Join(errs...)
}
