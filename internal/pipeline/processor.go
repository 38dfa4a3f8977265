package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"curator/internal/content"
	"curator/internal/logging"
	"curator/internal/media"
	"curator/internal/notifications"
	"curator/internal/publish"
	"curator/internal/services"
	"curator/internal/sources"
	"curator/internal/store"
	"curator/internal/textutil"
)

// ErrCycleRunning is returned when a cycle is requested while one is active.
var ErrCycleRunning = errors.New("cycle already running")

// Deps carries the collaborators of a Processor.
type Deps struct {
	Store      Store
	Feeds      Feeds
	Extractor  Extractor
	Downloader Downloader
	Audio      AudioFetcher
	Writer     Writer
	Publisher  publish.Publisher
	Notifier   notifications.Service
	Logger     *slog.Logger
}

// Settings are the cycle knobs taken from configuration.
type Settings struct {
	WorkDir       string
	RecentVideos  int
	PodcastCutoff time.Time
	// Humanize rewrites each generated body before it is formatted.
	Humanize bool
}

// CycleSummary reports the outcome of one cycle.
type CycleSummary struct {
	RequestID string        `json:"request_id"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration"`
	Videos    int           `json:"videos"`
	Articles  int           `json:"articles"`
	Episodes  int           `json:"episodes"`
	Failed    int           `json:"failed"`
}

// Processed is the number of posts published during the cycle.
func (s CycleSummary) Processed() int {
	return s.Videos + s.Articles + s.Episodes
}

// Processor runs cycles and single-video requests.
type Processor struct {
	deps     Deps
	settings Settings
	logger   *slog.Logger
	now      func() time.Time
	cycleMu  sync.Mutex
}

// New builds a Processor. Store, Feeds, Writer and Publisher are required.
func New(deps Deps, settings Settings) (*Processor, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("pipeline: store is required")
	case deps.Feeds == nil:
		return nil, errors.New("pipeline: feeds reader is required")
	case deps.Writer == nil:
		return nil, errors.New("pipeline: writer is required")
	case deps.Publisher == nil:
		return nil, errors.New("pipeline: publisher is required")
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewMulti()
	}
	if settings.RecentVideos <= 0 {
		settings.RecentVideos = 5
	}
	return &Processor{
		deps:     deps,
		settings: settings,
		logger:   logging.NewComponentLogger(deps.Logger, "pipeline"),
		now:      time.Now,
	}, nil
}

// RunCycle processes videos, then articles, then podcasts. Item failures are
// counted in the summary; the returned error is set only when the cycle could
// not run or ctx was cancelled.
func (p *Processor) RunCycle(ctx context.Context) (CycleSummary, error) {
	if !p.cycleMu.TryLock() {
		return CycleSummary{}, ErrCycleRunning
	}
	defer p.cycleMu.Unlock()

	summary := CycleSummary{RequestID: uuid.NewString(), Started: p.now()}
	ctx = services.WithRequestID(ctx, summary.RequestID)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("cycle started", logging.String(logging.FieldEventType, "cycle_start"))

	stages := []struct {
		name string
		run  func(context.Context, *CycleSummary) error
	}{
		{"videos", p.ProcessVideos},
		{"articles", p.ProcessArticles},
		{"podcasts", p.ProcessPodcasts},
	}
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			summary.Duration = p.now().Sub(summary.Started)
			return summary, err
		}
		stageCtx := services.WithStage(ctx, stage.name)
		if err := stage.run(stageCtx, &summary); err != nil {
			if ctx.Err() != nil {
				summary.Duration = p.now().Sub(summary.Started)
				return summary, ctx.Err()
			}
			logging.ErrorWithContext(logging.WithContext(stageCtx, p.logger), "stage failed", "stage_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "remaining items of this stage wait for the next cycle"),
			)
			p.notify(stageCtx, notifications.EventError, notifications.Payload{"context": stage.name, "error": err})
		}
	}

	summary.Duration = p.now().Sub(summary.Started)
	logger.Info("cycle completed",
		logging.String(logging.FieldEventType, "cycle_complete"),
		logging.Int("videos", summary.Videos),
		logging.Int("articles", summary.Articles),
		logging.Int("episodes", summary.Episodes),
		logging.Int("failed", summary.Failed),
		logging.Duration("duration", summary.Duration),
	)
	p.notify(ctx, notifications.EventCycleCompleted, notifications.Payload{
		"processed": summary.Processed(),
		"failed":    summary.Failed,
		"duration":  summary.Duration,
	})
	return summary, nil
}

// ProcessVideos publishes uploads not seen before from every channel. New IDs
// are recorded as seen before processing, so a failed video is not retried.
func (p *Processor) ProcessVideos(ctx context.Context, summary *CycleSummary) error {
	channels, err := p.deps.Store.Channels(ctx)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}
	seen, err := p.deps.Store.SeenVideoIDs(ctx)
	if err != nil {
		return fmt.Errorf("load seen videos: %w", err)
	}

	for _, channel := range channels {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger := logging.WithContext(ctx, p.logger).With(logging.String("channel", channel))
		videos, err := p.deps.Feeds.LatestVideos(ctx, channel, p.settings.RecentVideos)
		if err != nil {
			logger.Warn("channel check failed", logging.Error(err))
			summary.Failed++
			continue
		}
		var fresh []sources.Video
		for _, video := range videos {
			if _, ok := seen[video.ID]; ok {
				continue
			}
			seen[video.ID] = struct{}{}
			fresh = append(fresh, video)
		}
		if len(fresh) == 0 {
			logger.Info("no new videos")
			continue
		}
		ids := make([]string, 0, len(fresh))
		for _, video := range fresh {
			ids = append(ids, video.ID)
		}
		if err := p.deps.Store.SaveVideoIDs(ctx, channel, ids); err != nil {
			return fmt.Errorf("save video ids for %s: %w", channel, err)
		}
		logger.Info("new videos found", logging.Int("count", len(fresh)))

		for _, video := range fresh {
			videoURL := sources.ShortVideoURL(video.ID)
			if _, err := p.publishVideo(ctx, videoURL, channel); err != nil {
				p.itemFailed(ctx, store.SourceVideo, videoURL, err, summary)
				continue
			}
			summary.Videos++
		}
	}
	return nil
}

// ProcessVideoURL publishes a single video on demand and returns the post URL.
func (p *Processor) ProcessVideoURL(ctx context.Context, videoURL string) (string, error) {
	id := sources.ExtractVideoID(videoURL)
	if id == "" {
		return "", services.Wrap(services.ErrValidation, "videos", "single", "not a YouTube video URL: "+videoURL, nil)
	}
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	return p.publishVideo(services.WithStage(ctx, "videos"), sources.ShortVideoURL(id), "")
}

func (p *Processor) publishVideo(ctx context.Context, videoURL, channel string) (string, error) {
	if p.deps.Audio == nil {
		return "", services.Wrap(services.ErrConfiguration, "videos", "fetch audio", "audio fetcher unavailable", nil)
	}
	ctx = services.WithSource(ctx, string(store.SourceVideo), videoURL)
	workDir, cleanup, err := media.NewWorkDir(p.settings.WorkDir)
	if err != nil {
		return "", err
	}
	defer cleanup()

	title, audioPath, err := p.deps.Audio.FetchAudio(ctx, videoURL, workDir)
	if err != nil {
		return "", err
	}
	postTitle, article, err := p.deps.Writer.ArticleFromAudio(ctx, title, audioPath)
	if err != nil {
		return "", fmt.Errorf("generate article: %w", err)
	}
	return p.publish(ctx, item{
		kind:       store.SourceVideo,
		sourceID:   sources.ExtractVideoID(videoURL),
		title:      firstNonEmpty(postTitle, title),
		body:       article,
		videoURL:   videoURL,
		sourceName: channel,
	})
}

// ProcessArticles summarizes unprocessed entries of every RSS feed.
func (p *Processor) ProcessArticles(ctx context.Context, summary *CycleSummary) error {
	if p.deps.Extractor == nil {
		return nil
	}
	feeds, err := p.deps.Store.Feeds(ctx)
	if err != nil {
		return fmt.Errorf("list feeds: %w", err)
	}
	for _, feed := range feeds {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger := logging.WithContext(ctx, p.logger).With(logging.String("feed", feed.URL))
		entries, err := p.deps.Feeds.FetchArticles(ctx, feed.URL)
		if err != nil {
			logger.Warn("feed fetch failed", logging.Error(err))
			summary.Failed++
			continue
		}
		for _, entry := range entries {
			done, err := p.deps.Store.IsArticleProcessed(ctx, entry.ID)
			if err != nil {
				return fmt.Errorf("check article %s: %w", entry.ID, err)
			}
			if done {
				continue
			}
			if err := p.publishArticle(ctx, feed, entry); err != nil {
				p.itemFailed(ctx, store.SourceArticle, entry.Link, err, summary)
				continue
			}
			summary.Articles++
		}
		if err := p.deps.Store.TouchFeed(ctx, feed.ID); err != nil {
			logger.Warn("feed check time not saved", logging.Error(err))
		}
	}
	return nil
}

func (p *Processor) publishArticle(ctx context.Context, feed store.Feed, entry sources.Entry) error {
	ctx = services.WithSource(ctx, string(store.SourceArticle), entry.Link)
	article, err := p.deps.Extractor.Extract(ctx, entry.Link)
	if err != nil {
		return err
	}
	postTitle, body, err := p.deps.Writer.SummarizeArticle(ctx, firstNonEmpty(entry.Title, article.Title), article.Text)
	if err != nil {
		return fmt.Errorf("summarize article: %w", err)
	}
	if _, err := p.publish(ctx, item{
		kind:       store.SourceArticle,
		sourceID:   entry.ID,
		title:      firstNonEmpty(postTitle, entry.Title, article.Title),
		body:       body,
		sourceURL:  entry.Link,
		sourceName: feed.Name,
	}); err != nil {
		return err
	}
	return p.deps.Store.SaveProcessedArticle(ctx, entry.ID, entry.Link, entry.Title, feed.ID)
}

// ProcessPodcasts publishes unprocessed episodes released on or after the
// configured cutoff.
func (p *Processor) ProcessPodcasts(ctx context.Context, summary *CycleSummary) error {
	if p.deps.Downloader == nil {
		return nil
	}
	podcasts, err := p.deps.Store.Podcasts(ctx)
	if err != nil {
		return fmt.Errorf("list podcasts: %w", err)
	}
	for _, feed := range podcasts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger := logging.WithContext(ctx, p.logger).With(logging.String("podcast", feed.URL))
		episodes, err := p.deps.Feeds.FetchEpisodes(ctx, feed.URL, p.settings.PodcastCutoff)
		if err != nil {
			logger.Warn("podcast fetch failed", logging.Error(err))
			summary.Failed++
			continue
		}
		for _, episode := range episodes {
			done, err := p.deps.Store.IsEpisodeProcessed(ctx, episode.ID)
			if err != nil {
				return fmt.Errorf("check episode %s: %w", episode.ID, err)
			}
			if done {
				continue
			}
			if episode.AudioURL == "" {
				logger.Info("episode has no audio; skipping", logging.String("episode", episode.Title))
				continue
			}
			if err := p.publishEpisode(ctx, feed, episode); err != nil {
				p.itemFailed(ctx, store.SourceEpisode, episode.Link, err, summary)
				continue
			}
			summary.Episodes++
		}
		if err := p.deps.Store.TouchPodcast(ctx, feed.ID); err != nil {
			logger.Warn("podcast check time not saved", logging.Error(err))
		}
	}
	return nil
}

func (p *Processor) publishEpisode(ctx context.Context, feed store.Feed, episode sources.Episode) error {
	ctx = services.WithSource(ctx, string(store.SourceEpisode), firstNonEmpty(episode.Link, episode.AudioURL))
	workDir, cleanup, err := media.NewWorkDir(p.settings.WorkDir)
	if err != nil {
		return err
	}
	defer cleanup()

	name := textutil.SanitizeFileName(episode.Title)
	if name == "" {
		name = "episode"
	}
	audioPath := filepath.Join(workDir, name+".mp3")
	if err := p.deps.Downloader.Download(ctx, episode.AudioURL, audioPath); err != nil {
		return err
	}
	postTitle, article, err := p.deps.Writer.ArticleFromAudio(ctx, episode.Title, audioPath)
	if err != nil {
		return fmt.Errorf("generate article: %w", err)
	}
	if _, err := p.publish(ctx, item{
		kind:       store.SourceEpisode,
		sourceID:   episode.ID,
		title:      firstNonEmpty(postTitle, episode.Title),
		body:       article,
		sourceURL:  episode.Link,
		sourceName: feed.Name,
	}); err != nil {
		return err
	}
	return p.deps.Store.SaveProcessedEpisode(ctx, episode.ID, episode.Link, episode.Title, feed.ID)
}

type item struct {
	kind       store.SourceKind
	sourceID   string
	title      string
	body       string
	videoURL   string
	sourceURL  string
	sourceName string
}

// publish runs the shared publish step and returns the post URL.
func (p *Processor) publish(ctx context.Context, it item) (string, error) {
	logger := logging.WithContext(ctx, p.logger)
	if p.settings.Humanize {
		it.body = p.deps.Writer.HumanizeContent(ctx, it.body)
	}
	html := content.FormatHTML(it.body)
	slug := p.deps.Writer.GenerateSlug(ctx, it.title, it.body)

	var tags []content.Tag
	if source, ok := p.deps.Publisher.(publish.TagSource); ok {
		available, err := source.AvailableTags(ctx)
		if err != nil {
			logger.Warn("tag list unavailable; publishing without tags", logging.Error(err))
		} else if len(available) > 0 {
			tags = p.deps.Writer.FindRelevantTags(ctx, it.title, it.body, available)
		}
	}

	post := publish.Decorate(publish.Post{
		Title:      it.title,
		HTML:       html,
		Slug:       slug,
		VideoURL:   it.videoURL,
		SourceURL:  it.sourceURL,
		SourceName: it.sourceName,
		Tags:       tags,
	})
	url, err := p.deps.Publisher.Publish(ctx, post)
	if err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}

	if _, err := p.deps.Store.RecordPost(ctx, store.Post{
		SourceKind:  it.kind,
		SourceID:    it.sourceID,
		Title:       it.title,
		URL:         url,
		Backend:     p.deps.Publisher.Name(),
		PublishedAt: p.now(),
	}); err != nil {
		logger.Warn("publication log not updated", logging.Error(err))
	}
	logger.Info("post published",
		logging.String(logging.FieldEventType, "item_published"),
		logging.String("title", it.title),
		logging.String("url", url),
	)
	p.notify(ctx, notifications.EventPostPublished, notifications.Payload{
		"title":  it.title,
		"url":    url,
		"source": firstNonEmpty(it.videoURL, it.sourceURL),
	})
	return url, nil
}

func (p *Processor) itemFailed(ctx context.Context, kind store.SourceKind, url string, err error, summary *CycleSummary) {
	summary.Failed++
	logger := logging.WithContext(services.WithSource(ctx, string(kind), url), p.logger)
	logger.Error("item failed",
		logging.String(logging.FieldEventType, "item_failed"),
		logging.Bool("retryable", services.IsRetryable(err)),
		logging.Error(err),
	)
}

func (p *Processor) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := p.deps.Notifier.Publish(ctx, event, payload); err != nil {
		logging.WithContext(ctx, p.logger).Warn("notification failed",
			logging.String("event", string(event)),
			logging.Error(err),
		)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
