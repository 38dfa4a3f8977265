package pipeline

import (
	"context"
	"time"

	"curator/internal/content"
	"curator/internal/sources"
	"curator/internal/store"
)

// Store is the persistence surface a cycle uses.
type Store interface {
	Channels(ctx context.Context) ([]string, error)
	SeenVideoIDs(ctx context.Context) (map[string]struct{}, error)
	SaveVideoIDs(ctx context.Context, channelURL string, ids []string) error
	Feeds(ctx context.Context) ([]store.Feed, error)
	TouchFeed(ctx context.Context, id int64) error
	Podcasts(ctx context.Context) ([]store.Feed, error)
	TouchPodcast(ctx context.Context, id int64) error
	IsArticleProcessed(ctx context.Context, articleID string) (bool, error)
	SaveProcessedArticle(ctx context.Context, articleID, sourceURL, title string, feedID int64) error
	IsEpisodeProcessed(ctx context.Context, episodeID string) (bool, error)
	SaveProcessedEpisode(ctx context.Context, episodeID, sourceURL, title string, feedID int64) error
	RecordPost(ctx context.Context, post store.Post) (int64, error)
}

// Feeds reads channel uploads and feed entries.
type Feeds interface {
	LatestVideos(ctx context.Context, channelURL string, limit int) ([]sources.Video, error)
	FetchArticles(ctx context.Context, feedURL string) ([]sources.Entry, error)
	FetchEpisodes(ctx context.Context, feedURL string, cutoff time.Time) ([]sources.Episode, error)
}

// Extractor pulls readable text from an article page.
type Extractor interface {
	Extract(ctx context.Context, pageURL string) (sources.Article, error)
}

// Downloader saves a remote file to disk.
type Downloader interface {
	Download(ctx context.Context, fileURL, dest string) error
}

// AudioFetcher extracts the audio track of a video into workDir.
type AudioFetcher interface {
	FetchAudio(ctx context.Context, videoURL, workDir string) (title, path string, err error)
}

// Writer produces post text with the language model.
type Writer interface {
	ArticleFromAudio(ctx context.Context, title, path string) (string, string, error)
	SummarizeArticle(ctx context.Context, title, article string) (string, string, error)
	HumanizeContent(ctx context.Context, text string) string
	GenerateSlug(ctx context.Context, title, body string) string
	FindRelevantTags(ctx context.Context, title, body string, available []content.Tag) []content.Tag
}
