package store

import "time"

// SourceKind identifies which pipeline produced a post.
type SourceKind string

const (
	SourceVideo   SourceKind = "video"
	SourceArticle SourceKind = "article"
	SourceEpisode SourceKind = "episode"
)

// Feed is a registered RSS or podcast feed.
type Feed struct {
	ID        int64
	URL       string
	Name      string
	LastCheck time.Time
}

// Checked reports whether the feed has been polled at least once.
func (f Feed) Checked() bool {
	return !f.LastCheck.IsZero()
}

// Post is one entry of the publication log.
type Post struct {
	ID          int64      `json:"id"`
	SourceKind  SourceKind `json:"source_kind"`
	SourceID    string     `json:"source_id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Backend     string     `json:"backend"`
	PublishedAt time.Time  `json:"published_at"`
}

// Stats summarizes table sizes for status reporting.
type Stats struct {
	Channels          int `json:"channels"`
	Videos            int `json:"videos"`
	Feeds             int `json:"feeds"`
	Podcasts          int `json:"podcasts"`
	ProcessedArticles int `json:"processed_articles"`
	ProcessedEpisodes int `json:"processed_episodes"`
	Subscribers       int `json:"subscribers"`
	Posts             int `json:"posts"`
}
