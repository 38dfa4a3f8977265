package sources

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"curator/internal/logging"
)

const audioMPEG = "audio/mpeg"

// Entry is a feed item.
type Entry struct {
	ID        string
	Title     string
	Link      string
	Published time.Time
}

// Episode is a podcast feed item with its audio enclosure.
type Episode struct {
	Entry
	AudioURL string
}

// FetchArticles returns every entry of the RSS or Atom feed at feedURL.
func (c *Client) FetchArticles(ctx context.Context, feedURL string) ([]Entry, error) {
	feed, err := c.parseFeed(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		entry := entryFromItem(item)
		if entry.ID == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// FetchEpisodes returns the podcast episodes at feedURL published on or after
// cutoff. A zero cutoff keeps everything. Items whose published date is
// present but unparseable are skipped.
func (c *Client) FetchEpisodes(ctx context.Context, feedURL string, cutoff time.Time) ([]Episode, error) {
	feed, err := c.parseFeed(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, c.logger)
	episodes := make([]Episode, 0, len(feed.Items))
	for _, item := range feed.Items {
		entry := entryFromItem(item)
		if entry.ID == "" {
			continue
		}
		if strings.TrimSpace(item.Published) != "" && item.PublishedParsed == nil {
			logger.Warn("skipping episode with unparseable publish date",
				logging.String("title", item.Title),
				logging.String("published", item.Published),
				logging.String(logging.FieldEventType, "podcast_date_unparseable"),
				logging.String(logging.FieldErrorHint, "feed publishes a non-standard pubDate"),
				logging.String(logging.FieldImpact, "episode is not processed"),
			)
			continue
		}
		if !cutoff.IsZero() && !entry.Published.IsZero() && entry.Published.Before(cutoff) {
			logger.Debug("skipping episode before cutoff",
				logging.String("title", item.Title),
				logging.String("published", entry.Published.Format(time.DateOnly)),
			)
			continue
		}
		episodes = append(episodes, Episode{Entry: entry, AudioURL: ExtractAudioURL(item)})
	}
	return episodes, nil
}

func entryFromItem(item *gofeed.Item) Entry {
	entry := Entry{
		ID:    strings.TrimSpace(item.GUID),
		Title: strings.TrimSpace(item.Title),
		Link:  strings.TrimSpace(item.Link),
	}
	if entry.ID == "" {
		entry.ID = entry.Link
	}
	if item.PublishedParsed != nil {
		entry.Published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		entry.Published = *item.UpdatedParsed
	}
	return entry
}

// ExtractAudioURL finds the MP3 audio of a podcast item. Enclosures are
// checked first, then media:content, then plain links. It returns "" when
// the item carries no MP3.
func ExtractAudioURL(item *gofeed.Item) string {
	if item == nil {
		return ""
	}
	for _, enclosure := range item.Enclosures {
		if enclosure == nil {
			continue
		}
		if isMP3(enclosure.Type, enclosure.URL) {
			return enclosure.URL
		}
	}
	for _, media := range item.Extensions["media"]["content"] {
		if u := media.Attrs["url"]; isMP3(media.Attrs["type"], u) {
			return u
		}
	}
	links := append([]string{item.Link}, item.Links...)
	for _, link := range links {
		if isMP3("", link) {
			return link
		}
	}
	return ""
}

func isMP3(mimeType, link string) bool {
	if link == "" {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(mimeType), audioMPEG) {
		return true
	}
	path := link
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		path = path[:idx]
	}
	return strings.HasSuffix(strings.ToLower(path), ".mp3")
}
