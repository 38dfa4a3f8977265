package sources_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"curator/internal/logging"
	"curator/internal/sources"
)

const articleFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Blog</title>
<item><guid>post-1</guid><title>First</title><link>https://blog.example/1</link><pubDate>Mon, 03 Mar 2025 10:00:00 GMT</pubDate></item>
<item><title>No GUID</title><link>https://blog.example/2</link></item>
</channel></rss>`

const podcastFeed = `<?xml version="1.0"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/"><channel><title>Pod</title>
<item><guid>ep-new</guid><title>New</title><link>https://pod.example/new</link><pubDate>Mon, 03 Mar 2025 10:00:00 GMT</pubDate>
 <enclosure url="https://cdn.example/new.mp3?x=1" type="audio/mpeg" length="1"/></item>
<item><guid>ep-old</guid><title>Old</title><link>https://pod.example/old</link><pubDate>Tue, 03 Dec 2024 10:00:00 GMT</pubDate>
 <enclosure url="https://cdn.example/old.mp3" type="audio/mpeg" length="1"/></item>
<item><guid>ep-bad</guid><title>Bad date</title><pubDate>sometime last week</pubDate>
 <enclosure url="https://cdn.example/bad.mp3" type="audio/mpeg" length="1"/></item>
<item><guid>ep-media</guid><title>Media</title><pubDate>Wed, 05 Mar 2025 10:00:00 GMT</pubDate>
 <media:content url="https://cdn.example/media.mp3" type="audio/mpeg"/></item>
</channel></rss>`

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchArticles(t *testing.T) {
	server := serveFeed(t, articleFeed)
	entries, err := sources.NewClient().FetchArticles(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchArticles: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "post-1" || entries[0].Published.IsZero() {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].ID != "https://blog.example/2" {
		t.Fatalf("expected link as id, got %+v", entries[1])
	}
}

func TestFetchEpisodesAppliesCutoff(t *testing.T) {
	server := serveFeed(t, podcastFeed)
	client := sources.NewClient(sources.WithLogger(logging.NewNop()))
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	episodes, err := client.FetchEpisodes(context.Background(), server.URL, cutoff)
	if err != nil {
		t.Fatalf("FetchEpisodes: %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("expected 2 episodes, got %+v", episodes)
	}
	if episodes[0].ID != "ep-new" || episodes[0].AudioURL != "https://cdn.example/new.mp3?x=1" {
		t.Fatalf("unexpected first episode %+v", episodes[0])
	}
	if episodes[1].ID != "ep-media" || episodes[1].AudioURL != "https://cdn.example/media.mp3" {
		t.Fatalf("unexpected media episode %+v", episodes[1])
	}
}

func TestExtractAudioURLOrder(t *testing.T) {
	item := &gofeed.Item{
		Enclosures: []*gofeed.Enclosure{{URL: "https://cdn.example/cover.jpg", Type: "image/jpeg"}},
		Extensions: ext.Extensions{"media": {"content": []ext.Extension{{Attrs: map[string]string{"url": "https://cdn.example/a.MP3"}}}}},
		Links:      []string{"https://cdn.example/b.mp3"},
	}
	if got := sources.ExtractAudioURL(item); got != "https://cdn.example/a.MP3" {
		t.Fatalf("expected media:content url, got %q", got)
	}
	item.Extensions = nil
	if got := sources.ExtractAudioURL(item); got != "https://cdn.example/b.mp3" {
		t.Fatalf("expected link url, got %q", got)
	}
	if got := sources.ExtractAudioURL(&gofeed.Item{Link: "https://pod.example/page"}); got != "" {
		t.Fatalf("expected no audio, got %q", got)
	}
}
