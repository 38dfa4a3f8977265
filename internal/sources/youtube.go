package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// YouTubeFeedURL is the channel upload feed endpoint.
	YouTubeFeedURL     = "https://www.youtube.com/feeds/videos.xml"
	defaultRecentLimit = 5
)

var (
	channelPattern = regexp.MustCompile(`youtube\.com/(?:@[\w.-]+|channel/[\w-]+|c/[\w-]+)`)
	videoPattern   = regexp.MustCompile(`(?:youtube\.com/watch\?(?:.*&)?v=|youtu\.be/|youtube\.com/live/|youtube\.com/shorts/)([A-Za-z0-9_-]+)`)
	channelIDPath  = regexp.MustCompile(`/channel/(UC[\w-]+)`)
)

// Video is a channel upload.
type Video struct {
	ID        string
	Title     string
	URL       string
	Published time.Time
}

// IsChannelURL reports whether raw points at a YouTube channel.
func IsChannelURL(raw string) bool {
	return channelPattern.MatchString(raw)
}

// IsVideoURL reports whether raw points at a single YouTube video.
func IsVideoURL(raw string) bool {
	return ExtractVideoID(raw) != ""
}

// ExtractVideoID returns the video ID from a watch, youtu.be, live, or
// shorts URL, or "" when raw is not a video URL.
func ExtractVideoID(raw string) string {
	match := videoPattern.FindStringSubmatch(raw)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

// ShortVideoURL returns the canonical short link for a video ID.
func ShortVideoURL(id string) string {
	return "https://youtu.be/" + id
}

// ChannelHandle returns the "@handle" segment of a channel URL, or "".
func ChannelHandle(raw string) string {
	trimmed := strings.TrimRight(raw, "/")
	if parsed, err := url.Parse(trimmed); err == nil && parsed.Path != "" {
		trimmed = strings.TrimRight(parsed.Path, "/")
	}
	idx := strings.LastIndex(trimmed, "/")
	last := trimmed[idx+1:]
	if !strings.Contains(last, "@") {
		return ""
	}
	return last
}

// ResolveChannelFeed returns the upload feed URL for a channel. Channel ID
// URLs map directly; handle and custom URLs are resolved from the channel page.
func (c *Client) ResolveChannelFeed(ctx context.Context, channelURL string) (string, error) {
	if match := channelIDPath.FindStringSubmatch(channelURL); len(match) == 2 {
		return channelFeedURL(match[1]), nil
	}
	page, err := c.get(ctx, channelURL)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse channel page: %w", err)
	}
	if href, ok := doc.Find(`link[rel="alternate"][type="application/rss+xml"]`).First().Attr("href"); ok && href != "" {
		return resolveRef(channelURL, href), nil
	}
	if id, ok := doc.Find(`meta[itemprop="identifier"], meta[itemprop="channelId"]`).First().Attr("content"); ok && id != "" {
		return channelFeedURL(id), nil
	}
	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		if match := channelIDPath.FindStringSubmatch(href); len(match) == 2 {
			return channelFeedURL(match[1]), nil
		}
	}
	return "", fmt.Errorf("no feed found for channel %s", channelURL)
}

// LatestVideos returns up to limit of the channel's newest uploads, newest
// first. A non-positive limit means the default of five.
func (c *Client) LatestVideos(ctx context.Context, channelURL string, limit int) ([]Video, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	feedURL, err := c.ResolveChannelFeed(ctx, channelURL)
	if err != nil {
		return nil, err
	}
	feed, err := c.parseFeed(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	videos := make([]Video, 0, limit)
	for _, item := range feed.Items {
		if len(videos) == limit {
			break
		}
		id := ""
		if values := item.Extensions["yt"]["videoId"]; len(values) > 0 {
			id = strings.TrimSpace(values[0].Value)
		}
		if id == "" {
			id = ExtractVideoID(item.Link)
		}
		if id == "" {
			continue
		}
		video := Video{ID: id, Title: item.Title, URL: ShortVideoURL(id)}
		if item.PublishedParsed != nil {
			video.Published = *item.PublishedParsed
		}
		videos = append(videos, video)
	}
	return videos, nil
}

func channelFeedURL(channelID string) string {
	return YouTubeFeedURL + "?channel_id=" + url.QueryEscape(channelID)
}

func resolveRef(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
