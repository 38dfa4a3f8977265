package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type feedTable string

const (
	rssFeeds     feedTable = "rss_feeds"
	podcastFeeds feedTable = "podcast_feeds"
)

// AddFeed registers an RSS feed. It reports false when the URL was already present.
func (s *Store) AddFeed(ctx context.Context, url, name string) (bool, error) {
	return s.addFeed(ctx, rssFeeds, url, name)
}

// Feeds lists registered RSS feeds.
func (s *Store) Feeds(ctx context.Context) ([]Feed, error) {
	return s.listFeeds(ctx, rssFeeds)
}

// RemoveFeed deletes an RSS feed by URL.
func (s *Store) RemoveFeed(ctx context.Context, url string) (bool, error) {
	return s.removeFeed(ctx, rssFeeds, url)
}

// TouchFeed stamps an RSS feed's last check time with the current time.
func (s *Store) TouchFeed(ctx context.Context, id int64) error {
	return s.touchFeed(ctx, rssFeeds, id)
}

// AddPodcast registers a podcast feed. It reports false when the URL was already present.
func (s *Store) AddPodcast(ctx context.Context, url, name string) (bool, error) {
	return s.addFeed(ctx, podcastFeeds, url, name)
}

// Podcasts lists registered podcast feeds.
func (s *Store) Podcasts(ctx context.Context) ([]Feed, error) {
	return s.listFeeds(ctx, podcastFeeds)
}

// RemovePodcast deletes a podcast feed by URL.
func (s *Store) RemovePodcast(ctx context.Context, url string) (bool, error) {
	return s.removeFeed(ctx, podcastFeeds, url)
}

// TouchPodcast stamps a podcast feed's last check time with the current time.
func (s *Store) TouchPodcast(ctx context.Context, id int64) error {
	return s.touchFeed(ctx, podcastFeeds, id)
}

func (s *Store) addFeed(ctx context.Context, table feedTable, url, name string) (bool, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return false, fmt.Errorf("add %s: url is empty", table)
	}
	res, err := s.execWithRetry(ctx,
		`INSERT OR IGNORE INTO `+string(table)+` (url, name) VALUES (?, ?)`,
		url, nullableString(name),
	)
	if err != nil {
		return false, fmt.Errorf("add %s: %w", table, err)
	}
	return rowsAffected(res), nil
}

func (s *Store) listFeeds(ctx context.Context, table feedTable) ([]Feed, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, url, name, last_check FROM `+string(table)+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		var (
			feed      Feed
			name      sql.NullString
			lastCheck sql.NullString
		)
		if err := rows.Scan(&feed.ID, &feed.URL, &name, &lastCheck); err != nil {
			return nil, err
		}
		feed.Name = name.String
		feed.LastCheck = parseTimestamp(lastCheck)
		feeds = append(feeds, feed)
	}
	return feeds, rows.Err()
}

func (s *Store) removeFeed(ctx context.Context, table feedTable, url string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM `+string(table)+` WHERE url = ?`, strings.TrimSpace(url))
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", table, err)
	}
	return rowsAffected(res), nil
}

func (s *Store) touchFeed(ctx context.Context, table feedTable, id int64) error {
	res, err := s.execWithRetry(ctx, `UPDATE `+string(table)+` SET last_check = ? WHERE id = ?`, s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("touch %s: %w", table, err)
	}
	if !rowsAffected(res) {
		return fmt.Errorf("touch %s %d: %w", table, id, ErrNotFound)
	}
	return nil
}

// ErrNotFound reports that the addressed row does not exist.
var ErrNotFound = errors.New("not found")
