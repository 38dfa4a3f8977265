package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RecordPost appends a publication log entry and returns its ID. A zero
// PublishedAt is stamped with the current time.
func (s *Store) RecordPost(ctx context.Context, post Post) (int64, error) {
	if strings.TrimSpace(post.SourceID) == "" {
		return 0, errors.New("record post: source id is empty")
	}
	if post.SourceKind == "" {
		return 0, errors.New("record post: source kind is empty")
	}
	published := s.timestamp()
	if !post.PublishedAt.IsZero() {
		published = post.PublishedAt.UTC().Format(time.RFC3339Nano)
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO posts (source_kind, source_id, title, url, backend, published_at) VALUES (?, ?, ?, ?, ?, ?)`,
		string(post.SourceKind), post.SourceID, nullableString(post.Title), nullableString(post.URL),
		nullableString(post.Backend), published,
	)
	if err != nil {
		return 0, fmt.Errorf("record post: %w", err)
	}
	return res.LastInsertId()
}

// RecentPosts returns up to limit posts, newest first. A non-positive limit
// returns every post.
func (s *Store) RecentPosts(ctx context.Context, limit int) ([]Post, error) {
	query := `SELECT id, source_kind, source_id, title, url, backend, published_at FROM posts ORDER BY published_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var (
			post      Post
			kind      string
			title     sql.NullString
			url       sql.NullString
			backend   sql.NullString
			published sql.NullString
		)
		if err := rows.Scan(&post.ID, &kind, &post.SourceID, &title, &url, &backend, &published); err != nil {
			return nil, err
		}
		post.SourceKind = SourceKind(kind)
		post.Title = title.String
		post.URL = url.String
		post.Backend = backend.String
		post.PublishedAt = parseTimestamp(published)
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// Stats counts the rows of each table.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	var stats Stats
	targets := []struct {
		table string
		dest  *int
	}{
		{"channels", &stats.Channels},
		{"videos", &stats.Videos},
		{"rss_feeds", &stats.Feeds},
		{"podcast_feeds", &stats.Podcasts},
		{"processed_articles", &stats.ProcessedArticles},
		{"processed_episodes", &stats.ProcessedEpisodes},
		{"subscribers", &stats.Subscribers},
		{"posts", &stats.Posts},
	}
	for _, target := range targets {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM `+target.table).Scan(target.dest); err != nil {
			return Stats{}, fmt.Errorf("count %s: %w", target.table, err)
		}
	}
	return stats, nil
}
