package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// IsArticleProcessed reports whether articleID has already been published.
func (s *Store) IsArticleProcessed(ctx context.Context, articleID string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM processed_articles WHERE article_id = ?`, articleID)
}

// SaveProcessedArticle records articleID as handled. feedID 0 means the
// article did not come from a registered feed. Saving twice is a no-op.
func (s *Store) SaveProcessedArticle(ctx context.Context, articleID, sourceURL, title string, feedID int64) error {
	return s.saveProcessed(ctx, "processed_articles", "article_id", articleID, sourceURL, title, feedID)
}

// IsEpisodeProcessed reports whether episodeID has already been published.
func (s *Store) IsEpisodeProcessed(ctx context.Context, episodeID string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM processed_episodes WHERE episode_id = ?`, episodeID)
}

// SaveProcessedEpisode records episodeID as handled. Saving twice is a no-op.
func (s *Store) SaveProcessedEpisode(ctx context.Context, episodeID, sourceURL, title string, feedID int64) error {
	return s.saveProcessed(ctx, "processed_episodes", "episode_id", episodeID, sourceURL, title, feedID)
}

func (s *Store) saveProcessed(ctx context.Context, table, keyColumn, key, sourceURL, title string, feedID int64) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("save %s: id is empty", table)
	}
	_, err := s.execWithRetry(ctx,
		`INSERT OR IGNORE INTO `+table+` (`+keyColumn+`, processed_date, source_url, title, feed_id) VALUES (?, ?, ?, ?, ?)`,
		key, s.timestamp(), nullableString(sourceURL), nullableString(title), nullableID(feedID),
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", table, err)
	}
	return nil
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ensureContext(ctx), query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
