package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// AddChannel registers a channel URL. It reports false when the URL was
// already present.
func (s *Store) AddChannel(ctx context.Context, url string) (bool, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return false, errors.New("add channel: url is empty")
	}
	res, err := s.execWithRetry(ctx, `INSERT OR IGNORE INTO channels (url) VALUES (?)`, url)
	if err != nil {
		return false, fmt.Errorf("add channel: %w", err)
	}
	return rowsAffected(res), nil
}

// Channels lists registered channel URLs in insertion order.
func (s *Store) Channels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT url FROM channels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

// RemoveChannel deletes a channel. Seen video IDs are kept so a re-added
// channel does not republish old uploads.
func (s *Store) RemoveChannel(ctx context.Context, url string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM channels WHERE url = ?`, strings.TrimSpace(url))
	if err != nil {
		return false, fmt.Errorf("remove channel: %w", err)
	}
	return rowsAffected(res), nil
}

// SeenVideoIDs returns every video ID recorded across all channels.
func (s *Store) SeenVideoIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT video_id FROM videos`)
	if err != nil {
		return nil, fmt.Errorf("list seen videos: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		seen[id] = struct{}{}
	}
	return seen, rows.Err()
}

// SaveVideoIDs records ids as seen under channelURL, registering the channel
// when needed. Already recorded IDs are ignored.
func (s *Store) SaveVideoIDs(ctx context.Context, channelURL string, ids []string) error {
	ctx = ensureContext(ctx)
	channelURL = strings.TrimSpace(channelURL)
	if channelURL == "" {
		return errors.New("save video ids: channel url is empty")
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO channels (url) VALUES (?)`, channelURL); err != nil {
			return fmt.Errorf("save video ids: register channel: %w", err)
		}
		var channelID int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM channels WHERE url = ?`, channelURL).Scan(&channelID); err != nil {
			return fmt.Errorf("save video ids: lookup channel: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO videos (video_id, channel_id) VALUES (?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, id := range ids {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx, id, channelID); err != nil {
				return fmt.Errorf("save video ids: insert %s: %w", id, err)
			}
		}
		return tx.Commit()
	})
}
