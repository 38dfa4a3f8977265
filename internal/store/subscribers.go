package store

import (
	"context"
	"fmt"
)

// AddSubscriber registers a Telegram chat for broadcasts. It reports false
// when the chat was already subscribed.
func (s *Store) AddSubscriber(ctx context.Context, chatID int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `INSERT OR IGNORE INTO subscribers (chat_id) VALUES (?)`, chatID)
	if err != nil {
		return false, fmt.Errorf("add subscriber: %w", err)
	}
	return rowsAffected(res), nil
}

// RemoveSubscriber unregisters a chat. It reports false when the chat was not subscribed.
func (s *Store) RemoveSubscriber(ctx context.Context, chatID int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM subscribers WHERE chat_id = ?`, chatID)
	if err != nil {
		return false, fmt.Errorf("remove subscriber: %w", err)
	}
	return rowsAffected(res), nil
}

// Subscribers lists subscribed chat IDs in ascending order.
func (s *Store) Subscribers(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT chat_id FROM subscribers ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
