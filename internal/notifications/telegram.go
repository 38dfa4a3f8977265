package notifications

import (
	"context"
	"fmt"
)

type telegramService struct {
	broadcaster Broadcaster
}

// NewTelegram returns a sink that broadcasts published posts to bot
// subscribers. Other events are ignored.
func NewTelegram(b Broadcaster) Service {
	return &telegramService{broadcaster: b}
}

func (t *telegramService) Publish(ctx context.Context, event Event, payload Payload) error {
	if event != EventPostPublished || t.broadcaster == nil {
		return nil
	}
	text := fmt.Sprintf("New post: %s\n%s", payload.String("title"), payload.String("url"))
	return t.broadcaster.Broadcast(ctx, text)
}

func (t *telegramService) Close() error { return nil }
