package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"curator/internal/logging"
)

const (
	broadcastAttempts = 3
	broadcastDelay    = 5 * time.Second
)

// Sender delivers one message to one chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// SubscriberLister lists the chats that receive broadcasts.
type SubscriberLister interface {
	Subscribers(ctx context.Context) ([]int64, error)
}

// Broadcaster sends text to every subscriber.
type Broadcaster struct {
	sender Sender
	subs   SubscriberLister
	logger *slog.Logger
	delay  time.Duration
}

// NewBroadcaster builds a Broadcaster.
func NewBroadcaster(sender Sender, subs SubscriberLister, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		sender: sender,
		subs:   subs,
		logger: logging.NewComponentLogger(logger, "telegram"),
		delay:  broadcastDelay,
	}
}

// WithRetryDelay overrides the wait between subscriber lookups.
func (b *Broadcaster) WithRetryDelay(d time.Duration) *Broadcaster {
	b.delay = d
	return b
}

// Broadcast sends text to each subscriber. A failed chat is logged and does
// not stop the rest; the joined per-chat errors are returned. The subscriber
// lookup is retried before giving up.
func (b *Broadcaster) Broadcast(ctx context.Context, text string) error {
	subscribers, err := backoff.Retry(ctx, func() ([]int64, error) {
		ids, err := b.subs.Subscribers(ctx)
		if err != nil {
			b.logger.Warn("subscriber lookup failed", logging.Error(err))
		}
		return ids, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(b.delay)),
		backoff.WithMaxTries(broadcastAttempts),
	)
	if err != nil {
		return fmt.Errorf("load subscribers: %w", err)
	}

	var errs []error
	sent := 0
	for _, chatID := range subscribers {
		if err := b.sender.SendMessage(ctx, chatID, text); err != nil {
			b.logger.Error("broadcast to chat failed",
				logging.Int64("chat_id", chatID),
				logging.Error(err),
			)
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		sent++
	}
	b.logger.Info("broadcast sent",
		logging.Int("subscribers", len(subscribers)),
		logging.Int("delivered", sent),
	)
	return errors.Join(errs...)
}
