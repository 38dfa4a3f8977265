package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"curator/internal/logging"
	"curator/internal/sources"
)

const (
	helpText = "Welcome! Available commands:\n" +
		"/subscribe - Get updates\n" +
		"/unsubscribe - Stop updates\n" +
		"/add <url> - Add YouTube channel or RSS feed\n" +
		"/yt <url> - Summarize YouTube video"
	pollErrorBackoff = 5 * time.Second
)

// Updater is the Bot API surface the update loop needs.
type Updater interface {
	Sender
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error)
}

// Registry is the store surface the commands mutate.
type Registry interface {
	AddSubscriber(ctx context.Context, chatID int64) (bool, error)
	RemoveSubscriber(ctx context.Context, chatID int64) (bool, error)
	AddChannel(ctx context.Context, url string) (bool, error)
	AddFeed(ctx context.Context, url, name string) (bool, error)
}

// VideoProcessor publishes a single video and returns the post URL.
type VideoProcessor interface {
	ProcessVideoURL(ctx context.Context, videoURL string) (string, error)
}

// Bot dispatches chat commands.
type Bot struct {
	api         Updater
	registry    Registry
	videos      VideoProcessor
	logger      *slog.Logger
	pollTimeout int
	errBackoff  time.Duration
	wg          sync.WaitGroup
}

// BotOption customizes a Bot.
type BotOption func(*Bot)

// WithPollTimeout sets the getUpdates long-poll timeout in seconds.
func WithPollTimeout(seconds int) BotOption {
	return func(b *Bot) {
		if seconds > 0 {
			b.pollTimeout = seconds
		}
	}
}

// WithErrorBackoff sets the pause after a failed poll.
func WithErrorBackoff(d time.Duration) BotOption {
	return func(b *Bot) {
		b.errBackoff = d
	}
}

// NewBot builds a Bot. videos may be nil, in which case /yt is refused.
func NewBot(api Updater, registry Registry, videos VideoProcessor, logger *slog.Logger, opts ...BotOption) *Bot {
	b := &Bot{
		api:         api,
		registry:    registry,
		videos:      videos,
		logger:      logging.NewComponentLogger(logger, "telegram"),
		pollTimeout: defaultPollTimeout,
		errBackoff:  pollErrorBackoff,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run polls for updates until ctx is cancelled. Video requests run in the
// background so polling continues while they are processed; Run waits for
// them before returning.
func (b *Bot) Run(ctx context.Context) error {
	defer b.wg.Wait()
	b.logger.Info("telegram bot started", logging.Int("poll_timeout", b.pollTimeout))

	var offset int64
	for {
		if ctx.Err() != nil {
			return nil
		}
		updates, err := b.api.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			wait := b.errBackoff
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > wait {
				wait = apiErr.RetryAfter
			}
			b.logger.Warn("telegram poll failed", logging.Error(err), logging.Duration("retry_in", wait))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			continue
		}
		for _, update := range updates {
			offset = update.UpdateID + 1
			if update.Message == nil || strings.TrimSpace(update.Message.Text) == "" {
				continue
			}
			msg := *update.Message
			if command, _ := parseCommand(msg.Text); command == "yt" {
				b.wg.Add(1)
				go func() {
					defer b.wg.Done()
					b.Handle(ctx, msg)
				}()
				continue
			}
			b.Handle(ctx, msg)
		}
	}
}

// Handle executes one message synchronously.
func (b *Bot) Handle(ctx context.Context, msg Message) {
	command, args := parseCommand(msg.Text)
	logger := b.logger.With(logging.Int64("chat_id", msg.Chat.ID), logging.String("command", command))
	var reply string
	switch command {
	case "start", "help":
		reply = helpText
	case "subscribe":
		reply = b.subscribe(ctx, logger, msg.Chat.ID)
	case "unsubscribe":
		reply = b.unsubscribe(ctx, logger, msg.Chat.ID)
	case "add":
		reply = b.add(ctx, logger, args)
	case "yt":
		b.video(ctx, logger, msg.Chat.ID, args)
		return
	default:
		return
	}
	b.reply(ctx, logger, msg.Chat.ID, reply)
}

func (b *Bot) subscribe(ctx context.Context, logger *slog.Logger, chatID int64) string {
	if _, err := b.registry.AddSubscriber(ctx, chatID); err != nil {
		logger.Error("subscribe failed", logging.Error(err))
		return "Failed to subscribe. Please try again later."
	}
	return "You have subscribed to updates."
}

func (b *Bot) unsubscribe(ctx context.Context, logger *slog.Logger, chatID int64) string {
	if _, err := b.registry.RemoveSubscriber(ctx, chatID); err != nil {
		logger.Error("unsubscribe failed", logging.Error(err))
		return "Failed to unsubscribe. Please try again later."
	}
	return "You have unsubscribed from updates."
}

func (b *Bot) add(ctx context.Context, logger *slog.Logger, args []string) string {
	if len(args) == 0 {
		return "Please provide a URL after the /add command."
	}
	target := args[0]
	if !sources.IsValidURL(target) {
		return "Please provide a valid URL."
	}
	if sources.IsChannelURL(target) {
		added, err := b.registry.AddChannel(ctx, target)
		if err != nil {
			logger.Error("add channel failed", logging.String("url", target), logging.Error(err))
			return "Failed to add the URL. Please try again later."
		}
		if !added {
			return "This YouTube channel is already in the database."
		}
		logger.Info("channel added", logging.String("url", target))
		return "Successfully added YouTube channel: " + target
	}

	name := sources.WebsiteName(target)
	added, err := b.registry.AddFeed(ctx, target, name)
	if err != nil {
		logger.Error("add feed failed", logging.String("url", target), logging.Error(err))
		return "Failed to add the URL. Please try again later."
	}
	if !added {
		return "This RSS feed is already in the database."
	}
	logger.Info("feed added", logging.String("url", target), logging.String("name", name))
	return fmt.Sprintf("Successfully added RSS feed from %s: %s", name, target)
}

func (b *Bot) video(ctx context.Context, logger *slog.Logger, chatID int64, args []string) {
	if len(args) == 0 {
		b.reply(ctx, logger, chatID, "Please provide a YouTube URL after the /yt command.")
		return
	}
	target := args[0]
	if !sources.IsVideoURL(target) {
		b.reply(ctx, logger, chatID, "Please provide a valid YouTube video URL.")
		return
	}
	if b.videos == nil {
		b.reply(ctx, logger, chatID, "Video processing is not available.")
		return
	}
	b.reply(ctx, logger, chatID, "Processing video... This may take a few minutes.")

	url, err := b.videos.ProcessVideoURL(ctx, target)
	if err != nil {
		logger.Error("video request failed", logging.String("video_url", target), logging.Error(err))
		b.reply(ctx, logger, chatID, "Failed to process the video. Please try again later.")
		return
	}
	b.reply(ctx, logger, chatID, "Summary posted: "+url)
}

func (b *Bot) reply(ctx context.Context, logger *slog.Logger, chatID int64, text string) {
	if err := b.api.SendMessage(ctx, chatID, text); err != nil {
		logger.Warn("telegram reply failed", logging.Error(err))
	}
}

// parseCommand splits "/cmd@bot arg1 arg2" into "cmd" and its arguments.
// Non-command text yields an empty command.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	command := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(command, '@'); at >= 0 {
		command = command[:at]
	}
	return strings.ToLower(command), fields[1:]
}
