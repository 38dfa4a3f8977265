package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"curator/internal/config"
	"curator/internal/logging"
)

const userAgent = "Curator-Go/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventPostPublished  Event = "post_published"
	EventCycleCompleted Event = "cycle_completed"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries event-specific values. Keys per event:
//   - post_published: title, url, source
//   - cycle_completed: processed, failed, duration
//   - error: context, error
type Payload map[string]any

// Service publishes events to the configured sinks.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
	Close() error
}

// Broadcaster sends a text message to every bot subscriber.
type Broadcaster interface {
	Broadcast(ctx context.Context, text string) error
}

// Deps carries runtime collaborators for NewService.
type Deps struct {
	Logger      *slog.Logger
	Broadcaster Broadcaster
}

// NewService builds a notification service from cfg. Sinks that are not
// configured are skipped; a NATS server that cannot be reached is logged and
// skipped. With no sinks a noop implementation is returned.
func NewService(cfg *config.Config, deps Deps) Service {
	logger := logging.NewComponentLogger(deps.Logger, "notifications")
	var sinks []Service

	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		sinks = append(sinks, NewNtfy(topic, time.Duration(cfg.Notifications.RequestTimeout)*time.Second))
	}
	if url := strings.TrimSpace(cfg.Notifications.NATSURL); url != "" {
		sink, err := DialNATS(url, cfg.Notifications.NATSSubject, logger)
		if err != nil {
			logging.WarnWithContext(logger, "nats notifications disabled",
				"nats_connect_failed",
				logging.String("nats_url", url),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.nats_url and that the server is running"),
				logging.String(logging.FieldImpact, "events are not published to nats"),
			)
		} else {
			sinks = append(sinks, sink)
		}
	}
	if deps.Broadcaster != nil {
		sinks = append(sinks, NewTelegram(deps.Broadcaster))
	}

	switch len(sinks) {
	case 0:
		return noopService{}
	case 1:
		return sinks[0]
	default:
		return NewMulti(sinks...)
	}
}

type multiService struct {
	sinks []Service
}

// NewMulti fans each event out to every sink.
func NewMulti(sinks ...Service) Service {
	return &multiService{sinks: sinks}
}

func (m *multiService) Publish(ctx context.Context, event Event, payload Payload) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Publish(ctx, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiService) Close() error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
func (noopService) Close() error                                  { return nil }

// message is the human-readable rendering shared by ntfy and NATS.
type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

func render(event Event, payload Payload) (message, bool) {
	switch event {
	case EventPostPublished:
		title := payload.String("title")
		body := fmt.Sprintf("📝 New post: %s", title)
		if url := payload.String("url"); url != "" {
			body += "\n" + url
		}
		return message{
			title: "Curator - Post Published",
			body:  body,
			tags:  []string{"curator", "post", "published"},
		}, true
	case EventCycleCompleted:
		processed := payload.Int("processed")
		failed := payload.Int("failed")
		durationText := formatDuration(payload.Duration("duration"))
		if failed == 0 {
			return message{
				title: "Curator - Cycle Complete",
				body:  fmt.Sprintf("Cycle complete: %d posts published in %s", processed, durationText),
				tags:  []string{"curator", "cycle", "completed"},
			}, true
		}
		return message{
			title: "Curator - Cycle Complete (with errors)",
			body:  fmt.Sprintf("Cycle complete: %d succeeded, %d failed in %s", processed, failed, durationText),
			tags:  []string{"curator", "cycle", "completed"},
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := payload.String("context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if detail := payload.String("error"); detail != "" {
			builder.WriteString(detail)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "Curator - Error",
			body:     builder.String(),
			tags:     []string{"curator", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Curator - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"curator", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

// String returns the trimmed string form of key.
func (p Payload) String(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Int returns key as an int, or 0.
func (p Payload) Int(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Duration returns key as a duration, or 0.
func (p Payload) Duration(key string) time.Duration {
	switch v := p[key].(type) {
	case time.Duration:
		return v
	case float64:
		return time.Duration(v * float64(time.Second))
	default:
		return 0
	}
}
