package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"curator/internal/logging"
)

// Envelope is the JSON document published to NATS.
type Envelope struct {
	Event     Event          `json:"event"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type natsService struct {
	conn    *nats.Conn
	subject string
	owned   bool
	now     func() time.Time
}

// DialNATS connects to url and returns a sink publishing on subject.
func DialNATS(url, subject string, logger *slog.Logger) (Service, error) {
	conn, err := nats.Connect(url,
		nats.Name("curator"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(60),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", logging.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", logging.String("nats_url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	svc := NewNATS(conn, subject).(*natsService)
	svc.owned = true
	return svc, nil
}

// NewNATS returns a sink publishing on subject over an existing connection.
// The caller keeps ownership of conn.
func NewNATS(conn *nats.Conn, subject string) Service {
	if subject == "" {
		subject = "curator.events"
	}
	return &natsService{conn: conn, subject: subject, now: time.Now}
}

func (n *natsService) Publish(_ context.Context, event Event, payload Payload) error {
	rendered, ok := render(event, payload)
	if !ok {
		return nil
	}
	envelope := Envelope{
		Event:     event,
		Title:     rendered.title,
		Message:   rendered.body,
		Payload:   encodablePayload(payload),
		Timestamp: n.now().UTC(),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode nats event: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publish nats event: %w", err)
	}
	return nil
}

func (n *natsService) Close() error {
	if n.owned && n.conn != nil {
		return n.conn.Drain()
	}
	return nil
}

func encodablePayload(payload Payload) map[string]any {
	if len(payload) == 0 {
		return nil
	}
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		switch v := value.(type) {
		case time.Duration:
			out[key] = v.Seconds()
		case error:
			out[key] = v.Error()
		default:
			out[key] = v
		}
	}
	return out
}
