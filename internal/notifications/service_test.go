package notifications_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"curator/internal/config"
	"curator/internal/logging"
	"curator/internal/notifications"
)

func TestNewServiceReturnsNoopWhenNothingConfigured(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg, notifications.Deps{})
	if err := svc.Publish(context.Background(), notifications.EventPostPublished, notifications.Payload{"title": "Example"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("close noop: %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "post published",
			event: notifications.EventPostPublished,
			payload: notifications.Payload{
				"title": "AI 晶片大戰",
				"url":   "https://blog.example.com/ai-chips/",
			},
			expectTitle:   "Curator - Post Published",
			expectMessage: "📝 New post: AI 晶片大戰\nhttps://blog.example.com/ai-chips/",
			expectTags:    "curator,post,published",
		},
		{
			name:  "cycle completed",
			event: notifications.EventCycleCompleted,
			payload: notifications.Payload{
				"processed": 3,
				"failed":    0,
				"duration":  90*time.Second + 400*time.Millisecond,
			},
			expectTitle:   "Curator - Cycle Complete",
			expectMessage: "Cycle complete: 3 posts published in 1m30s",
			expectTags:    "curator,cycle,completed",
		},
		{
			name:  "cycle completed with errors",
			event: notifications.EventCycleCompleted,
			payload: notifications.Payload{
				"processed": 2,
				"failed":    1,
			},
			expectTitle:   "Curator - Cycle Complete (with errors)",
			expectMessage: "Cycle complete: 2 succeeded, 1 failed in 0s",
			expectTags:    "curator,cycle,completed",
		},
		{
			name:  "error",
			event: notifications.EventError,
			payload: notifications.Payload{
				"context": "videos",
				"error":   errors.New("all models exhausted"),
			},
			expectTitle:    "Curator - Error",
			expectMessage:  "❌ Error with videos: all models exhausted",
			expectTags:     "curator,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "Curator - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "curator,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg, notifications.Deps{})
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic closed", http.StatusForbidden)
	}))
	defer server.Close()

	svc := notifications.NewNtfy(server.URL, time.Second)
	err := svc.Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}

func TestNtfyServiceIgnoresUnknownEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for unknown event: %s", r.URL.String())
	}))
	defer server.Close()

	svc := notifications.NewNtfy(server.URL, time.Second)
	if err := svc.Publish(context.Background(), notifications.Event("mystery"), nil); err != nil {
		t.Fatalf("expected no error for unknown event, got %v", err)
	}
}

type recordingBroadcaster struct {
	texts []string
	err   error
}

func (r *recordingBroadcaster) Broadcast(_ context.Context, text string) error {
	r.texts = append(r.texts, text)
	return r.err
}

func TestTelegramSinkOnlyBroadcastsPosts(t *testing.T) {
	b := &recordingBroadcaster{}
	svc := notifications.NewTelegram(b)
	ctx := context.Background()

	if err := svc.Publish(ctx, notifications.EventCycleCompleted, notifications.Payload{"processed": 1}); err != nil {
		t.Fatalf("cycle event: %v", err)
	}
	if err := svc.Publish(ctx, notifications.EventPostPublished, notifications.Payload{"title": "Title", "url": "https://blog/p"}); err != nil {
		t.Fatalf("post event: %v", err)
	}
	if len(b.texts) != 1 || b.texts[0] != "New post: Title\nhttps://blog/p" {
		t.Fatalf("unexpected broadcasts: %q", b.texts)
	}
}

func TestMultiJoinsErrors(t *testing.T) {
	failing := &recordingBroadcaster{err: errors.New("telegram down")}
	ok := &recordingBroadcaster{}
	svc := notifications.NewMulti(notifications.NewTelegram(failing), notifications.NewTelegram(ok))

	err := svc.Publish(context.Background(), notifications.EventPostPublished, notifications.Payload{"title": "t"})
	if err == nil || !strings.Contains(err.Error(), "telegram down") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(ok.texts) != 1 {
		t.Fatal("expected remaining sinks to still receive the event")
	}
}

func startNATS(t *testing.T) *server.Server {
	t.Helper()
	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		t.Fatalf("create nats server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatal("nats server failed to start")
	}
	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns
}

func TestNATSSinkPublishesEnvelope(t *testing.T) {
	ns := startNATS(t)

	sub, err := nats.Connect(ns.ClientURL())
	if err != nil {
		t.Fatalf("connect subscriber: %v", err)
	}
	defer sub.Close()
	received := make(chan *nats.Msg, 1)
	if _, err := sub.ChanSubscribe("curator.test", received); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := sub.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	cfg := config.Default()
	cfg.Notifications.NATSURL = ns.ClientURL()
	cfg.Notifications.NATSSubject = "curator.test"
	svc := notifications.NewService(&cfg, notifications.Deps{Logger: logging.NewNop()})
	defer svc.Close()

	payload := notifications.Payload{"processed": 4, "failed": 1, "duration": 2 * time.Second}
	if err := svc.Publish(context.Background(), notifications.EventCycleCompleted, payload); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-received:
		var env notifications.Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		if env.Event != notifications.EventCycleCompleted {
			t.Fatalf("unexpected event %q", env.Event)
		}
		if env.Message != "Cycle complete: 4 succeeded, 1 failed in 2s" {
			t.Fatalf("unexpected message %q", env.Message)
		}
		if env.Payload["duration"] != 2.0 || env.Payload["processed"] != 4.0 {
			t.Fatalf("unexpected payload %v", env.Payload)
		}
		if env.Timestamp.IsZero() {
			t.Fatal("expected timestamp")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for nats event")
	}
}

func TestNewServiceSkipsUnreachableNATS(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NATSURL = "nats://127.0.0.1:1"
	svc := notifications.NewService(&cfg, notifications.Deps{Logger: logging.NewNop()})
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("expected noop after failed dial, got %v", err)
	}
}
