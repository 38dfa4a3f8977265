package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"curator/internal/config"
	"curator/internal/services"
)

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient(config.Telegram{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestClientGetUpdatesAndSend(t *testing.T) {
	var sent []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var params map[string]any
		_ = json.NewDecoder(r.Body).Decode(&params)
		switch r.URL.Path {
		case "/botTOKEN/getUpdates":
			if params["offset"] != 7.0 || params["timeout"] != 1.0 {
				t.Errorf("unexpected getUpdates params %v", params)
			}
			_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"message_id":1,"chat":{"id":42,"type":"private"},"text":"/start"}},{"update_id":8}]}`))
		case "/botTOKEN/sendMessage":
			sent = append(sent, params)
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":2}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client, err := NewClient(config.Telegram{Token: "TOKEN", APIBaseURL: server.URL + "/"}, WithSendRate(1000))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	updates, err := client.GetUpdates(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("GetUpdates: %v", err)
	}
	if len(updates) != 2 || updates[0].Message == nil || updates[0].Message.Chat.ID != 42 || updates[1].Message != nil {
		t.Fatalf("unexpected updates %+v", updates)
	}
	if err := client.SendMessage(context.Background(), 42, "hi"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if len(sent) != 1 || sent[0]["chat_id"] != 42.0 || sent[0]["text"] != "hi" {
		t.Fatalf("unexpected sends %v", sent)
	}
}

func TestClientAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":3}}`))
	}))
	defer server.Close()

	client, _ := NewClient(config.Telegram{Token: "TOKEN", APIBaseURL: server.URL})
	err := client.SendMessage(context.Background(), 1, "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != 429 || apiErr.RetryAfter != 3*time.Second || apiErr.Method != "sendMessage" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestClientRedactsTokenFromTransportErrors(t *testing.T) {
	client, _ := NewClient(config.Telegram{Token: "SECRET123", APIBaseURL: "http://127.0.0.1:1"})
	err := client.SendMessage(context.Background(), 1, "x")
	if err == nil {
		t.Fatal("expected transport error")
	}
	if strings.Contains(err.Error(), "SECRET123") {
		t.Fatalf("token leaked in error: %v", err)
	}
}

func TestClientSendRespectsContext(t *testing.T) {
	client, _ := NewClient(config.Telegram{Token: "T", APIBaseURL: "http://127.0.0.1:1", SendRate: 0.001})
	// Drain the single burst token.
	_ = client.limiter.Allow()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := client.SendMessage(ctx, 1, "x"); err == nil {
		t.Fatal("expected limiter wait to fail once the context expires")
	}
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		text    string
		command string
		args    int
	}{
		{"/start", "start", 0},
		{"/add@curator_bot https://x.com/feed", "add", 1},
		{"  /YT   https://youtu.be/abc  ", "yt", 1},
		{"hello there", "", 0},
		{"", "", 0},
	}
	for _, tc := range cases {
		command, args := parseCommand(tc.text)
		if command != tc.command || len(args) != tc.args {
			t.Fatalf("parseCommand(%q) = %q %v", tc.text, command, args)
		}
	}
}
