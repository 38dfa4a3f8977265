package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"curator/internal/logging"
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeAPI struct {
	mu       sync.Mutex
	batches  [][]Update
	pollErrs []error
	sent     []sentMessage
	sendErr  map[int64]error
	offsets  []int64
	drained  chan struct{}
}

func (f *fakeAPI) GetUpdates(ctx context.Context, offset int64, _ int) ([]Update, error) {
	f.mu.Lock()
	f.offsets = append(f.offsets, offset)
	if len(f.pollErrs) > 0 {
		err := f.pollErrs[0]
		f.pollErrs = f.pollErrs[1:]
		f.mu.Unlock()
		return nil, err
	}
	if len(f.batches) > 0 {
		batch := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return batch, nil
	}
	f.mu.Unlock()
	if f.drained != nil {
		select {
		case <-f.drained:
		default:
			close(f.drained)
		}
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeAPI) SendMessage(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID, text})
	if err := f.sendErr[chatID]; err != nil {
		return err
	}
	return nil
}

func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.text)
	}
	return out
}

type fakeRegistry struct {
	subscribers map[int64]bool
	channels    map[string]bool
	feeds       map[string]string
	err         error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{subscribers: map[int64]bool{}, channels: map[string]bool{}, feeds: map[string]string{}}
}

func (r *fakeRegistry) AddSubscriber(_ context.Context, id int64) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	added := !r.subscribers[id]
	r.subscribers[id] = true
	return added, nil
}

func (r *fakeRegistry) RemoveSubscriber(_ context.Context, id int64) (bool, error) {
	removed := r.subscribers[id]
	delete(r.subscribers, id)
	return removed, r.err
}

func (r *fakeRegistry) AddChannel(_ context.Context, url string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	added := !r.channels[url]
	r.channels[url] = true
	return added, nil
}

func (r *fakeRegistry) AddFeed(_ context.Context, url, name string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	_, exists := r.feeds[url]
	r.feeds[url] = name
	return !exists, nil
}

func (r *fakeRegistry) Subscribers(context.Context) ([]int64, error) {
	if r.err != nil {
		return nil, r.err
	}
	ids := make([]int64, 0, len(r.subscribers))
	for id := range r.subscribers {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeVideos struct {
	url   string
	err   error
	calls []string
}

func (v *fakeVideos) ProcessVideoURL(_ context.Context, videoURL string) (string, error) {
	v.calls = append(v.calls, videoURL)
	return v.url, v.err
}

func message(chatID int64, text string) Message {
	return Message{Chat: Chat{ID: chatID}, Text: text}
}

func TestBotSubscribeAndAdd(t *testing.T) {
	api := &fakeAPI{}
	registry := newFakeRegistry()
	bot := NewBot(api, registry, nil, logging.NewNop())
	ctx := context.Background()

	bot.Handle(ctx, message(5, "/start"))
	bot.Handle(ctx, message(5, "/subscribe"))
	bot.Handle(ctx, message(5, "/add https://www.youtube.com/@SomeChannel"))
	bot.Handle(ctx, message(5, "/add https://www.youtube.com/@SomeChannel"))
	bot.Handle(ctx, message(5, "/add https://www.example.com/feed.xml"))
	bot.Handle(ctx, message(5, "/add https://www.example.com/feed.xml"))
	bot.Handle(ctx, message(5, "/add not-a-url"))
	bot.Handle(ctx, message(5, "/add"))
	bot.Handle(ctx, message(5, "just chatting"))
	bot.Handle(ctx, message(5, "/unsubscribe"))

	want := []string{
		helpText,
		"You have subscribed to updates.",
		"Successfully added YouTube channel: https://www.youtube.com/@SomeChannel",
		"This YouTube channel is already in the database.",
		"Successfully added RSS feed from Example: https://www.example.com/feed.xml",
		"This RSS feed is already in the database.",
		"Please provide a valid URL.",
		"Please provide a URL after the /add command.",
		"You have unsubscribed from updates.",
	}
	got := api.texts()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected replies:\n got %q\nwant %q", got, want)
	}
	if registry.feeds["https://www.example.com/feed.xml"] != "Example" {
		t.Fatalf("expected feed stored under website name, got %v", registry.feeds)
	}
	if len(registry.subscribers) != 0 {
		t.Fatalf("expected unsubscribed chat, got %v", registry.subscribers)
	}
}

func TestBotAddReportsStoreFailure(t *testing.T) {
	api := &fakeAPI{}
	registry := newFakeRegistry()
	registry.err = errors.New("disk full")
	bot := NewBot(api, registry, nil, logging.NewNop())

	bot.Handle(context.Background(), message(1, "/add https://www.youtube.com/@x"))
	if got := api.texts(); len(got) != 1 || got[0] != "Failed to add the URL. Please try again later." {
		t.Fatalf("unexpected replies %q", got)
	}
}

func TestBotVideoCommand(t *testing.T) {
	api := &fakeAPI{}
	videos := &fakeVideos{url: "https://blog.example.com/post/"}
	bot := NewBot(api, newFakeRegistry(), videos, logging.NewNop())
	ctx := context.Background()

	bot.Handle(ctx, message(9, "/yt"))
	bot.Handle(ctx, message(9, "/yt https://example.com/watch"))
	bot.Handle(ctx, message(9, "/yt https://youtu.be/abc123"))

	want := []string{
		"Please provide a YouTube URL after the /yt command.",
		"Please provide a valid YouTube video URL.",
		"Processing video... This may take a few minutes.",
		"Summary posted: https://blog.example.com/post/",
	}
	if got := api.texts(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected replies:\n got %q\nwant %q", got, want)
	}
	if len(videos.calls) != 1 || videos.calls[0] != "https://youtu.be/abc123" {
		t.Fatalf("unexpected processor calls %v", videos.calls)
	}

	videos.err = errors.New("boom")
	bot.Handle(ctx, message(9, "/yt https://youtu.be/abc123"))
	got := api.texts()
	if got[len(got)-1] != "Failed to process the video. Please try again later." {
		t.Fatalf("expected failure reply, got %q", got[len(got)-1])
	}
}

func TestBotRunAdvancesOffsetAndBacksOff(t *testing.T) {
	api := &fakeAPI{
		pollErrs: []error{errors.New("network down")},
		batches: [][]Update{
			{{UpdateID: 10, Message: &Message{Chat: Chat{ID: 1}, Text: "/start"}}, {UpdateID: 11}},
			{{UpdateID: 12, Message: &Message{Chat: Chat{ID: 1}, Text: "/subscribe"}}},
		},
		drained: make(chan struct{}),
	}
	registry := newFakeRegistry()
	bot := NewBot(api, registry, nil, logging.NewNop(), WithErrorBackoff(time.Millisecond), WithPollTimeout(1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	select {
	case <-api.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("bot did not consume updates")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}

	api.mu.Lock()
	offsets := append([]int64(nil), api.offsets...)
	api.mu.Unlock()
	want := []int64{0, 0, 12, 13}
	if len(offsets) != len(want) {
		t.Fatalf("unexpected offsets %v", offsets)
	}
	for i := range want {
		if offsets[i] != want[i] {
			t.Fatalf("unexpected offsets %v", offsets)
		}
	}
	if !registry.subscribers[1] {
		t.Fatal("expected subscribe command to run")
	}
}

func TestBroadcasterContinuesPastFailedChat(t *testing.T) {
	api := &fakeAPI{sendErr: map[int64]error{2: errors.New("blocked by user")}}
	registry := newFakeRegistry()
	for _, id := range []int64{1, 2, 3} {
		registry.subscribers[id] = true
	}
	b := NewBroadcaster(api, registry, logging.NewNop())

	err := b.Broadcast(context.Background(), "New post: t\nu")
	if err == nil || !strings.Contains(err.Error(), "blocked by user") {
		t.Fatalf("expected per-chat error, got %v", err)
	}
	if len(api.sent) != 3 {
		t.Fatalf("expected every subscriber attempted, got %d", len(api.sent))
	}
}

type flakyLister struct {
	failures int
	calls    int
}

func (f *flakyLister) Subscribers(context.Context) ([]int64, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("database is locked")
	}
	return []int64{7}, nil
}

func TestBroadcasterRetriesSubscriberLookup(t *testing.T) {
	api := &fakeAPI{}
	lister := &flakyLister{failures: 2}
	b := NewBroadcaster(api, lister, logging.NewNop()).WithRetryDelay(time.Millisecond)

	if err := b.Broadcast(context.Background(), "hello"); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if lister.calls != 3 || len(api.sent) != 1 {
		t.Fatalf("unexpected calls=%d sent=%d", lister.calls, len(api.sent))
	}

	lister = &flakyLister{failures: 5}
	b = NewBroadcaster(api, lister, logging.NewNop()).WithRetryDelay(time.Millisecond)
	if err := b.Broadcast(context.Background(), "hello"); err == nil {
		t.Fatal("expected lookup failure after three attempts")
	}
	if lister.calls != 3 {
		t.Fatalf("expected three lookups, got %d", lister.calls)
	}
}
