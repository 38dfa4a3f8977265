package llm_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"curator/internal/llm"
)

type call struct {
	method string
	model  string
	prompt string
	media  string
}

type fakeProvider struct {
	name         string
	defaultModel string

	mu    sync.Mutex
	calls []call

	text  func(model string, prompt llm.Prompt) (llm.Response, error)
	media func(model string, prompt llm.Prompt, path string) (llm.Response, error)
}

func (f *fakeProvider) Name() string         { return f.name }
func (f *fakeProvider) DefaultModel() string { return f.defaultModel }

func (f *fakeProvider) GenerateText(_ context.Context, model string, prompt llm.Prompt) (llm.Response, error) {
	f.record(call{method: "text", model: model, prompt: prompt.String()})
	if f.text == nil {
		return llm.NewResponse("ok-"+f.name, nil), nil
	}
	return f.text(model, prompt)
}

func (f *fakeProvider) GenerateWithMedia(_ context.Context, model string, prompt llm.Prompt, path string) (llm.Response, error) {
	f.record(call{method: "media", model: model, prompt: prompt.String(), media: path})
	if f.media == nil {
		return llm.NewResponse("media-"+f.name, nil), nil
	}
	return f.media(model, prompt, path)
}

func (f *fakeProvider) IsRateLimited(err error) bool { return llm.IsRateLimited(err) }

func (f *fakeProvider) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeProvider) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func newService(t *testing.T, providers []llm.Provider, opts ...llm.ServiceOption) (*llm.Service, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	svc, err := llm.NewService(providers, append([]llm.ServiceOption{llm.WithLogger(logger)}, opts...)...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, &buf
}

func TestGenerateTextFallsBackOnRateLimit(t *testing.T) {
	alpha := &fakeProvider{name: "alpha", defaultModel: "alpha-default"}
	alpha.text = func(model string, _ llm.Prompt) (llm.Response, error) {
		if model == "m1" {
			return llm.Response{}, errors.New("429 too many requests")
		}
		return llm.NewResponse("ok-"+model, nil), nil
	}
	beta := &fakeProvider{name: "beta"}
	svc, logs := newService(t, []llm.Provider{alpha, beta},
		llm.WithDefaultProvider("alpha"),
		llm.WithTiers([]string{"m1", "m2"}, nil),
	)

	resp, err := svc.GenerateText(context.Background(), llm.Text("hello"), llm.WithTier(llm.TierHeavy))
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if resp.Text != "ok-m2" {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if resp.Model != "m2" || resp.Provider != "alpha" {
		t.Fatalf("unexpected attribution %s/%s", resp.Provider, resp.Model)
	}
	calls := alpha.Calls()
	if len(calls) != 2 || calls[0].model != "m1" || calls[1].model != "m2" {
		t.Fatalf("unexpected call sequence %+v", calls)
	}
	if len(beta.Calls()) != 0 {
		t.Fatal("text fallback must stay within the provider")
	}
	if !strings.Contains(logs.String(), "trying next candidate") {
		t.Fatalf("expected fallback transition to be logged, got %s", logs.String())
	}
}

func TestGenerateTextNoProviders(t *testing.T) {
	svc, _ := newService(t, nil)
	if _, err := svc.GenerateText(context.Background(), llm.Text("hi")); !errors.Is(err, llm.ErrNoProviderAvailable) {
		t.Fatalf("expected ErrNoProviderAvailable, got %v", err)
	}
	if _, err := svc.GenerateWithMedia(context.Background(), llm.Text("hi"), "clip.mp3"); !errors.Is(err, llm.ErrNoProviderAvailable) {
		t.Fatalf("expected ErrNoProviderAvailable for media, got %v", err)
	}
	if svc.DefaultProvider() != "" {
		t.Fatalf("expected empty default provider, got %q", svc.DefaultProvider())
	}
}

func TestGenerateTextSubstitutesUnknownProvider(t *testing.T) {
	alpha := &fakeProvider{name: "alpha"}
	svc, logs := newService(t, []llm.Provider{alpha})

	resp, err := svc.GenerateText(context.Background(), llm.Text("hi"), llm.WithProvider("gamma"))
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if resp.Provider != "alpha" || resp.Text != "ok-alpha" {
		t.Fatalf("expected alpha to serve the request, got %+v", resp)
	}
	if !strings.Contains(logs.String(), `"level":"WARN"`) || !strings.Contains(logs.String(), "gamma") {
		t.Fatalf("expected substitution warning, got %s", logs.String())
	}
}

func TestGenerateTextStrictRejectsUnknownProvider(t *testing.T) {
	alpha := &fakeProvider{name: "alpha"}
	svc, _ := newService(t, []llm.Provider{alpha}, llm.WithStrictProvider(true))

	_, err := svc.GenerateText(context.Background(), llm.Text("hi"), llm.WithProvider("gamma"))
	if !errors.Is(err, llm.ErrProviderNotRegistered) {
		t.Fatalf("expected ErrProviderNotRegistered, got %v", err)
	}
	if len(alpha.Calls()) != 0 {
		t.Fatal("strict mode must not call another provider")
	}
}

func TestGenerateTextPropagatesNonRateLimitErrors(t *testing.T) {
	boom := errors.New("invalid request: bad field")
	alpha := &fakeProvider{name: "alpha"}
	alpha.text = func(string, llm.Prompt) (llm.Response, error) { return llm.Response{}, boom }
	svc, _ := newService(t, []llm.Provider{alpha}, llm.WithTiers([]string{"m1", "m2"}, nil))

	_, err := svc.GenerateText(context.Background(), llm.Text("hi"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}
	if n := len(alpha.Calls()); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}
}

func TestGenerateTextAllModelsExhausted(t *testing.T) {
	alpha := &fakeProvider{name: "alpha"}
	alpha.text = func(model string, _ llm.Prompt) (llm.Response, error) {
		return llm.Response{}, &llm.GenerationError{Provider: "alpha", Model: model, Kind: llm.KindRateLimited, StatusCode: 429}
	}
	svc, _ := newService(t, []llm.Provider{alpha}, llm.WithTiers(nil, []string{"s1", "s2", "s3"}))

	_, err := svc.GenerateText(context.Background(), llm.Text("hi"), llm.WithTier(llm.TierLight))
	if !errors.Is(err, llm.ErrAllModelsExhausted) {
		t.Fatalf("expected ErrAllModelsExhausted, got %v", err)
	}
	var exhausted *llm.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected *ExhaustedError, got %T", err)
	}
	if strings.Join(exhausted.Models, ",") != "s1,s2,s3" || exhausted.Tier != llm.TierLight {
		t.Fatalf("unexpected exhausted detail %+v", exhausted)
	}
	var last *llm.GenerationError
	if !errors.As(err, &last) || last.Model != "s3" {
		t.Fatalf("expected last error to be surfaced, got %v", err)
	}
}

func TestGenerateTextWithoutFallbackStopsAtFirstError(t *testing.T) {
	alpha := &fakeProvider{name: "alpha"}
	alpha.text = func(string, llm.Prompt) (llm.Response, error) {
		return llm.Response{}, errors.New("rate limit reached")
	}
	svc, _ := newService(t, []llm.Provider{alpha}, llm.WithTiers([]string{"m1", "m2"}, nil))

	_, err := svc.GenerateText(context.Background(), llm.Text("hi"), llm.WithoutFallback())
	if err == nil || errors.Is(err, llm.ErrAllModelsExhausted) {
		t.Fatalf("expected the raw rate limit error, got %v", err)
	}
	if n := len(alpha.Calls()); n != 1 {
		t.Fatalf("expected one attempt, got %d", n)
	}
}

func TestGenerateTextEmptyTierUsesDefaultModel(t *testing.T) {
	alpha := &fakeProvider{name: "alpha", defaultModel: "alpha-1"}
	svc, _ := newService(t, []llm.Provider{alpha})

	resp, err := svc.GenerateText(context.Background(), llm.Text("hi"))
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	calls := alpha.Calls()
	if len(calls) != 1 || calls[0].model != "" {
		t.Fatalf("expected a single default-model call, got %+v", calls)
	}
	if resp.Model != "alpha-1" {
		t.Fatalf("expected default model attribution, got %q", resp.Model)
	}
}

func TestDefaultProviderFallsBackToFirstRegistered(t *testing.T) {
	alpha := &fakeProvider{name: "alpha"}
	beta := &fakeProvider{name: "beta"}
	svc, _ := newService(t, []llm.Provider{alpha, beta}, llm.WithDefaultProvider("gemini"))
	if svc.DefaultProvider() != "alpha" {
		t.Fatalf("expected alpha default, got %q", svc.DefaultProvider())
	}

	svc, _ = newService(t, []llm.Provider{alpha, beta}, llm.WithDefaultProvider("Beta"))
	resp, err := svc.GenerateText(context.Background(), llm.Text("hi"))
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if resp.Provider != "beta" {
		t.Fatalf("expected beta to serve default calls, got %q", resp.Provider)
	}
	if got := strings.Join(svc.Providers(), ","); got != "alpha,beta" {
		t.Fatalf("expected registration order, got %q", got)
	}
}

func TestNewServiceRejectsDuplicates(t *testing.T) {
	_, err := llm.NewService([]llm.Provider{&fakeProvider{name: "alpha"}, &fakeProvider{name: "ALPHA"}})
	if err == nil {
		t.Fatal("expected duplicate provider error")
	}
}

func rateLimited(name string) error {
	return &llm.GenerationError{Provider: name, Kind: llm.KindRateLimited, StatusCode: 429, Message: "quota"}
}

func TestGenerateWithMediaFallsBackOneHop(t *testing.T) {
	alpha := &fakeProvider{name: "alpha"}
	alpha.media = func(string, llm.Prompt, string) (llm.Response, error) { return llm.Response{}, rateLimited("alpha") }
	beta := &fakeProvider{name: "beta", defaultModel: "beta-1"}
	svc, logs := newService(t, []llm.Provider{alpha, beta})

	resp, err := svc.GenerateWithMedia(context.Background(), llm.Text("summarize"), "/tmp/clip.mp3")
	if err != nil {
		t.Fatalf("GenerateWithMedia: %v", err)
	}
	if resp.Provider != "beta" || resp.Text != "media-beta" || resp.Model != "beta-1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if calls := beta.Calls(); len(calls) != 1 || calls[0].media != "/tmp/clip.mp3" || calls[0].model != "" {
		t.Fatalf("unexpected fallback calls %+v", calls)
	}
	if !strings.Contains(logs.String(), "falling back") {
		t.Fatalf("expected fallback log, got %s", logs.String())
	}
}

func TestGenerateWithMediaDegradesToText(t *testing.T) {
	alpha := &fakeProvider{name: "alpha"}
	alpha.media = func(string, llm.Prompt, string) (llm.Response, error) { return llm.Response{}, rateLimited("alpha") }
	beta := &fakeProvider{name: "beta"}
	beta.media = func(string, llm.Prompt, string) (llm.Response, error) {
		return llm.Response{}, llm.UnsupportedMedia("beta", llm.MediaAudio)
	}
	svc, _ := newService(t, []llm.Provider{alpha, beta})

	resp, err := svc.GenerateWithMedia(context.Background(), llm.Text("summarize the episode"), "/tmp/ep.mp3")
	if err != nil {
		t.Fatalf("GenerateWithMedia: %v", err)
	}
	if resp.Text != "ok-beta" {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	calls := beta.Calls()
	if len(calls) != 2 || calls[1].method != "text" {
		t.Fatalf("expected media then text call, got %+v", calls)
	}
	if calls[1].prompt != llm.DegradedMediaPrefix+"summarize the episode" {
		t.Fatalf("unexpected degraded prompt %q", calls[1].prompt)
	}
	if n := len(alpha.Calls()); n != 1 {
		t.Fatalf("primary must be tried once, got %d", n)
	}
}

func TestGenerateWithMediaWithoutFallbackProvider(t *testing.T) {
	alpha := &fakeProvider{name: "alpha"}
	alpha.media = func(string, llm.Prompt, string) (llm.Response, error) { return llm.Response{}, rateLimited("alpha") }
	svc, _ := newService(t, []llm.Provider{alpha})

	_, err := svc.GenerateWithMedia(context.Background(), llm.Text("x"), "/tmp/a.mp3")
	if !errors.Is(err, llm.ErrNoProviderAvailable) {
		t.Fatalf("expected ErrNoProviderAvailable, got %v", err)
	}
	if !llm.IsRateLimited(err) {
		t.Fatal("expected the original rate limit to stay in the chain")
	}
}

func TestGenerateWithMediaPropagatesOtherErrors(t *testing.T) {
	boom := errors.New("upload failed")
	alpha := &fakeProvider{name: "alpha"}
	alpha.media = func(string, llm.Prompt, string) (llm.Response, error) { return llm.Response{}, boom }
	beta := &fakeProvider{name: "beta"}
	svc, _ := newService(t, []llm.Provider{alpha, beta})

	if _, err := svc.GenerateWithMedia(context.Background(), llm.Text("x"), "/tmp/a.mp3"); !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}
	if len(beta.Calls()) != 0 {
		t.Fatal("fallback must not run for non rate limit errors")
	}

	alpha.media = func(string, llm.Prompt, string) (llm.Response, error) { return llm.Response{}, rateLimited("alpha") }
	beta.media = func(string, llm.Prompt, string) (llm.Response, error) { return llm.Response{}, rateLimited("beta") }
	_, err := svc.GenerateWithMedia(context.Background(), llm.Text("x"), "/tmp/a.mp3")
	var genErr *llm.GenerationError
	if !errors.As(err, &genErr) || genErr.Provider != "beta" {
		t.Fatalf("expected fallback error to be final, got %v", err)
	}
	if n := len(alpha.Calls()) + len(beta.Calls()); n != 3 {
		t.Fatalf("expected exactly one hop per call, got %d provider calls", n)
	}
}

func TestPing(t *testing.T) {
	alpha := &fakeProvider{name: "alpha", defaultModel: "a1"}
	svc, _ := newService(t, []llm.Provider{alpha})
	resp, err := svc.Ping(context.Background(), "alpha")
	if err != nil || resp.Model != "a1" {
		t.Fatalf("unexpected ping result %+v %v", resp, err)
	}
	if _, err := svc.Ping(context.Background(), "beta"); !errors.Is(err, llm.ErrProviderNotRegistered) {
		t.Fatalf("expected ErrProviderNotRegistered, got %v", err)
	}
}
