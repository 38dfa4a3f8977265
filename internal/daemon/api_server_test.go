package daemon

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"curator/internal/config"
	"curator/internal/store"
	"curator/internal/testsupport"
)

func withToken(token string) testsupport.ConfigOption {
	return testsupport.WithConfig(func(cfg *config.Config) {
		cfg.API.Token = token
	})
}

func serve(t *testing.T, srv *apiServer, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func TestAPIDisabledWithoutBind(t *testing.T) {
	d, _, _ := newTestDaemon(t, newFakeCycler(), nil, testsupport.WithConfig(func(cfg *config.Config) {
		cfg.API.Bind = ""
	}))
	if d.api != nil {
		t.Fatal("expected no api server when bind is empty")
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func TestAPIHealthIsPublic(t *testing.T) {
	d, _, _ := newTestDaemon(t, newFakeCycler(), nil, withToken("secret"))
	w := serve(t, d.api, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	d, _, _ := newTestDaemon(t, newFakeCycler(), nil, withToken("secret"))
	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "nope", http.StatusUnauthorized},
		{"valid", "secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := serve(t, d.api, http.MethodGet, "/api/status", tt.token); w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestAPIStatusReportsSources(t *testing.T) {
	d, st, _ := newTestDaemon(t, newFakeCycler(), nil)
	ctx := context.Background()
	if _, err := st.AddChannel(ctx, "https://www.youtube.com/@a"); err != nil {
		t.Fatalf("AddChannel: %v", err)
	}
	if _, err := st.AddFeed(ctx, "https://example.com/feed", "Example"); err != nil {
		t.Fatalf("AddFeed: %v", err)
	}

	w := serve(t, d.api, http.MethodGet, "/api/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var status Status
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Running || status.Sources.Channels != 1 || status.Sources.Feeds != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestAPIPosts(t *testing.T) {
	d, st, _ := newTestDaemon(t, newFakeCycler(), nil)
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		if _, err := st.RecordPost(ctx, store.Post{
			SourceKind:  store.SourceArticle,
			SourceID:    title,
			Title:       title,
			URL:         "https://blog.example.com/" + title,
			Backend:     "wordpress",
			PublishedAt: base.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			t.Fatalf("RecordPost: %v", err)
		}
	}

	w := serve(t, d.api, http.MethodGet, "/api/posts?limit=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Posts []store.Post `json:"posts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Posts) != 2 || resp.Posts[0].Title != "third" {
		t.Fatalf("unexpected posts %+v", resp.Posts)
	}

	for _, bad := range []string{"0", "-1", "many"} {
		if w := serve(t, d.api, http.MethodGet, "/api/posts?limit="+bad, ""); w.Code != http.StatusBadRequest {
			t.Fatalf("limit %q: expected 400, got %d", bad, w.Code)
		}
	}
}

func TestAPICycleTrigger(t *testing.T) {
	cycler := newFakeCycler()
	d, _, _ := newTestDaemon(t, cycler, nil)

	if w := serve(t, d.api, http.MethodPost, "/api/cycle", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before start, got %d", w.Code)
	}
	if w := serve(t, d.api, http.MethodGet, "/api/cycle", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", w.Code)
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	resp, err := http.Post("http://"+d.api.addr()+"/api/cycle", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/cycle: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.StatusCode, body)
	}
	waitFor(t, cycler.ran, "api-triggered cycle")
}
