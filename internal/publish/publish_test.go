package publish_test

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"curator/internal/config"
	"curator/internal/content"
	"curator/internal/logging"
	"curator/internal/publish"
	"curator/internal/services"
)

func TestDecorateVideoAndSource(t *testing.T) {
	post := publish.Decorate(publish.Post{HTML: "<p>body</p>", VideoURL: "https://youtu.be/abc123"})
	if !strings.HasPrefix(post.HTML, "<!-- wp:embed {\"url\":\"https://youtu.be/abc123\"") {
		t.Fatalf("expected embed block first, got %q", post.HTML)
	}
	if !strings.Contains(post.HTML, "<p>body</p>") {
		t.Fatalf("expected body kept, got %q", post.HTML)
	}
	if !strings.HasSuffix(post.HTML, `<p>原始影片：<a href="https://youtu.be/abc123">https://youtu.be/abc123</a></p>`) {
		t.Fatalf("expected video link last, got %q", post.HTML)
	}

	post = publish.Decorate(publish.Post{HTML: "<p>body</p>", SourceURL: "https://news.example.com/a?x=1&y=2"})
	want := "<p>body</p>\n\n" + `<p>原始連結：<a href="https://news.example.com/a?x=1&amp;y=2">https://news.example.com/a?x=1&amp;y=2</a></p>`
	if post.HTML != want {
		t.Fatalf("unexpected source decoration:\n got %q\nwant %q", post.HTML, want)
	}
}

func TestWordPressPublish(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/wp-json/wp/v2/posts" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "editor" || pass != "app pass" {
			t.Errorf("unexpected basic auth %q %q %v", user, pass, ok)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":12,"link":"https://blog.example.com/my-post/"}`))
	}))
	defer server.Close()

	wp := publish.NewWordPress(config.WordPress{
		URL:          server.URL + "/",
		User:         "editor",
		Password:     "app pass",
		SummaryTagID: 22,
		Categories:   map[string]int{"@sharptechpodcast": 18},
	})
	link, err := wp.Publish(context.Background(), publish.Post{
		Title:      "Title",
		HTML:       "<p>x</p>",
		Slug:       "my-post",
		SourceName: "https://www.youtube.com/@SharpTechPodcast",
		Tags:       []content.Tag{{ID: 5, Name: "ai"}, {ID: 22, Name: "summary"}},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if link != "https://blog.example.com/my-post/" {
		t.Fatalf("unexpected link %q", link)
	}
	if got["status"] != "publish" || got["slug"] != "my-post" {
		t.Fatalf("unexpected payload: %v", got)
	}
	if cats, _ := json.Marshal(got["categories"]); string(cats) != "[18]" {
		t.Fatalf("unexpected categories: %s", cats)
	}
	if tags, _ := json.Marshal(got["tags"]); string(tags) != "[22,5]" {
		t.Fatalf("unexpected tags: %s", tags)
	}
}

func TestWordPressUnmappedSourceHasNoCategory(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"link":"https://blog.example.com/p/"}`))
	}))
	defer server.Close()

	wp := publish.NewWordPress(config.WordPress{URL: server.URL, User: "u", Password: "p", Categories: map[string]int{"@other": 3}})
	if _, err := wp.Publish(context.Background(), publish.Post{Title: "t", SourceName: "Some Blog"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if cats, _ := json.Marshal(got["categories"]); string(cats) != "[]" {
		t.Fatalf("expected empty categories, got %s", cats)
	}
}

func TestWordPressStatusErrors(t *testing.T) {
	cases := []struct {
		status int
		marker error
	}{
		{http.StatusUnauthorized, services.ErrConfiguration},
		{http.StatusBadRequest, services.ErrValidation},
		{http.StatusBadGateway, services.ErrTransient},
		{http.StatusOK, services.ErrExternalTool},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"code":"nope"}`))
		}))
		wp := publish.NewWordPress(config.WordPress{URL: server.URL, User: "u", Password: "p"})
		_, err := wp.Publish(context.Background(), publish.Post{Title: "t"})
		server.Close()
		if !errors.Is(err, tc.marker) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.marker, err)
		}
	}
}

func TestWordPressAvailableTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/tags" || r.URL.Query().Get("per_page") != "100" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`[{"id":1,"name":"AI"},{"id":22,"name":"summary"}]`))
	}))
	defer server.Close()

	wp := publish.NewWordPress(config.WordPress{URL: server.URL, User: "u", Password: "p"})
	tags, err := wp.AvailableTags(context.Background())
	if err != nil {
		t.Fatalf("AvailableTags: %v", err)
	}
	if len(tags) != 2 || tags[0] != (content.Tag{ID: 1, Name: "AI"}) {
		t.Fatalf("unexpected tags: %+v", tags)
	}
}

func TestGhostPublishSignsToken(t *testing.T) {
	secretHex := "0123456789abcdef0123456789abcdef"
	secret, _ := hex.DecodeString(secretHex)
	issued := time.Unix(1700000000, 0)

	var body map[string][]map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ghost/api/admin/posts/" || r.URL.Query().Get("source") != "html" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Ghost ")
		if !ok {
			t.Errorf("missing Ghost authorization: %q", r.Header.Get("Authorization"))
		}
		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithoutClaimsValidation())
		if err != nil || !token.Valid {
			t.Errorf("token invalid: %v", err)
		} else {
			if token.Header["kid"] != "key-id" {
				t.Errorf("unexpected kid %v", token.Header["kid"])
			}
			if claims["aud"] != "/admin/" {
				t.Errorf("unexpected aud %v", claims["aud"])
			}
			if claims["iat"].(float64) != 1700000000 || claims["exp"].(float64) != 1700000300 {
				t.Errorf("unexpected iat/exp %v %v", claims["iat"], claims["exp"])
			}
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"posts":[{"id":"x","url":"https://ghost.example.com/title/"}]}`))
	}))
	defer server.Close()

	ghost, err := publish.NewGhost(config.Ghost{URL: server.URL, AdminKey: "key-id:" + secretHex, Status: "draft"},
		publish.WithGhostClock(func() time.Time { return issued }))
	if err != nil {
		t.Fatalf("NewGhost: %v", err)
	}
	url, err := ghost.Publish(context.Background(), publish.Post{
		Title: "Title",
		HTML:  "<p>x</p>",
		Slug:  "title",
		Tags:  []content.Tag{{ID: 5, Name: "ai"}},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if url != "https://ghost.example.com/title/" {
		t.Fatalf("unexpected url %q", url)
	}
	posts := body["posts"]
	if len(posts) != 1 || posts[0]["status"] != "draft" || posts[0]["slug"] != "title" {
		t.Fatalf("unexpected body %v", body)
	}
	if tags, _ := json.Marshal(posts[0]["tags"]); string(tags) != `[{"name":"ai"}]` {
		t.Fatalf("unexpected ghost tags %s", tags)
	}
}

func TestNewGhostRejectsBadKey(t *testing.T) {
	for _, key := range []string{"nocolon", "id:zz", ":abcd"} {
		if _, err := publish.NewGhost(config.Ghost{URL: "https://g", AdminKey: key}); !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("key %q: expected configuration error, got %v", key, err)
		}
	}
}

type fakePublisher struct {
	name  string
	url   string
	err   error
	calls int
}

func (f *fakePublisher) Name() string { return f.name }

func (f *fakePublisher) Publish(context.Context, publish.Post) (string, error) {
	f.calls++
	return f.url, f.err
}

func TestMultiPublish(t *testing.T) {
	failing := &fakePublisher{name: "a", err: errors.New("down")}
	ok := &fakePublisher{name: "b", url: "https://b/post"}
	other := &fakePublisher{name: "c", url: "https://c/post"}
	multi := publish.NewMulti(logging.NewNop(), failing, nil, ok, other)

	if multi.Name() != "a+b+c" || multi.Len() != 3 {
		t.Fatalf("unexpected multi %q %d", multi.Name(), multi.Len())
	}
	url, err := multi.Publish(context.Background(), publish.Post{Title: "t"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if url != "https://b/post" {
		t.Fatalf("expected first successful url, got %q", url)
	}
	if failing.calls != 1 || ok.calls != 1 || other.calls != 1 {
		t.Fatal("expected every backend to be called")
	}

	bad := &fakePublisher{name: "d", err: errors.New("also down")}
	multi = publish.NewMulti(logging.NewNop(), failing, bad)
	_, err = multi.Publish(context.Background(), publish.Post{})
	if err == nil || !strings.Contains(err.Error(), "down") || !strings.Contains(err.Error(), "also down") {
		t.Fatalf("expected joined errors, got %v", err)
	}

	if _, err := publish.NewMulti(nil).Publish(context.Background(), publish.Post{}); !errors.Is(err, publish.ErrNoPublisher) {
		t.Fatalf("expected ErrNoPublisher, got %v", err)
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	multi, err := publish.NewFromConfig(&cfg, logging.NewNop())
	if err != nil || multi.Len() != 0 {
		t.Fatalf("expected no publishers, got %d %v", multi.Len(), err)
	}

	cfg.WordPress = config.WordPress{URL: "https://blog.example.com", User: "u", Password: "p"}
	cfg.Ghost = config.Ghost{URL: "https://ghost.example.com", AdminKey: "id:abcd"}
	multi, err = publish.NewFromConfig(&cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if multi.Name() != "wordpress+ghost" {
		t.Fatalf("unexpected publishers %q", multi.Name())
	}
}
