package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"curator/internal/config"
	"curator/internal/content"
	"curator/internal/services"
	"curator/internal/sources"
)

const wordPressName = "wordpress"

// WordPress publishes through the WordPress REST API.
type WordPress struct {
	baseURL      string
	user         string
	password     string
	summaryTagID int
	categories   map[string]int
	client       HTTPDoer
}

// WordPressOption customizes a WordPress publisher.
type WordPressOption func(*WordPress)

// WithWordPressClient overrides the HTTP client.
func WithWordPressClient(client HTTPDoer) WordPressOption {
	return func(w *WordPress) {
		if client != nil {
			w.client = client
		}
	}
}

// NewWordPress constructs a publisher for cfg.
func NewWordPress(cfg config.WordPress, opts ...WordPressOption) *WordPress {
	w := &WordPress{
		baseURL:      strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		user:         cfg.User,
		password:     cfg.Password,
		summaryTagID: cfg.SummaryTagID,
		categories:   cfg.Categories,
		client:       defaultHTTPClient(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name implements Publisher.
func (w *WordPress) Name() string { return wordPressName }

type wordPressPost struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	Status     string `json:"status"`
	Slug       string `json:"slug,omitempty"`
	Categories []int  `json:"categories"`
	Tags       []int  `json:"tags"`
}

// Publish implements Publisher.
func (w *WordPress) Publish(ctx context.Context, post Post) (string, error) {
	payload := wordPressPost{
		Title:      post.Title,
		Content:    post.HTML,
		Status:     "publish",
		Slug:       post.Slug,
		Categories: w.categoriesFor(post.SourceName),
		Tags:       w.tagIDs(post.Tags),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode wordpress post: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/wp-json/wp/v2/posts", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build wordpress request: %w", err)
	}
	req.SetBasicAuth(w.user, w.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "publish", wordPressName, "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", statusError(wordPressName, resp)
	}

	var created struct {
		ID   int    `json:"id"`
		Link string `json:"link"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "publish", wordPressName, "decode response", err)
	}
	if created.Link == "" {
		return "", services.Wrap(services.ErrExternalTool, "publish", wordPressName, "response has no link", nil)
	}
	return created.Link, nil
}

// AvailableTags lists up to 100 tags defined on the site.
func (w *WordPress) AvailableTags(ctx context.Context) ([]content.Tag, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/wp-json/wp/v2/tags?per_page=100", nil)
	if err != nil {
		return nil, fmt.Errorf("build wordpress tags request: %w", err)
	}
	req.SetBasicAuth(w.user, w.password)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "publish", wordPressName, "list tags", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(wordPressName, resp)
	}

	var raw []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "publish", wordPressName, "decode tags", err)
	}
	tags := make([]content.Tag, 0, len(raw))
	for _, t := range raw {
		tags = append(tags, content.Tag{ID: t.ID, Name: t.Name})
	}
	return tags, nil
}

func (w *WordPress) categoriesFor(source string) []int {
	handle := strings.ToLower(sources.ChannelHandle(source))
	if handle == "" {
		handle = strings.ToLower(strings.TrimSpace(source))
		if handle != "" && !strings.HasPrefix(handle, "@") {
			handle = "@" + handle
		}
	}
	if id, ok := w.categories[handle]; ok && handle != "" {
		return []int{id}
	}
	return []int{}
}

func (w *WordPress) tagIDs(tags []content.Tag) []int {
	ids := make([]int, 0, len(tags)+1)
	seen := make(map[int]struct{}, len(tags)+1)
	add := func(id int) {
		if id <= 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	add(w.summaryTagID)
	for _, t := range tags {
		add(t.ID)
	}
	return ids
}
