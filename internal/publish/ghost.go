package publish

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"curator/internal/config"
	"curator/internal/services"
)

const (
	ghostName     = "ghost"
	ghostAudience = "/admin/"
	ghostTokenTTL = 5 * time.Minute
)

// Ghost publishes through the Ghost Admin API.
type Ghost struct {
	baseURL string
	keyID   string
	secret  []byte
	status  string
	client  HTTPDoer
	now     func() time.Time
}

// GhostOption customizes a Ghost publisher.
type GhostOption func(*Ghost)

// WithGhostClient overrides the HTTP client.
func WithGhostClient(client HTTPDoer) GhostOption {
	return func(g *Ghost) {
		if client != nil {
			g.client = client
		}
	}
}

// WithGhostClock overrides the clock used for token timestamps.
func WithGhostClock(now func() time.Time) GhostOption {
	return func(g *Ghost) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGhost constructs a publisher for cfg. The admin key has the form id:secret
// with a hex encoded secret.
func NewGhost(cfg config.Ghost, opts ...GhostOption) (*Ghost, error) {
	id, rawSecret, ok := strings.Cut(strings.TrimSpace(cfg.AdminKey), ":")
	if !ok || id == "" || rawSecret == "" {
		return nil, services.Wrap(services.ErrConfiguration, "publish", ghostName, "admin key must have the form id:secret", nil)
	}
	secret, err := hex.DecodeString(rawSecret)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "publish", ghostName, "admin key secret is not hex", err)
	}
	status := cfg.Status
	if status == "" {
		status = "published"
	}
	g := &Ghost{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		keyID:   id,
		secret:  secret,
		status:  status,
		client:  defaultHTTPClient(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Name implements Publisher.
func (g *Ghost) Name() string { return ghostName }

// Token signs a short-lived Admin API token.
func (g *Ghost) Token() (string, error) {
	issued := g.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": issued.Unix(),
		"exp": issued.Add(ghostTokenTTL).Unix(),
		"aud": ghostAudience,
	})
	token.Header["kid"] = g.keyID
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("sign ghost token: %w", err)
	}
	return signed, nil
}

type ghostTag struct {
	Name string `json:"name"`
}

type ghostPost struct {
	Title  string     `json:"title"`
	HTML   string     `json:"html"`
	Slug   string     `json:"slug,omitempty"`
	Status string     `json:"status"`
	Tags   []ghostTag `json:"tags,omitempty"`
}

// Publish implements Publisher.
func (g *Ghost) Publish(ctx context.Context, post Post) (string, error) {
	token, err := g.Token()
	if err != nil {
		return "", err
	}
	entry := ghostPost{Title: post.Title, HTML: post.HTML, Slug: post.Slug, Status: g.status}
	for _, t := range post.Tags {
		if name := strings.TrimSpace(t.Name); name != "" {
			entry.Tags = append(entry.Tags, ghostTag{Name: name})
		}
	}
	body, err := json.Marshal(map[string][]ghostPost{"posts": {entry}})
	if err != nil {
		return "", fmt.Errorf("encode ghost post: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/ghost/api/admin/posts/?source=html", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ghost request: %w", err)
	}
	req.Header.Set("Authorization", "Ghost "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "publish", ghostName, "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", statusError(ghostName, resp)
	}

	var created struct {
		Posts []struct {
			URL string `json:"url"`
		} `json:"posts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "publish", ghostName, "decode response", err)
	}
	if len(created.Posts) == 0 || created.Posts[0].URL == "" {
		return "", services.Wrap(services.ErrExternalTool, "publish", ghostName, "response has no post url", nil)
	}
	return created.Posts[0].URL, nil
}
