package publish

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"curator/internal/config"
	"curator/internal/content"
	"curator/internal/logging"
	"curator/internal/services"
)

// ErrNoPublisher is returned when no backend is configured.
var ErrNoPublisher = errors.New("no publisher configured")

const defaultHTTPTimeout = 60 * time.Second

// HTTPDoer describes the HTTP client used by the publishers.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Post is a finished article ready to publish.
type Post struct {
	Title      string
	HTML       string
	Slug       string
	VideoURL   string
	SourceURL  string
	SourceName string
	Tags       []content.Tag
}

// Publisher creates a post on one backend and returns its public URL.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, post Post) (string, error)
}

// TagSource lists the tags a backend already knows about.
type TagSource interface {
	AvailableTags(ctx context.Context) ([]content.Tag, error)
}

// Decorate returns post with the source references rendered into its HTML.
// A video URL becomes an embed block at the top and a link at the bottom; a
// source URL becomes a link at the bottom.
func Decorate(post Post) Post {
	body := post.HTML
	if video := strings.TrimSpace(post.VideoURL); video != "" {
		body = embedBlock(video) + "\n\n" + body + "\n\n" + sourceLine("原始影片", video)
	}
	if source := strings.TrimSpace(post.SourceURL); source != "" {
		body = body + "\n\n" + sourceLine("原始連結", source)
	}
	post.HTML = body
	return post
}

func embedBlock(videoURL string) string {
	escaped := html.EscapeString(videoURL)
	return `<!-- wp:embed {"url":"` + escaped + `","type":"video","providerNameSlug":"youtube","responsive":true,"className":"wp-embed-aspect-16-9 wp-has-aspect-ratio"} -->` + "\n" +
		`<figure class="wp-block-embed is-type-video is-provider-youtube wp-block-embed-youtube wp-embed-aspect-16-9 wp-has-aspect-ratio"><div class="wp-block-embed__wrapper">` + "\n" +
		escaped + "\n" +
		`</div></figure>` + "\n" +
		`<!-- /wp:embed -->`
}

func sourceLine(label, target string) string {
	escaped := html.EscapeString(target)
	return fmt.Sprintf(`<p>%s：<a href="%s">%s</a></p>`, label, escaped, escaped)
}

// Multi publishes to every backend in order.
type Multi struct {
	publishers []Publisher
	logger     *slog.Logger
}

// NewMulti wraps publishers. Nil entries are skipped.
func NewMulti(logger *slog.Logger, publishers ...Publisher) *Multi {
	m := &Multi{logger: logging.NewComponentLogger(logger, "publish")}
	for _, p := range publishers {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

// Name lists the wrapped backends.
func (m *Multi) Name() string {
	names := make([]string, 0, len(m.publishers))
	for _, p := range m.publishers {
		names = append(names, p.Name())
	}
	return strings.Join(names, "+")
}

// Len reports how many backends are configured.
func (m *Multi) Len() int { return len(m.publishers) }

// Publish sends post to every backend. It returns the first successful URL and
// fails only when every backend fails.
func (m *Multi) Publish(ctx context.Context, post Post) (string, error) {
	if len(m.publishers) == 0 {
		return "", ErrNoPublisher
	}
	var (
		firstURL string
		errs     []error
	)
	for _, p := range m.publishers {
		url, err := p.Publish(ctx, post)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		m.logger.Info("post published",
			logging.String(logging.FieldEventType, "post_published"),
			logging.String("backend", p.Name()),
			logging.String("title", post.Title),
			logging.String("url", url),
		)
		if firstURL == "" {
			firstURL = url
		}
	}
	if firstURL == "" {
		return "", errors.Join(errs...)
	}
	if len(errs) > 0 {
		logging.WarnWithContext(logging.WithContext(ctx, m.logger), "post published to some backends only",
			"publish_partial",
			logging.String("title", post.Title),
			logging.Error(errors.Join(errs...)),
			logging.String(logging.FieldImpact, "the post is missing from the failed backends"),
		)
	}
	return firstURL, nil
}

// AvailableTags delegates to the first backend that can list tags.
func (m *Multi) AvailableTags(ctx context.Context) ([]content.Tag, error) {
	for _, p := range m.publishers {
		if source, ok := p.(TagSource); ok {
			return source.AvailableTags(ctx)
		}
	}
	return nil, nil
}

// NewFromConfig builds the configured backends.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Multi, error) {
	var publishers []Publisher
	if cfg.WordPressEnabled() {
		publishers = append(publishers, NewWordPress(cfg.WordPress))
	}
	if cfg.GhostEnabled() {
		ghost, err := NewGhost(cfg.Ghost)
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, ghost)
	}
	return NewMulti(logger, publishers...), nil
}

func defaultHTTPClient() HTTPDoer {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

func statusError(backend string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	message := fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	marker := services.ErrExternalTool
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		marker = services.ErrConfiguration
	case resp.StatusCode == http.StatusBadRequest:
		marker = services.ErrValidation
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		marker = services.ErrTransient
	}
	return services.Wrap(marker, "publish", backend, message, nil)
}
