package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"

	"curator/internal/logging"
)

const (
	defaultDownloadAttempts = 3
	defaultDownloadDelay    = 5 * time.Second
)

// Downloader saves remote files to disk, retrying failed attempts at a
// constant interval.
type Downloader struct {
	client   *Client
	attempts uint
	delay    time.Duration
	logger   *slog.Logger
}

// NewDownloader builds a Downloader. Non-positive values use three attempts
// five seconds apart.
func NewDownloader(client *Client, attempts int, delay time.Duration) *Downloader {
	if attempts <= 0 {
		attempts = defaultDownloadAttempts
	}
	if delay < 0 {
		delay = defaultDownloadDelay
	}
	return &Downloader{
		client:   client,
		attempts: uint(attempts),
		delay:    delay,
		logger:   client.logger,
	}
}

// Download fetches fileURL into dest, creating parent directories. A partial
// file is removed when every attempt fails.
func (d *Downloader) Download(ctx context.Context, fileURL, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		err := d.fetchOnce(ctx, fileURL, dest)
		if err != nil {
			d.logger.Warn("download attempt failed",
				logging.String("url", fileURL),
				logging.Int("attempt", attempt),
				logging.Error(err),
				logging.String(logging.FieldEventType, "download_attempt_failed"),
				logging.String(logging.FieldErrorHint, "check the source url and network"),
				logging.String(logging.FieldImpact, "download will be retried"),
			)
		}
		return struct{}{}, err
	}
	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(d.delay)),
		backoff.WithMaxTries(d.attempts),
	)
	if err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("download %s after %d attempts: %w", fileURL, attempt, err)
	}
	return nil
}

func (d *Downloader) fetchOnce(ctx context.Context, fileURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("User-Agent", d.client.userAgent)
	// Downloads can exceed the page timeout, so only the context bounds them.
	httpClient := *d.client.httpClient
	httpClient.Timeout = 0
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	file, err := os.Create(dest)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create %s: %w", dest, err))
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return file.Close()
}
