package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"curator/internal/config"
	"curator/internal/logging"
	"curator/internal/services"
)

const (
	defaultAttempts   = 3
	defaultRetryDelay = 5 * time.Second
)

// AudioFetcher downloads the audio track of an online video as MP3 with yt-dlp.
type AudioFetcher struct {
	ytdlp      string
	ffmpeg     string
	ffprobe    string
	attempts   uint
	retryDelay time.Duration
	runner     Runner
	logger     *slog.Logger
}

// FetcherOption customizes an AudioFetcher.
type FetcherOption func(*AudioFetcher)

// WithRunner replaces the command runner.
func WithRunner(runner Runner) FetcherOption {
	return func(f *AudioFetcher) {
		if runner != nil {
			f.runner = runner
		}
	}
}

// WithRetry overrides the attempt count and the constant delay between attempts.
func WithRetry(attempts int, delay time.Duration) FetcherOption {
	return func(f *AudioFetcher) {
		if attempts > 0 {
			f.attempts = uint(attempts)
		}
		if delay >= 0 {
			f.retryDelay = delay
		}
	}
}

// WithLogger sets the fetcher logger.
func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *AudioFetcher) {
		f.logger = logger
	}
}

// NewAudioFetcher builds a fetcher from the sources section.
func NewAudioFetcher(cfg config.Sources, opts ...FetcherOption) *AudioFetcher {
	f := &AudioFetcher{
		ytdlp:      firstNonEmpty(cfg.YtDlpBinary, "yt-dlp"),
		ffmpeg:     strings.TrimSpace(cfg.FFmpegBinary),
		ffprobe:    ffprobeFor(cfg.FFmpegBinary),
		attempts:   defaultAttempts,
		retryDelay: defaultRetryDelay,
		runner:     ExecRunner{},
	}
	if cfg.DownloadAttempts > 0 {
		f.attempts = uint(cfg.DownloadAttempts)
	}
	if cfg.DownloadRetryDelay >= 0 {
		f.retryDelay = time.Duration(cfg.DownloadRetryDelay) * time.Second
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.NewComponentLogger(f.logger, "media")
	return f
}

// FetchAudio downloads videoURL into workDir and returns the video title and
// the MP3 path. Failed attempts are retried at a constant interval.
func (f *AudioFetcher) FetchAudio(ctx context.Context, videoURL, workDir string) (string, string, error) {
	logger := logging.WithContext(ctx, f.logger)
	attempt := 0
	type result struct{ title, path string }
	operation := func() (result, error) {
		attempt++
		logger.Info("downloading audio", logging.String("url", videoURL), logging.Int("attempt", attempt))
		title, path, err := f.fetchOnce(ctx, videoURL, workDir)
		if err != nil {
			logger.Warn("audio download attempt failed",
				logging.Int("attempt", attempt),
				logging.Error(err),
				logging.String(logging.FieldEventType, "audio_download_failed"),
				logging.String(logging.FieldErrorHint, "update yt-dlp or check the video availability"),
				logging.String(logging.FieldImpact, "download will be retried"),
			)
		}
		return result{title, path}, err
	}
	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(f.retryDelay)),
		backoff.WithMaxTries(f.attempts),
	)
	if err != nil {
		return "", "", services.Wrap(services.ErrExternalTool, "media", "fetch audio",
			fmt.Sprintf("%s failed after %d attempts", videoURL, attempt), err)
	}
	return res.title, res.path, nil
}

func (f *AudioFetcher) fetchOnce(ctx context.Context, videoURL, workDir string) (string, string, error) {
	args := []string{
		"--extract-audio",
		"--audio-format", "mp3",
		"--no-playlist",
		"--no-progress",
		"--print", "after_move:title",
		"--print", "after_move:filepath",
		"--output", filepath.Join(workDir, "%(id)s.%(ext)s"),
	}
	if f.ffmpeg != "" && f.ffmpeg != "ffmpeg" {
		args = append(args, "--ffmpeg-location", f.ffmpeg)
	}
	args = append(args, "--", videoURL)

	out, err := f.runner.Run(ctx, f.ytdlp, args...)
	if err != nil {
		return "", "", err
	}
	title, path, err := parsePrinted(string(out))
	if err != nil {
		return "", "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", "", fmt.Errorf("yt-dlp output missing: %w", err)
	}
	f.verify(ctx, path)
	return title, path, nil
}

// verify logs the inspected duration. A missing ffprobe is not an error.
func (f *AudioFetcher) verify(ctx context.Context, path string) {
	info, err := Inspect(ctx, f.runner, f.ffprobe, path)
	if err != nil {
		f.logger.Debug("audio inspection skipped", logging.Error(err))
		return
	}
	f.logger.Info("audio ready",
		logging.String("path", path),
		logging.Duration("duration", info.Duration()),
		logging.Int("audio_streams", info.AudioStreamCount()),
	)
}

// parsePrinted reads the title and file path printed by yt-dlp. Warnings may
// precede them, so the last two non-empty lines are used.
func parsePrinted(out string) (string, string, error) {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return "", "", errors.New("yt-dlp printed no title and path")
	}
	return lines[len(lines)-2], lines[len(lines)-1], nil
}

func ffprobeFor(ffmpeg string) string {
	ffmpeg = strings.TrimSpace(ffmpeg)
	if ffmpeg == "" || !strings.ContainsRune(ffmpeg, filepath.Separator) {
		return "ffprobe"
	}
	return filepath.Join(filepath.Dir(ffmpeg), "ffprobe")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
