package gemini

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cenkalti/backoff/v5"

	"curator/internal/llm"
)

// File states reported by the File API.
const (
	StateProcessing = "PROCESSING"
	StateActive     = "ACTIVE"
	StateFailed     = "FAILED"
)

// File is an uploaded File API resource.
type File struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType"`
	State    string `json:"state"`
	Error    *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// UploadFile uploads path and blocks until the backend reports it ACTIVE.
func (c *Client) UploadFile(ctx context.Context, path string) (File, error) {
	mimeType, err := llm.DetectMIMEType(path)
	if err != nil {
		return File{}, err
	}
	size, err := fileSize(path)
	if err != nil {
		return File{}, fmt.Errorf("stat media: %w", err)
	}
	handle, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("open media: %w", err)
	}
	defer handle.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.withKey(c.baseURL+"/upload/v1beta/files"), handle)
	if err != nil {
		return File{}, fmt.Errorf("new request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	req.Header.Set("X-Goog-Upload-File-Name", displayName(path))
	req.Header.Set("X-Goog-Upload-Header-Content-Length", strconv.FormatInt(size, 10))

	var uploaded struct {
		File File `json:"file"`
	}
	if _, err := c.do(req, &uploaded); err != nil {
		return File{}, fmt.Errorf("upload media: %w", err)
	}
	if uploaded.File.MIMEType == "" {
		uploaded.File.MIMEType = mimeType
	}
	return c.waitActive(ctx, uploaded.File)
}

// waitActive polls file until it leaves PROCESSING, giving up after the
// configured poll timeout.
func (c *Client) waitActive(ctx context.Context, file File) (File, error) {
	polled := false
	operation := func() (File, error) {
		if polled {
			var refreshed File
			if _, err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/v1beta/"+file.Name, nil, &refreshed); err != nil {
				return file, backoff.Permanent(fmt.Errorf("poll file: %w", err))
			}
			if refreshed.MIMEType == "" {
				refreshed.MIMEType = file.MIMEType
			}
			file = refreshed
		}
		polled = true
		switch file.State {
		case StateActive, "":
			// Older API revisions omit state for files that are immediately usable.
			if file.URI == "" {
				return file, backoff.Permanent(fmt.Errorf("file %s has no uri", file.Name))
			}
			return file, nil
		case StateFailed:
			msg := "processing failed"
			if file.Error != nil && file.Error.Message != "" {
				msg = file.Error.Message
			}
			return file, backoff.Permanent(fmt.Errorf("file %s: %s", file.Name, msg))
		}
		return file, fmt.Errorf("file %s still %s after %s", file.Name, file.State, c.pollTimeout)
	}
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.pollInterval)),
		backoff.WithMaxElapsedTime(c.pollTimeout),
	)
}

func displayName(path string) string {
	return filepath.Base(path)
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
