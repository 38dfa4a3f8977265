package llm

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MediaCategory is the coarse kind of a media file.
type MediaCategory string

const (
	MediaImage    MediaCategory = "image"
	MediaAudio    MediaCategory = "audio"
	MediaVideo    MediaCategory = "video"
	MediaDocument MediaCategory = "document"
	MediaUnknown  MediaCategory = "unknown"
)

var extensionTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".aac":  "audio/aac",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
}

// DetectMIMEType returns the MIME type for path, trusting well-known
// extensions first and sniffing the leading bytes otherwise.
func DetectMIMEType(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if mimeType, ok := extensionTypes[ext]; ok {
		return mimeType, nil
	}
	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		base, _, _ := strings.Cut(mimeType, ";")
		return strings.TrimSpace(base), nil
	}
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("detect media type: %w", err)
	}
	defer file.Close()
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("detect media type: %w", err)
	}
	base, _, _ := strings.Cut(http.DetectContentType(head[:n]), ";")
	return strings.TrimSpace(base), nil
}

// CategoryForMIME maps a MIME type to its media category.
func CategoryForMIME(mimeType string) MediaCategory {
	mimeType = strings.ToLower(mimeType)
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return MediaImage
	case strings.HasPrefix(mimeType, "audio/"):
		return MediaAudio
	case strings.HasPrefix(mimeType, "video/"):
		return MediaVideo
	case mimeType == "application/pdf", strings.HasPrefix(mimeType, "text/"):
		return MediaDocument
	default:
		return MediaUnknown
	}
}

// DetectMediaCategory classifies the file at path.
func DetectMediaCategory(path string) (MediaCategory, string, error) {
	mimeType, err := DetectMIMEType(path)
	if err != nil {
		return MediaUnknown, "", err
	}
	return CategoryForMIME(mimeType), mimeType, nil
}
