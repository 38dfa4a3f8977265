package deps

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"curator/internal/config"
)

// Requirement defines an external binary curator relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Requirements lists the binaries the media pipeline shells out to.
func Requirements(cfg config.Sources) []Requirement {
	ffmpeg := strings.TrimSpace(cfg.FFmpegBinary)
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	ffprobe := "ffprobe"
	if strings.ContainsRune(ffmpeg, filepath.Separator) {
		ffprobe = filepath.Join(filepath.Dir(ffmpeg), "ffprobe")
	}
	return []Requirement{
		{Name: "yt-dlp", Command: cfg.YtDlpBinary, Description: "Downloads YouTube audio"},
		{Name: "FFmpeg", Command: ffmpeg, Description: "Converts downloaded audio to MP3"},
		{Name: "FFprobe", Command: ffprobe, Description: "Verifies downloaded audio", Optional: true},
	}
}

// Missing returns the required statuses that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
