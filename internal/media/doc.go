// Package media acquires audio for generation.
//
// AudioFetcher shells out to yt-dlp to extract a video's audio track as MP3,
// retrying at a constant interval, and inspects the result with ffprobe when it
// is installed. NewWorkDir hands out a per-item scratch directory that the
// caller removes once the item is done.
package media
