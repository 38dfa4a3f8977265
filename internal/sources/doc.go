// Package sources discovers and reads the material curator writes about.
//
// YouTube channels are polled through their upload feeds, resolved from the
// channel page with goquery when the URL carries a handle rather than a
// channel ID. RSS and podcast feeds are parsed with gofeed. Web articles are
// reduced to their main content and converted to markdown. Podcast audio is
// saved by a Downloader that retries at a constant interval.
package sources
