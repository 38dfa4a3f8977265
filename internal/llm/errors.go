package llm

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNoProviderAvailable means the registry is empty or no fallback provider exists.
	ErrNoProviderAvailable = errors.New("no llm provider available")
	// ErrProviderNotRegistered is returned in strict mode for an unknown provider name.
	ErrProviderNotRegistered = errors.New("llm provider not registered")
	// ErrUnsupportedMedia means the provider cannot accept the media category.
	ErrUnsupportedMedia = errors.New("unsupported media")
	// ErrAllModelsExhausted means every candidate in a tier was rate limited.
	ErrAllModelsExhausted = errors.New("all models exhausted")
)

// ErrorKind classifies a generation failure at the adapter boundary.
type ErrorKind int

const (
	KindFailed ErrorKind = iota
	KindRateLimited
	KindUnsupportedMedia
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindUnsupportedMedia:
		return "unsupported_media"
	default:
		return "failed"
	}
}

// GenerationError is the structured failure returned by provider adapters.
type GenerationError struct {
	Provider   string
	Model      string
	Kind       ErrorKind
	StatusCode int
	RetryAfter time.Duration
	Message    string
	Err        error
}

func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString("llm ")
	b.WriteString(e.Provider)
	if e.Model != "" {
		b.WriteByte('/')
		b.WriteString(e.Model)
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, ": http %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrUnsupportedMedia) match unsupported-media failures.
func (e *GenerationError) Is(target error) bool {
	return target == ErrUnsupportedMedia && e.Kind == KindUnsupportedMedia
}

// UnsupportedMedia builds the error an adapter returns for a category it cannot handle.
func UnsupportedMedia(provider string, category MediaCategory) error {
	return &GenerationError{
		Provider: provider,
		Kind:     KindUnsupportedMedia,
		Message:  fmt.Sprintf("%s media is not supported", category),
	}
}

// ExhaustedError reports that every candidate model in a tier was rate limited.
type ExhaustedError struct {
	Provider string
	Tier     Tier
	Models   []string
	Last     error
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("%s: %s tier on %s (tried %s)", ErrAllModelsExhausted, e.Tier, e.Provider, strings.Join(e.Models, ", "))
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

func (e *ExhaustedError) Is(target error) bool { return target == ErrAllModelsExhausted }

var rateLimitMarkers = []string{
	"rate limit",
	"too many requests",
	"429",
	"quota exceeded",
	"resource exhausted",
	"resource_exhausted",
	"exceeded your current quota",
}

// IsRateLimited reports whether err signals throttling. A GenerationError
// classified as rate limited is authoritative; anything else falls back to a
// case-insensitive match of the error text, so a gateway reporting an upstream
// throttle under another status still counts.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	text := err.Error()
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		switch genErr.Kind {
		case KindRateLimited:
			return true
		case KindUnsupportedMedia:
			return false
		}
		// Match the backend message only so model names never trigger a match.
		text = genErr.Message
		if genErr.Err != nil {
			text += " " + genErr.Err.Error()
		}
	}
	text = strings.ToLower(text)
	for _, marker := range rateLimitMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// RetryAfter returns the backend's retry hint when err carries one.
func RetryAfter(err error) (time.Duration, bool) {
	var genErr *GenerationError
	if errors.As(err, &genErr) && genErr.RetryAfter > 0 {
		return genErr.RetryAfter, true
	}
	return 0, false
}
