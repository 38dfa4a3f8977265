package services

import "context"

type contextKey string

const (
	stageKey      contextKey = "stage"
	requestIDKey  contextKey = "request_id"
	sourceKindKey contextKey = "source_kind"
	sourceURLKey  contextKey = "source_url"
)

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSource annotates context with the kind (video, article, podcast) and URL
// of the item being processed.
func WithSource(ctx context.Context, kind, url string) context.Context {
	if kind != "" {
		ctx = context.WithValue(ctx, sourceKindKey, kind)
	}
	if url != "" {
		ctx = context.WithValue(ctx, sourceURLKey, url)
	}
	return ctx
}

// SourceFromContext returns the source kind and URL if present.
func SourceFromContext(ctx context.Context) (kind, url string) {
	kind, _ = ctx.Value(sourceKindKey).(string)
	url, _ = ctx.Value(sourceURLKey).(string)
	return kind, url
}
