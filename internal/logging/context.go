package logging

import (
	"context"
	"log/slog"

	"curator/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldRequestID is the standardized structured logging key for cycle and request correlation identifiers.
	FieldRequestID = "request_id"
	// FieldSourceKind is the standardized structured logging key for the kind of item (video, article, podcast).
	FieldSourceKind = "source_kind"
	// FieldSourceURL is the standardized structured logging key for the item URL.
	FieldSourceURL = "source_url"
	// FieldProvider is the standardized structured logging key for LLM provider names.
	FieldProvider = "provider"
	// FieldModel is the standardized structured logging key for LLM model identifiers.
	FieldModel = "model"
	// FieldTier is the standardized structured logging key for LLM model tiers.
	FieldTier = "tier"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step for the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRequestID, rid))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	kind, url := services.SourceFromContext(ctx)
	if kind != "" {
		fields = append(fields, slog.String(FieldSourceKind, kind))
	}
	if url != "" {
		fields = append(fields, slog.String(FieldSourceURL, url))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
