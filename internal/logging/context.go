package logging

import (
	"context"
	"log/slog"

	"marketcast/internal/services"
)

// WithContext derives a logger carrying the job ID and stage name stored in
// the context, if any.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = Nop()
	}
	if ctx == nil {
		return logger
	}
	if jobID, ok := services.JobIDFromContext(ctx); ok {
		logger = logger.With(String(FieldJobID, jobID))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		logger = logger.With(String(FieldStage, stage))
	}
	return logger
}

// WithComponent derives a logger whose console lines are prefixed with the
// component name.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = Nop()
	}
	if component == "" {
		return logger
	}
	return logger.With(String(FieldComponent, component))
}
