package logging

import (
	"log/slog"
	"time"
)

// Shared attribute keys so log lines stay greppable across stages.
const (
	FieldComponent = "component"
	FieldJobID     = "job_id"
	FieldJobType   = "job_type"
	FieldStage     = "stage"
	FieldPlatform  = "platform"
	FieldEventType = "event_type"
)

// String builds a string attribute.
func String(key, value string) slog.Attr { return slog.String(key, value) }

// Int builds an int attribute.
func Int(key string, value int) slog.Attr { return slog.Int(key, value) }

// Int64 builds an int64 attribute.
func Int64(key string, value int64) slog.Attr { return slog.Int64(key, value) }

// Float64 builds a float attribute.
func Float64(key string, value float64) slog.Attr { return slog.Float64(key, value) }

// Bool builds a bool attribute.
func Bool(key string, value bool) slog.Attr { return slog.Bool(key, value) }

// Duration builds a duration attribute.
func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }

// Error builds the conventional error attribute, tolerating nil.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}
