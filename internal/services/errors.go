package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks missing tools or credentials. Configuration errors
	// on required dependencies are the only class that aborts the whole process.
	ErrConfiguration = errors.New("configuration error")
	// ErrExternalTool marks failures of yt-dlp, ffmpeg, or ffprobe invocations.
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks input the pipeline cannot proceed with, such as an
	// unrecognized template type.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks absent upstream resources.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks recoverable failures of remote services.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether an error should abort the process rather than just
// the current job. Only configuration-class errors qualify.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
