package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExtraction marks a per-file metadata extraction failure. Non-fatal:
	// the file is excluded from the current batch and retried next run.
	ErrExtraction = errors.New("extraction failed")
	// ErrCacheIO marks a cache read/write failure. Non-fatal: resolution
	// falls back to direct extraction without caching.
	ErrCacheIO = errors.New("cache io error")
	// ErrConfiguration marks invalid configuration. Fatal before any
	// processing starts, since bad quality settings could silently invert
	// score ordering.
	ErrConfiguration = errors.New("configuration error")
	// ErrExternalTool marks a failure invoking an external binary (ffprobe,
	// ffmpeg, fpcalc).
	ErrExternalTool = errors.New("external tool error")
	// ErrTransient marks failures with no better classification.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether an error should abort the batch before any file
// processing. Only configuration and storage-initialization failures
// qualify; per-file errors never do.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
