package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalService marks failures of downstream services and tools
	// (catalog access, composition subprocess, upload API).
	ErrExternalService = errors.New("external service error")
	// ErrNoMatch marks a candidate whose source video could not be located.
	ErrNoMatch = errors.New("no matching source video")
	// ErrUnknownProject marks a candidate whose project has no channel binding.
	ErrUnknownProject = errors.New("unknown project")
	// ErrValidation marks malformed input that cannot be processed.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks configuration problems detected at runtime.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks failures that may succeed on retry.
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

// Expected reports whether the error represents an anticipated per-candidate
// outcome rather than a processing failure. Expected errors mark a candidate
// for manual review; unexpected ones count against the batch.
func Expected(err error) bool {
	return errors.Is(err, ErrNoMatch) || errors.Is(err, ErrUnknownProject)
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
