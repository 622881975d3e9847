package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrTransient marks failures worth retrying: timeouts, connection
	// resets, 5xx responses.
	ErrTransient = errors.New("transient failure")
	// ErrRateLimited marks catalog throttling. It is never retried by the
	// per-task policy; the orchestrator pauses the whole run instead.
	ErrRateLimited = errors.New("rate limited")
	// ErrPermanent marks failures that will not improve on retry, such as
	// rejected queries or malformed remote records.
	ErrPermanent = errors.New("permanent failure")
	// ErrParse marks unparsable beatmap data. The task still completes,
	// classified as Unclassified.
	ErrParse = errors.New("parse failure")
	// ErrPlacement marks filesystem faults while filing an artifact.
	ErrPlacement = errors.New("placement failure")
	// ErrUnreadable marks local audio files whose metadata cannot be read.
	ErrUnreadable = errors.New("unreadable file")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
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

// RateLimitError carries the server-requested pause alongside the
// ErrRateLimited marker. RetryAfter is zero when the response had no
// Retry-After header.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// RetryAfterFromError extracts the server-requested pause from an error
// chain, if present.
func RetryAfterFromError(err error) (time.Duration, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle.RetryAfter, true
	}
	return 0, false
}

// FailureKind classifies an error chain into the failure label persisted on
// the queue task.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrParse):
		return "parse_error"
	case errors.Is(err, ErrPlacement):
		return "placement_failed"
	case errors.Is(err, ErrUnreadable):
		return "unreadable_file"
	case errors.Is(err, ErrValidation):
		return "validation_failed"
	case errors.Is(err, ErrConfiguration):
		return "configuration_error"
	case errors.Is(err, ErrPermanent):
		return "permanent_failure"
	case errors.Is(err, ErrTransient):
		return "transient_failure"
	default:
		return "unexpected_failure"
	}
}

// IsRetryable reports whether the shared retry policy should attempt the
// operation again. Rate limiting deliberately returns false.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return false
	}
	return errors.Is(err, ErrTransient)
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
