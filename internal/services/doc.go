// Package services holds cross-cutting support for the pipeline stages:
// the error taxonomy used to classify stage failures, the shared retry
// policy for transient network errors, and context annotation helpers that
// feed structured logging.
package services
