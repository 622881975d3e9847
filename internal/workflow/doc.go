// Package workflow drives queued tracks through the pipeline stages with
// a bounded worker pool, a shared rate gate, and batch failure limits.
package workflow
