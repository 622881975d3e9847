// Package queue persists pipeline tasks in SQLite.
//
// One task tracks one local audio track through the acquisition pipeline.
// Completed tasks double as a cache: a later run that scans the same track
// resolves immediately when the placed artifact still exists on disk.
package queue
