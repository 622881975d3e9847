package testsupport

import (
	"context"
	"testing"

	"beatmatcher/internal/config"
	"beatmatcher/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewTrack enqueues a track for tests using the provided store.
func NewTrack(t testing.TB, store *queue.Store, path, title, artist, key string) *queue.Task {
	t.Helper()

	task, err := store.NewTrack(context.Background(), path, title, artist, "", key)
	if err != nil {
		t.Fatalf("store.NewTrack: %v", err)
	}
	return task
}
