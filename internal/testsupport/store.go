package testsupport

import (
	"context"
	"testing"

	"adrescue/internal/config"
	"adrescue/internal/queue"
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

// MustEnqueue inserts a pending item for tests.
func MustEnqueue(t testing.TB, store *queue.Store, creativeID, project string) *queue.Item {
	t.Helper()

	item := &queue.Item{CreativeID: creativeID, Project: project}
	if err := store.Enqueue(context.Background(), item); err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return item
}
