package queue_test

import (
	"context"
	"errors"
	"testing"

	"adrescue/internal/queue"
	"adrescue/internal/testsupport"
)

func TestEnqueueAssignsIDAndTimestamps(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	item := &queue.Item{CreativeID: "YT_NB_動画_MCC01", Project: "NB"}
	if err := store.Enqueue(context.Background(), item); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if item.ID == "" {
		t.Fatal("expected generated ID")
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("status = %s, want pending", item.Status)
	}

	loaded, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.CreativeID != item.CreativeID || loaded.Project != "NB" {
		t.Fatalf("unexpected stored item: %+v", loaded)
	}
	if loaded.CreatedAt.IsZero() || loaded.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}
	if loaded.StartedAt != nil || loaded.CompletedAt != nil {
		t.Fatal("new items must not carry started or completed timestamps")
	}
}

func TestEnqueueRejectsLiveDuplicate(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := &queue.Item{CreativeID: "YT_NB_動画_MCC01", Project: "NB"}
	if err := store.Enqueue(ctx, first); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	dup := &queue.Item{CreativeID: "YT_NB_動画_MCC01", Project: "NB"}
	if err := store.Enqueue(ctx, dup); !errors.Is(err, queue.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// A different project with the same creative name is a distinct record.
	other := &queue.Item{CreativeID: "YT_NB_動画_MCC01", Project: "OM"}
	if err := store.Enqueue(ctx, other); err != nil {
		t.Fatalf("Enqueue other project: %v", err)
	}
}

func TestEnqueueAllowsDuplicateAfterTerminal(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := testsupport.MustEnqueue(t, store, "YT_NB_動画_MCC01", "NB")
	if err := store.MarkProcessing(ctx, first.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if err := store.MarkCompleted(ctx, first.ID, "https://example.com/v/1"); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	second := &queue.Item{CreativeID: "YT_NB_動画_MCC01", Project: "NB"}
	if err := store.Enqueue(ctx, second); err != nil {
		t.Fatalf("re-enqueue after completion: %v", err)
	}
}

func TestLifecycleTimestamps(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item := testsupport.MustEnqueue(t, store, "YT_NB_動画_MCC01", "NB")

	if err := store.MarkProcessing(ctx, item.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	processing, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if processing.Status != queue.StatusProcessing {
		t.Fatalf("status = %s, want processing", processing.Status)
	}
	if processing.StartedAt == nil {
		t.Fatal("expected started_at after processing transition")
	}
	if processing.CompletedAt != nil {
		t.Fatal("completed_at must only be set on completion")
	}

	if err := store.MarkCompleted(ctx, item.ID, "https://example.com/v/9"); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	completed, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if completed.Status != queue.StatusCompleted {
		t.Fatalf("status = %s, want completed", completed.Status)
	}
	if completed.CompletedAt == nil {
		t.Fatal("expected completed_at after completion")
	}
	if completed.UploadURL != "https://example.com/v/9" {
		t.Fatalf("upload url = %q", completed.UploadURL)
	}
}

func TestMarkFailedIncrementsRetryCount(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item := testsupport.MustEnqueue(t, store, "YT_NB_動画_MCC01", "NB")

	if err := store.MarkFailed(ctx, item.ID, "upload timed out"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	failed, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if failed.RetryCount != 1 {
		t.Fatalf("retry count = %d, want 1", failed.RetryCount)
	}
	if failed.ErrorMessage != "upload timed out" {
		t.Fatalf("error message = %q", failed.ErrorMessage)
	}
	if failed.CompletedAt != nil {
		t.Fatal("failed items must not carry completed_at")
	}

	// Retrying keeps the counter, a second failure raises it.
	if _, err := store.RetryFailed(ctx, item.ID); err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	retried, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if retried.Status != queue.StatusPending {
		t.Fatalf("status = %s, want pending", retried.Status)
	}
	if retried.RetryCount != 1 {
		t.Fatalf("retry count after retry = %d, want 1", retried.RetryCount)
	}
	if retried.ErrorMessage != "" {
		t.Fatalf("error message should be cleared, got %q", retried.ErrorMessage)
	}

	if err := store.MarkFailed(ctx, item.ID, "still failing"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	again, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if again.RetryCount != 2 {
		t.Fatalf("retry count = %d, want 2", again.RetryCount)
	}
}

func TestMarkReviewDoesNotCountRetry(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item := testsupport.MustEnqueue(t, store, "YT_NB_動画_MCC01", "NB")
	if err := store.MarkReview(ctx, item.ID, "no matching source video"); err != nil {
		t.Fatalf("MarkReview: %v", err)
	}

	review, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if review.Status != queue.StatusReview {
		t.Fatalf("status = %s, want review", review.Status)
	}
	if review.RetryCount != 0 {
		t.Fatalf("retry count = %d, want 0", review.RetryCount)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	a := testsupport.MustEnqueue(t, store, "YT_NB_動画A_MCC01", "NB")
	testsupport.MustEnqueue(t, store, "YT_NB_動画B_MCC01", "NB")
	if err := store.MarkProcessing(ctx, a.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}

	pending, err := store.List(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d, want 2", len(all))
	}
}

func TestCountsByStatus(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	a := testsupport.MustEnqueue(t, store, "YT_NB_動画A_MCC01", "NB")
	b := testsupport.MustEnqueue(t, store, "YT_NB_動画B_MCC01", "NB")
	testsupport.MustEnqueue(t, store, "YT_NB_動画C_MCC01", "NB")
	if err := store.MarkProcessing(ctx, a.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if err := store.MarkCompleted(ctx, a.ID, ""); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if err := store.MarkFailed(ctx, b.ID, "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	counts, err := store.CountsByStatus(ctx)
	if err != nil {
		t.Fatalf("CountsByStatus: %v", err)
	}
	if counts.Total != 3 || counts.Pending != 1 || counts.Completed != 1 || counts.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestClearByStatus(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	a := testsupport.MustEnqueue(t, store, "YT_NB_動画A_MCC01", "NB")
	testsupport.MustEnqueue(t, store, "YT_NB_動画B_MCC01", "NB")
	if err := store.MarkFailed(ctx, a.ID, "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	removed, err := store.Clear(ctx, queue.StatusFailed)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	counts, err := store.CountsByStatus(ctx)
	if err != nil {
		t.Fatalf("CountsByStatus: %v", err)
	}
	if counts.Total != 1 || counts.Failed != 0 {
		t.Fatalf("unexpected counts after clear: %+v", counts)
	}
}

func TestTransitionsOnMissingItem(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if err := store.MarkProcessing(ctx, "missing"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarksNeverReopenCompletedItems(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item := testsupport.MustEnqueue(t, store, "YT_NB_動画_MCC01", "NB")
	if err := store.MarkCompleted(ctx, item.ID, "https://example.com/v/1"); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	if err := store.MarkProcessing(ctx, item.ID); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("MarkProcessing on completed item: %v", err)
	}
	if err := store.MarkFailed(ctx, item.ID, "late failure"); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("MarkFailed on completed item: %v", err)
	}
	if err := store.MarkReview(ctx, item.ID, "second look"); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("MarkReview on completed item: %v", err)
	}

	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if got.CompletedAt == nil {
		t.Fatal("completed_at must survive rejected transitions")
	}
	if got.RetryCount != 0 {
		t.Fatalf("retry count = %d, want 0", got.RetryCount)
	}
}

func TestMarkCompletedRequiresLiveItem(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item := testsupport.MustEnqueue(t, store, "YT_NB_動画_MCC01", "NB")
	if err := store.MarkFailed(ctx, item.ID, "upload refused"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	if err := store.MarkCompleted(ctx, item.ID, "https://example.com/v/1"); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("MarkCompleted on failed item: %v", err)
	}

	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusFailed || got.CompletedAt != nil {
		t.Fatalf("failed item mutated: status=%s completedAt=%v", got.Status, got.CompletedAt)
	}
}

func TestHasLive(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item := testsupport.MustEnqueue(t, store, "YT_NB_動画_MCC01", "NB")

	live, err := store.HasLive(ctx, "YT_NB_動画_MCC01", "NB")
	if err != nil {
		t.Fatalf("HasLive: %v", err)
	}
	if !live {
		t.Fatal("expected live item")
	}

	if err := store.MarkProcessing(ctx, item.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if err := store.MarkCompleted(ctx, item.ID, ""); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	live, err = store.HasLive(ctx, "YT_NB_動画_MCC01", "NB")
	if err != nil {
		t.Fatalf("HasLive: %v", err)
	}
	if live {
		t.Fatal("completed items must not count as live")
	}
}
