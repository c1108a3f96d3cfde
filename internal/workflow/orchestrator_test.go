package workflow_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"adrescue/internal/catalog"
	"adrescue/internal/channel"
	"adrescue/internal/config"
	"adrescue/internal/logging"
	"adrescue/internal/queue"
	"adrescue/internal/services/feed"
	"adrescue/internal/services/uploader"
	"adrescue/internal/testsupport"
	"adrescue/internal/workflow"
)

type fakeFeed struct {
	candidates []feed.Candidate
	err        error
}

func (f *fakeFeed) Disapproved(ctx context.Context) ([]feed.Candidate, error) {
	return f.candidates, f.err
}

type fakeProvider struct {
	videos   map[string][]catalog.Candidate
	listErr  error
	fetchErr error
}

func (f *fakeProvider) List(ctx context.Context, projectTag string) ([]catalog.Candidate, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.videos[projectTag], nil
}

func (f *fakeProvider) Fetch(ctx context.Context, candidate catalog.Candidate) (string, error) {
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	return candidate.ID, nil
}

type fakeComposer struct {
	err   error
	calls int
}

func (f *fakeComposer) Compose(ctx context.Context, sourcePath, destDir string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return filepath.Join(destDir, "composed.mp4"), nil
}

type fakeUploader struct {
	err      error
	requests []uploader.Request
}

func (f *fakeUploader) Upload(ctx context.Context, req uploader.Request) (uploader.Result, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return uploader.Result{}, f.err
	}
	return uploader.Result{VideoID: "vid", URL: "https://videos.example.com/vid"}, nil
}

type fixture struct {
	cfg      *config.Config
	store    *queue.Store
	feed     *fakeFeed
	provider *fakeProvider
	composer *fakeComposer
	uploader *fakeUploader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return &fixture{
		cfg:   cfg,
		store: testsupport.MustOpenStore(t, cfg),
		feed:  &fakeFeed{},
		provider: &fakeProvider{videos: map[string][]catalog.Candidate{
			"NB": {{ID: "/catalog/NB/老後は考えるな.mp4", DisplayName: "老後は考えるな.mp4"}},
		}},
		composer: &fakeComposer{},
		uploader: &fakeUploader{},
	}
}

func (f *fixture) orchestrator(t *testing.T) *workflow.Orchestrator {
	t.Helper()
	router, err := channel.NewRouter(f.cfg.Channels)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return workflow.New(f.cfg, f.store, f.feed, f.provider, f.composer, f.uploader, router, nil, logging.NewNop())
}

func nbCandidate(name string) feed.Candidate {
	return feed.Candidate{AdGroupName: name, AccountID: "1234567890"}
}

func TestRunBatchRecoversCandidate(t *testing.T) {
	f := newFixture(t)
	f.feed.candidates = []feed.Candidate{nbCandidate("YT_NB_老後は考えるな_MCC01_28_01")}

	summary, err := f.orchestrator(t).RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if summary.Total != 1 || summary.Succeeded != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	// The batch hands finished replacements to the swap consumer as pending
	// items carrying the upload URL.
	pending, err := f.store.List(context.Background(), queue.StatusPending)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending items = %d, want 1", len(pending))
	}
	item := pending[0]
	if item.UploadURL != "https://videos.example.com/vid" {
		t.Fatalf("upload url = %q", item.UploadURL)
	}
	if item.ChannelHandle != "token_NB" {
		t.Fatalf("channel handle = %q", item.ChannelHandle)
	}
	if item.SourceFile != "/catalog/NB/老後は考えるな.mp4" {
		t.Fatalf("source file = %q", item.SourceFile)
	}
	if item.CompletedAt != nil {
		t.Fatal("handoff items must not be completed")
	}

	if len(f.uploader.requests) != 1 {
		t.Fatalf("uploads = %d, want 1", len(f.uploader.requests))
	}
	req := f.uploader.requests[0]
	if req.CredentialHandle != "token_NB" {
		t.Fatalf("credential handle = %q", req.CredentialHandle)
	}
	if req.Title != "老後は考えるな" {
		t.Fatalf("title = %q", req.Title)
	}
}

func TestRunBatchPrefersPrimaryName(t *testing.T) {
	f := newFixture(t)
	// The catalog holds only the truncated primary cut; the full name with
	// its digression segments scores below the fuzzy threshold on its own.
	f.provider.videos["NB"] = []catalog.Candidate{
		{ID: "/catalog/NB/概念_撮影01_台本.mp4", DisplayName: "概念_撮影01_台本.mp4"},
	}
	f.feed.candidates = []feed.Candidate{
		nbCandidate("YT_NB_概念_撮影01_台本_余談A_余談B_余談C_MCC01_28_01"),
	}

	summary, err := f.orchestrator(t).RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if summary.Succeeded != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	pending, err := f.store.List(context.Background(), queue.StatusPending)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending items = %d, want 1", len(pending))
	}
	if pending[0].SourceFile != "/catalog/NB/概念_撮影01_台本.mp4" {
		t.Fatalf("source file = %q", pending[0].SourceFile)
	}
}

func TestRunBatchContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	f.feed.candidates = []feed.Candidate{
		nbCandidate("YT_NB_存在しない動画_MCC01"),
		nbCandidate("YT_NB_老後は考えるな_MCC01"),
	}

	summary, err := f.orchestrator(t).RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if summary.Total != 2 || summary.Succeeded != 1 || summary.Skipped != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	reviews, err := f.store.List(context.Background(), queue.StatusReview)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(reviews) != 1 {
		t.Fatalf("review items = %d, want 1", len(reviews))
	}
}

func TestRunBatchUnknownProjectGoesToReview(t *testing.T) {
	f := newFixture(t)
	f.feed.candidates = []feed.Candidate{nbCandidate("YT_XX_動画_MCC01")}

	summary, err := f.orchestrator(t).RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if summary.Skipped != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	reviews, err := f.store.List(context.Background(), queue.StatusReview)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(reviews) != 1 {
		t.Fatalf("review items = %d, want 1", len(reviews))
	}
	if f.composer.calls != 0 {
		t.Fatal("unroutable candidates must not reach composition")
	}
}

func TestRunBatchUploadFailureCountsFailed(t *testing.T) {
	f := newFixture(t)
	f.feed.candidates = []feed.Candidate{nbCandidate("YT_NB_老後は考えるな_MCC01")}
	f.uploader.err = errors.New("upstream 502")

	summary, err := f.orchestrator(t).RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if summary.Failed != 1 || summary.Succeeded != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	failed, listErr := f.store.List(context.Background(), queue.StatusFailed)
	if listErr != nil {
		t.Fatalf("List: %v", listErr)
	}
	if len(failed) != 1 {
		t.Fatalf("failed items = %d, want 1", len(failed))
	}
	if failed[0].RetryCount != 1 {
		t.Fatalf("retry count = %d, want 1", failed[0].RetryCount)
	}
	if failed[0].SourceFile != "/catalog/NB/老後は考えるな.mp4" {
		t.Fatalf("source file = %q", failed[0].SourceFile)
	}
	if failed[0].UploadURL != "" {
		t.Fatalf("failed item must not carry an upload url, got %q", failed[0].UploadURL)
	}
}

func TestRunBatchCompositionFailureFallsBackToSource(t *testing.T) {
	f := newFixture(t)
	f.feed.candidates = []feed.Candidate{nbCandidate("YT_NB_老後は考えるな_MCC01")}
	f.composer.err = errors.New("render failed")

	summary, err := f.orchestrator(t).RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if summary.Succeeded != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(f.uploader.requests) != 1 {
		t.Fatalf("uploads = %d, want 1", len(f.uploader.requests))
	}
	if f.uploader.requests[0].FilePath != "/catalog/NB/老後は考えるな.mp4" {
		t.Fatalf("expected source fallback, uploaded %q", f.uploader.requests[0].FilePath)
	}

	pending, err := f.store.List(context.Background(), queue.StatusPending)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending items = %d, want 1", len(pending))
	}
	if pending[0].ComposedFile != pending[0].SourceFile {
		t.Fatalf("composed file = %q, want source fallback", pending[0].ComposedFile)
	}
}

func TestRunBatchSkipsLiveDuplicates(t *testing.T) {
	f := newFixture(t)
	f.feed.candidates = []feed.Candidate{nbCandidate("YT_NB_老後は考えるな_MCC01")}
	orchestrator := f.orchestrator(t)

	// Park a live record for the same creative.
	item := &queue.Item{CreativeID: "YT_NB_老後は考えるな_MCC01", Project: "NB"}
	if err := f.store.Enqueue(context.Background(), item); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	summary, err := orchestrator.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if summary.Skipped != 1 || summary.Succeeded != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(f.uploader.requests) != 0 {
		t.Fatal("duplicates must not be uploaded")
	}
	if f.composer.calls != 0 {
		t.Fatal("duplicates must not reach composition")
	}
}

func TestRunBatchFeedErrorAborts(t *testing.T) {
	f := newFixture(t)
	f.feed.err = errors.New("export unreadable")

	if _, err := f.orchestrator(t).RunBatch(context.Background()); err == nil {
		t.Fatal("expected error when feed cannot be read")
	}
}

func TestRunBatchHonorsCancellation(t *testing.T) {
	f := newFixture(t)
	f.feed.candidates = []feed.Candidate{
		nbCandidate("YT_NB_老後は考えるな_MCC01"),
		nbCandidate("YT_NB_老後は考えるなB_MCC01"),
	}
	f.cfg.Workflow.ItemDelaySeconds = 60

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var summary workflow.Summary
	var runErr error
	go func() {
		defer close(done)
		summary, runErr = f.orchestrator(t).RunBatch(ctx)
	}()

	// Cancel while the orchestrator waits out the inter-item delay.
	cancel()
	<-done

	if !errors.Is(runErr, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", runErr)
	}
	if summary.Total != 2 {
		t.Fatalf("total = %d, want 2", summary.Total)
	}
}

func TestRunBatchEmptyFeed(t *testing.T) {
	f := newFixture(t)

	summary, err := f.orchestrator(t).RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if summary.Total != 0 || summary.Succeeded != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}
