package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"adrescue/internal/catalog"
	"adrescue/internal/channel"
	"adrescue/internal/config"
	"adrescue/internal/identifier"
	"adrescue/internal/logging"
	"adrescue/internal/notifications"
	"adrescue/internal/queue"
	"adrescue/internal/services"
	"adrescue/internal/services/composer"
	"adrescue/internal/services/feed"
	"adrescue/internal/services/uploader"
)

// Summary reports the outcome of one batch.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Duration  time.Duration
}

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeSkipped
	outcomeFailed
)

// Orchestrator coordinates a recovery batch across the injected services.
type Orchestrator struct {
	cfg      *config.Config
	store    *queue.Store
	source   feed.Source
	provider catalog.Provider
	composer composer.Composer
	uploader uploader.Uploader
	router   *channel.Router
	notifier notifications.Service
	logger   *slog.Logger
}

// New wires an orchestrator. The notifier may be nil; the logger may be nil.
func New(
	cfg *config.Config,
	store *queue.Store,
	source feed.Source,
	provider catalog.Provider,
	comp composer.Composer,
	up uploader.Uploader,
	router *channel.Router,
	notifier notifications.Service,
	logger *slog.Logger,
) *Orchestrator {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		source:   source,
		provider: provider,
		composer: comp,
		uploader: up,
		router:   router,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "workflow"),
	}
}

// RunBatch processes every disapproved creative currently in the feed.
// Individual failures are recorded and counted; the batch continues. The
// returned error is non-nil only when the batch itself could not run or was
// cancelled.
func (o *Orchestrator) RunBatch(ctx context.Context) (Summary, error) {
	started := time.Now()
	ctx = services.WithRequestID(ctx, uuid.NewString())
	log := logging.WithContext(ctx, o.logger)

	candidates, err := o.source.Disapproved(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("read feed: %w", err)
	}

	summary := Summary{Total: len(candidates)}
	if len(candidates) == 0 {
		log.Info("no disapproved creatives found")
		summary.Duration = time.Since(started)
		return summary, nil
	}

	log.Info("batch started", logging.Int("candidates", len(candidates)))
	if err := o.notifier.NotifyBatchStarted(ctx, len(candidates)); err != nil {
		log.Warn("batch start notification failed", logging.Error(err))
	}

	delay := time.Duration(o.cfg.Workflow.ItemDelaySeconds) * time.Second
	for i, candidate := range candidates {
		result, err := o.processCandidate(ctx, candidate)
		switch result {
		case outcomeSucceeded:
			summary.Succeeded++
		case outcomeSkipped:
			summary.Skipped++
		case outcomeFailed:
			summary.Failed++
		}
		if err != nil && isCancellation(err) {
			summary.Duration = time.Since(started)
			return summary, err
		}

		if delay > 0 && i < len(candidates)-1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				summary.Duration = time.Since(started)
				return summary, ctx.Err()
			}
		}
	}

	summary.Duration = time.Since(started)
	log.Info("batch finished",
		logging.Int("total", summary.Total),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Duration("duration", summary.Duration),
	)
	if err := o.notifier.NotifyBatchCompleted(ctx, summary.Succeeded, summary.Failed, summary.Duration); err != nil {
		log.Warn("batch completion notification failed", logging.Error(err))
	}
	return summary, nil
}

// processCandidate produces a replacement first and only then enqueues the
// pending handoff record. Pending items are the contract with the downstream
// swap consumer: each one carries the uploaded replacement URL and waits for
// the consumer to mark it processing and completed.
func (o *Orchestrator) processCandidate(ctx context.Context, candidate feed.Candidate) (outcome, error) {
	parsed := identifier.Parse(candidate.AdGroupName)

	log := logging.WithContext(ctx, o.logger).With(
		logging.String(logging.FieldIdentifier, candidate.AdGroupName),
		logging.String(logging.FieldProject, parsed.Project),
	)

	live, err := o.store.HasLive(ctx, candidate.AdGroupName, parsed.Project)
	if err != nil {
		return outcomeFailed, err
	}
	if live {
		log.Info("replacement already queued")
		return outcomeSkipped, nil
	}

	binding, err := o.router.Route(parsed.Project)
	if err != nil {
		return o.parkForReview(ctx, log, candidate, parsed, err.Error())
	}

	produced, err := o.produce(ctx, log, parsed, binding)
	if err != nil {
		if isCancellation(err) {
			return outcomeFailed, err
		}
		if services.Expected(err) {
			return o.parkForReview(ctx, log, candidate, parsed, err.Error())
		}
		log.Error("recovery failed", logging.Error(err))
		if recErr := o.recordFailure(ctx, candidate, parsed, produced, err.Error()); recErr != nil {
			log.Error("failed to record failure", logging.Error(recErr))
		}
		if notifyErr := o.notifier.NotifyError(ctx, err, candidate.AdGroupName); notifyErr != nil {
			log.Warn("error notification failed", logging.Error(notifyErr))
		}
		return outcomeFailed, err
	}

	item := o.newItem(candidate, parsed)
	item.ChannelHandle = binding.CredentialHandle
	item.SourceFile = produced.sourcePath
	item.ComposedFile = produced.composedPath
	item.UploadURL = produced.result.URL
	if err := o.store.Enqueue(ctx, item); err != nil {
		if errors.Is(err, queue.ErrDuplicate) {
			log.Info("replacement already queued")
			return outcomeSkipped, nil
		}
		return outcomeFailed, fmt.Errorf("enqueue replacement %s: %w", candidate.AdGroupName, err)
	}

	ctx = services.WithItemID(ctx, item.ID)
	logging.WithContext(ctx, log).Info("replacement queued for swap",
		logging.String("upload_url", produced.result.URL))
	if err := o.notifier.NotifyRecoveryCompleted(ctx, candidate.AdGroupName, produced.result.URL); err != nil {
		log.Warn("recovery notification failed", logging.Error(err))
	}
	return outcomeSucceeded, nil
}

// production holds the artifacts of the resolve, compose, upload sequence.
// Partial paths survive an error so the failure record can carry them.
type production struct {
	sourcePath   string
	composedPath string
	result       uploader.Result
}

func (o *Orchestrator) produce(
	ctx context.Context,
	log *slog.Logger,
	parsed identifier.Parsed,
	binding channel.Binding,
) (production, error) {
	var p production

	ctx = services.WithStage(ctx, "resolve")
	available, err := o.provider.List(ctx, parsed.Project)
	if err != nil {
		return p, services.Wrap(services.ErrExternalService, "resolve", "list", parsed.Project, err)
	}

	// The primary name (truncated past the shoot segment) is the preferred
	// search key; the full video name is the fallback.
	resolution, ok := catalog.Resolve(parsed.PrimaryVideoName, available)
	if !ok && parsed.VideoName != parsed.PrimaryVideoName {
		resolution, ok = catalog.Resolve(parsed.VideoName, available)
	}
	if !ok {
		return p, services.Wrap(services.ErrNoMatch, "resolve", "search", parsed.VideoName, nil)
	}
	log.Info("source video resolved",
		logging.String("video", resolution.Candidate.DisplayName),
		logging.Bool("exact", resolution.Exact),
		logging.Float64("score", resolution.Score),
	)

	p.sourcePath, err = o.provider.Fetch(ctx, resolution.Candidate)
	if err != nil {
		return p, services.Wrap(services.ErrExternalService, "resolve", "fetch", resolution.Candidate.DisplayName, err)
	}

	ctx = services.WithStage(ctx, "compose")
	destDir := filepath.Join(o.cfg.Paths.WorkDir, "compose", uuid.NewString()[:8])
	p.composedPath, err = o.composer.Compose(ctx, p.sourcePath, destDir)
	if err != nil {
		if isCancellation(err) {
			return p, err
		}
		// Composition is best effort: a failed render falls back to
		// re-uploading the original source untouched.
		log.Warn("composition failed, uploading source as-is", logging.Error(err))
		p.composedPath = p.sourcePath
	}

	ctx = services.WithStage(ctx, "upload")
	p.result, err = o.uploader.Upload(ctx, uploader.Request{
		FilePath:         p.composedPath,
		Title:            parsed.VideoName,
		CredentialHandle: binding.CredentialHandle,
	})
	if err != nil {
		return p, err
	}
	return p, nil
}

func (o *Orchestrator) parkForReview(
	ctx context.Context,
	log *slog.Logger,
	candidate feed.Candidate,
	parsed identifier.Parsed,
	reason string,
) (outcome, error) {
	log.Warn("candidate needs review", logging.String("reason", reason))
	item := o.newItem(candidate, parsed)
	if err := o.store.Enqueue(ctx, item); err != nil {
		if errors.Is(err, queue.ErrDuplicate) {
			return outcomeSkipped, nil
		}
		return outcomeFailed, err
	}
	if err := o.store.MarkReview(ctx, item.ID, reason); err != nil {
		log.Error("failed to record review state", logging.Error(err))
		return outcomeFailed, err
	}
	if err := o.notifier.NotifyReviewNeeded(ctx, candidate.AdGroupName, reason); err != nil {
		log.Warn("review notification failed", logging.Error(err))
	}
	return outcomeSkipped, nil
}

// recordFailure writes an audit row for a candidate whose production failed,
// keeping any partial artifact paths for later inspection.
func (o *Orchestrator) recordFailure(
	ctx context.Context,
	candidate feed.Candidate,
	parsed identifier.Parsed,
	p production,
	message string,
) error {
	item := o.newItem(candidate, parsed)
	item.SourceFile = p.sourcePath
	item.ComposedFile = p.composedPath
	if err := o.store.Enqueue(ctx, item); err != nil {
		if errors.Is(err, queue.ErrDuplicate) {
			return nil
		}
		return err
	}
	return o.store.MarkFailed(ctx, item.ID, message)
}

func (o *Orchestrator) newItem(candidate feed.Candidate, parsed identifier.Parsed) *queue.Item {
	return &queue.Item{
		CreativeID:   candidate.AdGroupName,
		Project:      parsed.Project,
		VideoName:    parsed.VideoName,
		AccountID:    candidate.AccountID,
		MetadataJSON: encodeMetadata(parsed),
	}
}

func encodeMetadata(parsed identifier.Parsed) string {
	data, err := json.Marshal(map[string]any{
		"concept":            parsed.ConceptName,
		"primary_video_name": parsed.PrimaryVideoName,
		"has_marker":         parsed.HasMarker,
		"trailing_numbers":   parsed.TrailingNumbers,
	})
	if err != nil {
		return ""
	}
	return string(data)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

type noopNotifier struct{}

func (noopNotifier) NotifyBatchStarted(context.Context, int) error                       { return nil }
func (noopNotifier) NotifyBatchCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopNotifier) NotifyRecoveryCompleted(context.Context, string, string) error       { return nil }
func (noopNotifier) NotifyReviewNeeded(context.Context, string, string) error            { return nil }
func (noopNotifier) NotifyError(context.Context, error, string) error                    { return nil }
func (noopNotifier) TestNotification(context.Context) error                              { return nil }
