package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"adrescue/internal/config"
	"adrescue/internal/logging"
	"adrescue/internal/preflight"
	"adrescue/internal/workflow"
)

// BatchRunner runs one recovery batch.
type BatchRunner interface {
	RunBatch(ctx context.Context) (workflow.Summary, error)
}

// Daemon executes batches in a loop until its context is cancelled.
type Daemon struct {
	cfg    *config.Config
	runner BatchRunner
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock

	check         func(ctx context.Context, cfg *config.Config) []preflight.Result
	watchInterval time.Duration
	errorRetry    time.Duration

	running atomic.Bool
}

// Option adjusts daemon construction.
type Option func(*Daemon)

// WithPreflight replaces the readiness checks run before each batch.
func WithPreflight(fn func(ctx context.Context, cfg *config.Config) []preflight.Result) Option {
	return func(d *Daemon) {
		if fn != nil {
			d.check = fn
		}
	}
}

// WithIntervals overrides the pacing between batches.
func WithIntervals(watch, errorRetry time.Duration) Option {
	return func(d *Daemon) {
		d.watchInterval = watch
		d.errorRetry = errorRetry
	}
}

// New constructs a daemon. The lock file lives in the work directory, which
// must exist before Run is called.
func New(cfg *config.Config, runner BatchRunner, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || runner == nil {
		return nil, errors.New("daemon requires config and batch runner")
	}

	lockPath := filepath.Join(cfg.Paths.WorkDir, "adrescued.lock")
	d := &Daemon{
		cfg:           cfg,
		runner:        runner,
		logger:        logging.NewComponentLogger(logger, "daemon"),
		lockPath:      lockPath,
		lock:          flock.New(lockPath),
		check:         preflight.RunAll,
		watchInterval: time.Duration(cfg.Workflow.WatchIntervalSeconds) * time.Second,
		errorRetry:    time.Duration(cfg.Workflow.ErrorRetrySeconds) * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Running reports whether the watch loop is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LockPath returns the single-instance lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Run executes batches until ctx is cancelled. Between batches it waits out
// the watch interval, or the error retry interval after a failed batch or
// failed preflight. Cancellation is a normal shutdown, not an error.
func (d *Daemon) Run(ctx context.Context) error {
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another adrescue instance is already running")
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release lock", logging.Error(err))
		}
	}()

	d.running.Store(true)
	defer d.running.Store(false)

	d.logger.Info("watch loop started",
		logging.String("lock", d.lockPath),
		logging.Duration("interval", d.watchInterval),
	)

	for {
		wait := d.watchInterval
		if err := d.runOnce(ctx); err != nil {
			if isCancellation(err) {
				d.logger.Info("watch loop stopped")
				return nil
			}
			d.logger.Error("batch run failed", logging.Error(err))
			wait = d.errorRetry
		}

		select {
		case <-ctx.Done():
			d.logger.Info("watch loop stopped")
			return nil
		case <-time.After(wait):
		}
	}
}

func (d *Daemon) runOnce(ctx context.Context) error {
	results := d.check(ctx, d.cfg)
	if !preflight.Passed(results) {
		for _, failure := range preflight.Failures(results) {
			d.logger.Warn("preflight check failed",
				logging.String("check", failure.Name),
				logging.String("detail", failure.Detail),
			)
		}
		return errors.New("preflight checks failed")
	}

	summary, err := d.runner.RunBatch(ctx)
	if err != nil {
		return err
	}
	if summary.Total > 0 {
		d.logger.Info("batch finished",
			logging.Int("total", summary.Total),
			logging.Int("succeeded", summary.Succeeded),
			logging.Int("failed", summary.Failed),
			logging.Int("skipped", summary.Skipped),
		)
	}
	return nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
