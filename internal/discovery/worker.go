package discovery

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one listing queued for discovery. Force bypasses the
// reprocess guard.
type Task struct {
	ListingURL string
	ListingID  string
	Force      bool
}

// ReprocessGuard skips listings already handled recently and tracks
// per-listing failures.
type ReprocessGuard interface {
	IsRecentlyProcessed(ctx context.Context, listingURL string) (bool, error)
	MarkProcessed(ctx context.Context, listingURL string, ttl time.Duration) error
	IncrementFailureCount(ctx context.Context, listingURL string) (int64, error)
}

// RunnerConfig tunes the intake worker pool.
type RunnerConfig struct {
	Workers      int
	MaxRetries   int
	ReprocessTTL time.Duration
	TaskTimeout  time.Duration
}

// Runner consumes queued listing tasks with a small worker pool. The
// pool defaults to one worker; all workers funnel through the service's
// shared validator, so its rate gate holds whatever the pool size.
type Runner struct {
	service   *Service
	guard     ReprocessGuard
	logger    *zap.Logger
	cfg       RunnerConfig
	taskQueue chan Task
	wg        sync.WaitGroup
}

func NewRunner(service *Service, guard ReprocessGuard, cfg RunnerConfig, logger *zap.Logger) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.TaskTimeout == 0 {
		cfg.TaskTimeout = 5 * time.Minute
	}
	return &Runner{
		service:   service,
		guard:     guard,
		logger:    logger,
		cfg:       cfg,
		taskQueue: make(chan Task, cfg.Workers*2),
	}
}

func (r *Runner) Start() {
	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
}

// Stop closes the intake and waits for the workers to drain whatever
// is still queued.
func (r *Runner) Stop() {
	close(r.taskQueue)
	r.wg.Wait()
}

func (r *Runner) Submit(task Task) {
	r.taskQueue <- task
}

func (r *Runner) worker() {
	defer r.wg.Done()
	for task := range r.taskQueue {
		r.processTask(task)
	}
}

func (r *Runner) processTask(task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.TaskTimeout)
	defer cancel()

	if !task.Force && r.guard != nil {
		recent, err := r.guard.IsRecentlyProcessed(ctx, task.ListingURL)
		if err != nil {
			r.logger.Error("reprocess check failed", zap.String("url", task.ListingURL), zap.Error(err))
		}
		if recent {
			r.logger.Info("skipping recently processed listing", zap.String("url", task.ListingURL))
			return
		}
	}

	_, err := r.service.ProcessListing(ctx, Listing{"url": task.ListingURL}, task.ListingID)
	if err != nil {
		r.handleFailure(ctx, task, err)
		return
	}

	if r.guard != nil {
		if err := r.guard.MarkProcessed(ctx, task.ListingURL, r.cfg.ReprocessTTL); err != nil {
			r.logger.Error("failed to mark listing processed", zap.String("url", task.ListingURL), zap.Error(err))
		}
	}
}

func (r *Runner) handleFailure(ctx context.Context, task Task, discoverErr error) {
	r.logger.Warn("listing discovery failed", zap.String("url", task.ListingURL), zap.Error(discoverErr))

	if r.guard == nil {
		return
	}
	failures, err := r.guard.IncrementFailureCount(ctx, task.ListingURL)
	if err != nil {
		r.logger.Error("failed to increment failure count", zap.String("url", task.ListingURL), zap.Error(err))
		return
	}
	if failures >= int64(r.cfg.MaxRetries) {
		r.logger.Error("max retries reached for listing", zap.String("url", task.ListingURL))
		// Guard it like a success so the queue stops churning on it.
		if err := r.guard.MarkProcessed(ctx, task.ListingURL, r.cfg.ReprocessTTL); err != nil {
			r.logger.Error("failed to park failed listing", zap.String("url", task.ListingURL), zap.Error(err))
		}
	} else {
		r.logger.Info("listing will be retried on next submission",
			zap.String("url", task.ListingURL), zap.Int64("attempt", failures))
	}
}
