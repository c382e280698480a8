package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/linkspool/linkspool/internal/config"
	"github.com/linkspool/linkspool/internal/domain"
	"github.com/linkspool/linkspool/internal/events"
	"github.com/linkspool/linkspool/internal/remote"
	"github.com/linkspool/linkspool/internal/repository"
)

// Deliverer is the single remote operation the worker needs.
type Deliverer interface {
	Save(ctx context.Context, payload *domain.BookmarkPayload) error
}

// MetricHooks carries the metric callback functions injected by main.
// Using a struct keeps the worker constructor signature clean.
type MetricHooks struct {
	OnSent   func(latency time.Duration)
	OnFailed func()
	OnDepth  func(pending, failed int64)
}

// RetryWorker drains the durable queue on a fixed interval. Scheduled retry
// times are persisted, not held in memory, so retries survive restarts.
//
// Item spacing comes entirely from each item's nextAttemptAt; the loop
// interval only bounds how promptly a due item is noticed.
type RetryWorker struct {
	repo     repository.QueueRepository
	remote   Deliverer
	notifier *events.Notifier
	logger   *zap.Logger

	interval time.Duration
	batch    int
	backoff  []time.Duration
	minDelay time.Duration

	hooks MetricHooks

	// mu serializes due-item passes so the timer tick and a manual
	// retry-now can never attempt the same item concurrently.
	mu sync.Mutex

	now func() time.Time
}

func NewRetryWorker(
	cfg *config.Config,
	repo repository.QueueRepository,
	deliverer Deliverer,
	notifier *events.Notifier,
	logger *zap.Logger,
	hooks MetricHooks,
) *RetryWorker {
	if hooks.OnSent == nil {
		hooks.OnSent = func(time.Duration) {}
	}
	if hooks.OnFailed == nil {
		hooks.OnFailed = func() {}
	}
	if hooks.OnDepth == nil {
		hooks.OnDepth = func(int64, int64) {}
	}
	return &RetryWorker{
		repo:     repo,
		remote:   deliverer,
		notifier: notifier,
		logger:   logger,
		interval: cfg.RetryInterval,
		batch:    cfg.RetryBatch,
		backoff:  cfg.RetryBackoff,
		minDelay: cfg.MinRetryDelay,
		hooks:    hooks,
		now:      time.Now,
	}
}

// Run ticks every interval and attempts delivery of any due items.
// Stops cleanly when ctx is cancelled.
func (w *RetryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("retry worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("retry worker stopping")
			return
		case <-ticker.C:
			if _, err := w.ProcessDue(ctx, w.batch); err != nil {
				w.logger.Error("retry pass failed", zap.Error(err))
			}
		}
	}
}

// ProcessDue runs one due-item pass and returns the number delivered.
// Used by both the timer loop and the manual retry-now endpoint; the shared
// mutex guarantees a single in-flight pass at a time.
//
// One item's failure never aborts the rest of the pass: a failed item gets
// its attempt count bumped and a new nextAttemptAt, and the loop moves on.
func (w *RetryWorker) ProcessDue(ctx context.Context, limit int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	due, err := w.repo.DueItems(ctx, w.now().Unix(), limit)
	if err != nil {
		return 0, fmt.Errorf("find due items: %w", err)
	}

	sent := 0
	for _, item := range due {
		if ctx.Err() != nil {
			break
		}
		if w.attempt(ctx, item) {
			sent++
		}
	}

	if len(due) > 0 {
		w.publishStats(ctx)
	}
	return sent, nil
}

// attempt delivers one item and reports success.
func (w *RetryWorker) attempt(ctx context.Context, item *domain.QueueItem) bool {
	start := time.Now()
	log := w.logger.With(zap.Int64("item_id", item.ID), zap.String("url", item.Payload.URL))

	if err := w.remote.Save(ctx, &item.Payload); err != nil {
		attempts := item.AttemptCount + 1
		next := w.now().Add(w.retryDelay(attempts, remote.RetryAfter(err))).Unix()

		log.Warn("delivery failed",
			zap.Int("attempt_count", attempts),
			zap.Int64("next_attempt_at", next),
			zap.Error(err),
		)

		if uerr := w.repo.MarkRetry(ctx, item.ID, attempts, next, err.Error()); uerr != nil {
			log.Error("failed to schedule retry", zap.Error(uerr))
		}
		w.hooks.OnFailed()
		w.notifier.Publish(events.Event{Kind: events.ItemFailed, ItemID: item.ID})
		return false
	}

	if err := w.repo.MarkSent(ctx, item.ID); err != nil {
		log.Error("failed to remove delivered item", zap.Error(err))
		return false
	}

	w.hooks.OnSent(time.Since(start))
	w.notifier.Publish(events.Event{Kind: events.ItemSent, ItemID: item.ID})
	log.Info("queued bookmark delivered", zap.Int("attempt_count", item.AttemptCount+1))
	return true
}

// retryDelay computes the wait before the next attempt.
//
// Backoff schedule (attempt = failures so far for this item):
//
//	attempt 1 → 10 s
//	attempt 2 → 30 s
//	attempt 3 → 2 m
//	attempt 4 → 10 m
//	attempt ≥ 5 → 1 h (cap, repeats indefinitely)
//
// There is no maximum attempt count: items retry until delivered or removed.
// A server-supplied Retry-After longer than the backoff wins.
func (w *RetryWorker) retryDelay(attempt int, retryAfter time.Duration) time.Duration {
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(w.backoff) {
		idx = len(w.backoff) - 1
	}

	delay := w.backoff[idx]
	if delay < w.minDelay {
		delay = w.minDelay
	}
	if retryAfter > delay {
		delay = retryAfter
	}
	return delay
}

func (w *RetryWorker) publishStats(ctx context.Context) {
	stats, err := w.repo.Stats(ctx)
	if err != nil {
		w.logger.Warn("failed to read queue stats", zap.Error(err))
		return
	}
	w.hooks.OnDepth(stats.Pending, stats.Failed)
	w.notifier.Publish(events.Event{Kind: events.StatsUpdated, Stats: stats})
}
