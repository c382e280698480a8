package repository

import (
	"context"

	"github.com/linkspool/linkspool/internal/domain"
)

// QueueRepository defines all persistence operations for the durable retry
// queue. The sqlite implementation is in sqlite_queue_repo.go.
// Tests use a hand-written mock (mock_queue_repo.go).
//
// Every mutation is a single atomic statement at the storage layer, so the
// foreground submit path and the background retry worker can share the
// store without read-modify-write races on a row.
type QueueRepository interface {
	// Enqueue persists a new item with attemptCount=0 and returns its id.
	// The write has reached stable storage before Enqueue returns.
	Enqueue(ctx context.Context, payload *domain.BookmarkPayload, lastError string, nextAttemptAt int64) (int64, error)

	// List returns up to limit items in insertion (id) order.
	List(ctx context.Context, limit int) ([]*domain.QueueItem, error)

	// DueItems returns up to limit items whose nextAttemptAt <= now,
	// soonest first.
	DueItems(ctx context.Context, now int64, limit int) ([]*domain.QueueItem, error)

	// MarkSent deletes a delivered item. Idempotent: removing an id that is
	// already gone is not an error.
	MarkSent(ctx context.Context, id int64) error

	// MarkRetry records a failed attempt in one atomic update. A no-op if
	// the id no longer exists (removed by a concurrent successful retry).
	MarkRetry(ctx context.Context, id int64, attemptCount int, nextAttemptAt int64, lastError string) error

	// Stats derives pending/failed counts from the current queue contents.
	Stats(ctx context.Context) (*domain.QueueStats, error)
}
