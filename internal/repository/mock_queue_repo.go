package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/linkspool/linkspool/internal/domain"
)

// MockQueueRepository is a hand-written, in-memory implementation of
// QueueRepository used in unit tests. No mock-generation library needed.
type MockQueueRepository struct {
	mu     sync.RWMutex
	items  map[int64]*domain.QueueItem
	nextID int64

	// Optional error overrides — set in tests to simulate failure paths.
	EnqueueErr  error
	DueItemsErr error
	StatsErr    error
}

func NewMockQueueRepository() *MockQueueRepository {
	return &MockQueueRepository{items: make(map[int64]*domain.QueueItem), nextID: 1}
}

func (m *MockQueueRepository) Enqueue(_ context.Context, payload *domain.BookmarkPayload, lastError string, nextAttemptAt int64) (int64, error) {
	if m.EnqueueErr != nil {
		return 0, m.EnqueueErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	errCopy := lastError
	m.items[id] = &domain.QueueItem{
		ID:            id,
		Payload:       *payload,
		AttemptCount:  0,
		NextAttemptAt: nextAttemptAt,
		LastError:     &errCopy,
	}
	return id, nil
}

func (m *MockQueueRepository) List(_ context.Context, limit int) ([]*domain.QueueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := m.sortedLocked(func(*domain.QueueItem) bool { return true })
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *MockQueueRepository) DueItems(_ context.Context, now int64, limit int) ([]*domain.QueueItem, error) {
	if m.DueItemsErr != nil {
		return nil, m.DueItemsErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := m.sortedLocked(func(it *domain.QueueItem) bool { return it.NextAttemptAt <= now })
	sort.Slice(items, func(i, j int) bool { return items[i].NextAttemptAt < items[j].NextAttemptAt })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *MockQueueRepository) MarkSent(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *MockQueueRepository) MarkRetry(_ context.Context, id int64, attemptCount int, nextAttemptAt int64, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil // row already removed; same silent no-op as the sqlite UPDATE
	}
	item.AttemptCount = attemptCount
	item.NextAttemptAt = nextAttemptAt
	errCopy := lastError
	item.LastError = &errCopy
	return nil
}

func (m *MockQueueRepository) Stats(_ context.Context) (*domain.QueueStats, error) {
	if m.StatsErr != nil {
		return nil, m.StatsErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &domain.QueueStats{}
	for _, item := range m.items {
		stats.Pending++
		if item.AttemptCount > 0 {
			stats.Failed++
		}
	}
	return stats, nil
}

// Get returns a snapshot of one item for test assertions.
func (m *MockQueueRepository) Get(id int64) (*domain.QueueItem, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, false
	}
	clone := *item
	return &clone, true
}

func (m *MockQueueRepository) sortedLocked(keep func(*domain.QueueItem) bool) []*domain.QueueItem {
	items := make([]*domain.QueueItem, 0, len(m.items))
	for _, item := range m.items {
		if keep(item) {
			clone := *item
			items = append(items, &clone)
		}
	}
	return items
}
