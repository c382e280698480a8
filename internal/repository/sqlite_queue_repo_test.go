package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/linkspool/linkspool/internal/db"
	"github.com/linkspool/linkspool/internal/domain"
	"github.com/linkspool/linkspool/internal/repository"
)

func newSQLiteRepo(t *testing.T) repository.QueueRepository {
	t.Helper()

	conn, err := db.Open(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repository.NewSQLiteQueueRepository(conn)
}

func payload(url string) *domain.BookmarkPayload {
	return &domain.BookmarkPayload{
		URL:    url,
		Title:  "title",
		Tags:   []string{"go"},
		Intent: domain.IntentCreate,
	}
}

func TestSQLiteQueueRepository_EnqueueAndList(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	now := time.Now().Unix()

	first, err := repo.Enqueue(ctx, payload("https://a.example"), "connection refused", now)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	second, err := repo.Enqueue(ctx, payload("https://b.example"), "connection refused", now)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if second <= first {
		t.Fatalf("expected increasing ids, got %d then %d", first, second)
	}

	items, err := repo.List(ctx, 50)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != first || items[1].ID != second {
		t.Fatalf("expected insertion order, got %d, %d", items[0].ID, items[1].ID)
	}
	if items[0].Payload.URL != "https://a.example" {
		t.Fatalf("payload did not round-trip: %q", items[0].Payload.URL)
	}
	if items[0].AttemptCount != 0 {
		t.Fatalf("expected attemptCount=0 on fresh item, got %d", items[0].AttemptCount)
	}
	if items[0].LastError == nil || *items[0].LastError != "connection refused" {
		t.Fatalf("unexpected lastError: %v", items[0].LastError)
	}

	// listing twice with no mutation returns identical results
	again, err := repo.List(ctx, 50)
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if len(again) != len(items) || again[0].ID != items[0].ID || again[1].ID != items[1].ID {
		t.Fatal("expected identical results on repeated list")
	}
}

func TestSQLiteQueueRepository_DueItems(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	now := time.Now().Unix()

	dueID, _ := repo.Enqueue(ctx, payload("https://due.example"), "err", now-10)
	_, _ = repo.Enqueue(ctx, payload("https://future.example"), "err", now+3600)

	due, err := repo.DueItems(ctx, now, 25)
	if err != nil {
		t.Fatalf("due items: %v", err)
	}
	if len(due) != 1 || due[0].ID != dueID {
		t.Fatalf("expected only the due item, got %v", due)
	}
}

func TestSQLiteQueueRepository_MarkRetry(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	now := time.Now().Unix()

	id, _ := repo.Enqueue(ctx, payload("https://a.example"), "first failure", now)

	if err := repo.MarkRetry(ctx, id, 1, now+10, "second failure"); err != nil {
		t.Fatalf("mark retry: %v", err)
	}

	items, _ := repo.List(ctx, 50)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].AttemptCount != 1 {
		t.Fatalf("expected attemptCount=1, got %d", items[0].AttemptCount)
	}
	if items[0].NextAttemptAt != now+10 {
		t.Fatalf("expected nextAttemptAt=%d, got %d", now+10, items[0].NextAttemptAt)
	}
	if items[0].LastError == nil || *items[0].LastError != "second failure" {
		t.Fatalf("unexpected lastError: %v", items[0].LastError)
	}

	// updating a removed id is a silent no-op
	if err := repo.MarkRetry(ctx, id+1000, 1, now, "x"); err != nil {
		t.Fatalf("expected no error for missing id, got %v", err)
	}
}

func TestSQLiteQueueRepository_MarkSent(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	now := time.Now().Unix()

	id, _ := repo.Enqueue(ctx, payload("https://a.example"), "err", now)

	if err := repo.MarkSent(ctx, id); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	items, _ := repo.List(ctx, 50)
	if len(items) != 0 {
		t.Fatalf("expected empty queue after MarkSent, got %d items", len(items))
	}

	// removing again is idempotent
	if err := repo.MarkSent(ctx, id); err != nil {
		t.Fatalf("expected idempotent remove, got %v", err)
	}
}

func TestSQLiteQueueRepository_Stats(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	now := time.Now().Unix()

	a, _ := repo.Enqueue(ctx, payload("https://a.example"), "err", now)
	_, _ = repo.Enqueue(ctx, payload("https://b.example"), "err", now)
	_ = repo.MarkRetry(ctx, a, 1, now+10, "err")

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Pending != 2 {
		t.Fatalf("expected pending=2, got %d", stats.Pending)
	}
	if stats.Failed != 1 {
		t.Fatalf("expected failed=1, got %d", stats.Failed)
	}
}

func TestSQLiteQueueRepository_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queue.db")
	ctx := context.Background()

	conn, err := db.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := repository.NewSQLiteQueueRepository(conn)
	id, err := repo.Enqueue(ctx, payload("https://persist.example"), "err", time.Now().Unix())
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	conn.Close()

	reopened, err := db.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	items, err := repository.NewSQLiteQueueRepository(reopened).List(ctx, 50)
	if err != nil {
		t.Fatalf("list after reopen: %v", err)
	}
	if len(items) != 1 || items[0].ID != id {
		t.Fatalf("expected the enqueued item to survive reopen, got %v", items)
	}
}
