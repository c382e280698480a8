package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/linkspool/linkspool/internal/config"
	"github.com/linkspool/linkspool/internal/domain"
	"github.com/linkspool/linkspool/internal/events"
	"github.com/linkspool/linkspool/internal/remote"
	"github.com/linkspool/linkspool/internal/repository"
)

func testConfig() *config.Config {
	return &config.Config{
		RetryInterval: 20 * time.Second,
		RetryBatch:    5,
		RetryBackoff: []time.Duration{
			10 * time.Second, 30 * time.Second, 2 * time.Minute, 10 * time.Minute, time.Hour,
		},
		MinRetryDelay: 3 * time.Second,
	}
}

func testPayload(url string) *domain.BookmarkPayload {
	return &domain.BookmarkPayload{URL: url, Title: "t", Intent: domain.IntentCreate}
}

func newWorker(remoteSvc Deliverer) (*RetryWorker, *repository.MockQueueRepository, *events.Notifier) {
	repo := repository.NewMockQueueRepository()
	notifier := events.NewNotifier()
	w := NewRetryWorker(testConfig(), repo, remoteSvc, notifier, zap.NewNop(), MetricHooks{})
	return w, repo, notifier
}

func TestProcessDue_SuccessRemovesItemAndEmitsItemSent(t *testing.T) {
	ctx := context.Background()
	w, repo, notifier := newWorker(&remote.MockService{})

	ch, cancel := notifier.Subscribe(8)
	defer cancel()

	id, _ := repo.Enqueue(ctx, testPayload("https://a.example"), "err", time.Now().Unix()-1)

	sent, err := w.ProcessDue(ctx, 25)
	if err != nil {
		t.Fatalf("process due: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected sent=1, got %d", sent)
	}
	if _, ok := repo.Get(id); ok {
		t.Fatal("expected item removed after successful delivery")
	}

	sentEvents := 0
	for drained := false; !drained; {
		select {
		case ev := <-ch:
			if ev.Kind == events.ItemSent && ev.ItemID == id {
				sentEvents++
			}
		default:
			drained = true
		}
	}
	if sentEvents != 1 {
		t.Fatalf("expected exactly one item_sent event, got %d", sentEvents)
	}
}

func TestProcessDue_FailureSchedulesRetry(t *testing.T) {
	ctx := context.Background()
	failing := &remote.MockService{
		SaveFn: func(context.Context, *domain.BookmarkPayload) error {
			return &remote.Error{Op: "posts/add", Message: "server error (502)", Transient: true}
		},
	}
	w, repo, notifier := newWorker(failing)
	base := time.Unix(1_700_000_000, 0)
	w.now = func() time.Time { return base }

	ch, cancel := notifier.Subscribe(8)
	defer cancel()

	id, _ := repo.Enqueue(ctx, testPayload("https://a.example"), "first", base.Unix())

	sent, err := w.ProcessDue(ctx, 25)
	if err != nil {
		t.Fatalf("process due: %v", err)
	}
	if sent != 0 {
		t.Fatalf("expected sent=0, got %d", sent)
	}

	item, ok := repo.Get(id)
	if !ok {
		t.Fatal("item must survive a failed attempt")
	}
	if item.AttemptCount != 1 {
		t.Fatalf("expected attemptCount=1, got %d", item.AttemptCount)
	}
	if item.NextAttemptAt != base.Unix()+10 {
		t.Fatalf("expected first retry after 10s, got +%ds", item.NextAttemptAt-base.Unix())
	}
	if item.LastError == nil || *item.LastError == "first" {
		t.Fatalf("expected lastError updated, got %v", item.LastError)
	}

	ev := <-ch
	if ev.Kind != events.ItemFailed || ev.ItemID != id {
		t.Fatalf("expected item_failed event, got %+v", ev)
	}
}

func TestProcessDue_BackoffSequence(t *testing.T) {
	ctx := context.Background()
	failing := &remote.MockService{
		SaveFn: func(context.Context, *domain.BookmarkPayload) error {
			return &remote.Error{Op: "posts/add", Message: "unreachable", Transient: true}
		},
	}
	w, repo, _ := newWorker(failing)

	now := time.Unix(1_700_000_000, 0)
	w.now = func() time.Time { return now }

	id, _ := repo.Enqueue(ctx, testPayload("https://a.example"), "err", now.Unix())

	want := []int64{10, 30, 120, 600, 3600, 3600}
	for i, delta := range want {
		if _, err := w.ProcessDue(ctx, 25); err != nil {
			t.Fatalf("pass %d: %v", i+1, err)
		}
		item, ok := repo.Get(id)
		if !ok {
			t.Fatalf("pass %d: item vanished", i+1)
		}
		if item.AttemptCount != i+1 {
			t.Fatalf("pass %d: expected attemptCount=%d, got %d", i+1, i+1, item.AttemptCount)
		}
		if got := item.NextAttemptAt - now.Unix(); got != delta {
			t.Fatalf("pass %d: expected next attempt +%ds, got +%ds", i+1, delta, got)
		}
		// advance the clock past the new deadline for the next pass
		now = time.Unix(item.NextAttemptAt, 0)
	}
}

func TestProcessDue_RetryAfterOverridesShorterBackoff(t *testing.T) {
	ctx := context.Background()
	failing := &remote.MockService{
		SaveFn: func(context.Context, *domain.BookmarkPayload) error {
			return &remote.Error{Op: "posts/add", Message: "rate limited (429)",
				Transient: true, RetryAfter: 120 * time.Second}
		},
	}
	w, repo, _ := newWorker(failing)
	base := time.Unix(1_700_000_000, 0)
	w.now = func() time.Time { return base }

	id, _ := repo.Enqueue(ctx, testPayload("https://a.example"), "err", base.Unix())

	if _, err := w.ProcessDue(ctx, 25); err != nil {
		t.Fatalf("process due: %v", err)
	}
	item, _ := repo.Get(id)
	if item.NextAttemptAt != base.Unix()+120 {
		t.Fatalf("expected Retry-After to win over 10s backoff, got +%ds", item.NextAttemptAt-base.Unix())
	}
}

func TestProcessDue_SkipsFutureItems(t *testing.T) {
	ctx := context.Background()
	attempts := 0
	counting := &remote.MockService{
		SaveFn: func(context.Context, *domain.BookmarkPayload) error {
			attempts++
			return nil
		},
	}
	w, repo, _ := newWorker(counting)

	_, _ = repo.Enqueue(ctx, testPayload("https://future.example"), "err", time.Now().Unix()+3600)

	sent, err := w.ProcessDue(ctx, 25)
	if err != nil {
		t.Fatalf("process due: %v", err)
	}
	if sent != 0 || attempts != 0 {
		t.Fatalf("expected no attempts on future items, sent=%d attempts=%d", sent, attempts)
	}
}

func TestProcessDue_OneFailureDoesNotAbortOthers(t *testing.T) {
	ctx := context.Background()
	selective := &remote.MockService{
		SaveFn: func(_ context.Context, p *domain.BookmarkPayload) error {
			if p.URL == "https://bad.example" {
				return &remote.Error{Op: "posts/add", Message: "unreachable", Transient: true}
			}
			return nil
		},
	}
	w, repo, _ := newWorker(selective)
	now := time.Now().Unix() - 1

	badID, _ := repo.Enqueue(ctx, testPayload("https://bad.example"), "err", now-10)
	goodID, _ := repo.Enqueue(ctx, testPayload("https://good.example"), "err", now)

	sent, err := w.ProcessDue(ctx, 25)
	if err != nil {
		t.Fatalf("process due: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected sent=1, got %d", sent)
	}
	if _, ok := repo.Get(goodID); ok {
		t.Fatal("good item should have been delivered and removed")
	}
	if item, ok := repo.Get(badID); !ok || item.AttemptCount != 1 {
		t.Fatalf("bad item should remain with attemptCount=1, got %+v ok=%v", item, ok)
	}
}

func TestProcessDue_ConcurrentPassesDoNotDoubleSend(t *testing.T) {
	ctx := context.Background()

	block := make(chan struct{})
	attempts := make(chan string, 16)
	slow := &remote.MockService{
		SaveFn: func(_ context.Context, p *domain.BookmarkPayload) error {
			attempts <- p.URL
			<-block
			return nil
		},
	}
	w, repo, _ := newWorker(slow)

	_, _ = repo.Enqueue(ctx, testPayload("https://once.example"), "err", time.Now().Unix()-1)

	results := make(chan int, 2)
	for i := 0; i < 2; i++ {
		go func() {
			sent, _ := w.ProcessDue(ctx, 25)
			results <- sent
		}()
	}

	// Exactly one pass should reach the remote; the other waits on the mutex
	// and then finds an empty due set.
	<-attempts
	close(block)

	total := <-results + <-results
	if total != 1 {
		t.Fatalf("expected the item to be sent exactly once across passes, got %d", total)
	}
	select {
	case url := <-attempts:
		t.Fatalf("item attempted twice: %s", url)
	default:
	}
}

func TestProcessDue_StoreErrorSurfaces(t *testing.T) {
	w, repo, _ := newWorker(&remote.MockService{})
	repo.DueItemsErr = errors.New("disk gone")

	if _, err := w.ProcessDue(context.Background(), 25); err == nil {
		t.Fatal("expected store error to surface")
	}
}
