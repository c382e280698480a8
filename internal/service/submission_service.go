package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/linkspool/linkspool/internal/domain"
	"github.com/linkspool/linkspool/internal/remote"
	"github.com/linkspool/linkspool/internal/repository"
	"github.com/linkspool/linkspool/internal/worker"
)

// SubmissionService orchestrates one user-initiated submission: the
// concurrent duplicate/tag/title inspection on the read path, and
// create/update/enqueue on the write path. HTTP handlers and the retry
// worker depend on this service, not on each other.
type SubmissionService struct {
	repo            repository.QueueRepository
	remote          remote.Service
	retrier         *worker.RetryWorker
	logger          *zap.Logger
	tokenConfigured bool
	listLimit       int
	retryNowBatch   int

	// mu guards the inspection generation counter and the current snapshot.
	// The same lock covers both bumping the counter and applying results,
	// which is what makes the staleness check race-free.
	mu      sync.Mutex
	gen     uint64
	current *domain.InspectionResult

	now func() time.Time
}

func NewSubmissionService(
	repo repository.QueueRepository,
	remoteSvc remote.Service,
	retrier *worker.RetryWorker,
	logger *zap.Logger,
	tokenConfigured bool,
	listLimit int,
	retryNowBatch int,
) *SubmissionService {
	return &SubmissionService{
		repo:            repo,
		remote:          remoteSvc,
		retrier:         retrier,
		logger:          logger,
		tokenConfigured: tokenConfigured,
		listLimit:       listLimit,
		retryNowBatch:   retryNowBatch,
		now:             time.Now,
	}
}

// Inspect runs the three remote lookups for a URL concurrently. Each lookup
// individually either produces a value or a non-fatal error message; one
// failing never blanks the rest of the result.
//
// Every invocation takes a fresh generation number. If a newer inspection
// starts before this one finishes, the finished result is marked stale and
// never applied to the current snapshot — only the response to the most
// recent request can affect visible state.
//
// A blank or non-URL-like input is a reset, not an error: the current
// snapshot is cleared and an empty result returned without any lookups.
func (s *SubmissionService) Inspect(ctx context.Context, rawURL string) (*domain.InspectionResult, error) {
	trimmed := strings.TrimSpace(rawURL)

	normalized, ok := "", false
	if domain.IsURLLike(trimmed) {
		normalized, ok = domain.NormalizeURL(trimmed)
	}
	if !ok {
		s.mu.Lock()
		s.gen++
		res := &domain.InspectionResult{Generation: s.gen}
		s.current = nil
		s.mu.Unlock()
		return res, nil
	}

	s.mu.Lock()
	s.gen++
	myGen := s.gen
	s.mu.Unlock()

	res := &domain.InspectionResult{Generation: myGen, URL: normalized}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		dup, err := s.remote.CheckDuplicate(ctx, normalized)
		if err != nil {
			res.DuplicateError = lookupMessage("duplicate check", err)
			return
		}
		res.Duplicate = dup
	}()
	go func() {
		defer wg.Done()
		tags, err := s.remote.SuggestTags(ctx, normalized)
		if err != nil {
			res.SuggestionsError = lookupMessage("tag suggestions", err)
			return
		}
		res.Suggestions = tags
	}()
	go func() {
		defer wg.Done()
		title, err := s.remote.FetchTitle(ctx, normalized)
		if err != nil {
			res.TitleError = lookupMessage("title fetch", err)
			return
		}
		res.Title = title
	}()
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != myGen {
		res.Stale = true
		return res, nil
	}

	res.Prefill = buildPrefill(res)
	s.current = res
	return res, nil
}

// CurrentInspection returns the latest applied inspection snapshot, or nil
// after a reset. Stale results never end up here.
func (s *SubmissionService) CurrentInspection() *domain.InspectionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Submit validates and delivers one bookmark. Validation failures are
// surfaced immediately and never queued; only delivery failures reach the
// queue. A transient remote failure enqueues the payload durably and
// reports queued=true; a store failure during that enqueue is its own
// error, never silently reported as "queued".
func (s *SubmissionService) Submit(ctx context.Context, payload domain.BookmarkPayload) (*domain.SubmitResult, error) {
	p := payload
	if err := p.Normalize(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	err := s.remote.Save(ctx, &p)
	if err == nil {
		s.logger.Info("bookmark saved", zap.String("url", p.URL), zap.String("intent", string(p.Intent)))
		return &domain.SubmitResult{
			Status:  "sent",
			Message: "Saved to bookmarks",
			Queued:  false,
		}, nil
	}

	if !remote.IsTransient(err) {
		return nil, fmt.Errorf("remote rejected bookmark: %w", err)
	}

	next := s.now().Unix()
	if ra := remote.RetryAfter(err); ra > 0 {
		next += int64(ra.Seconds())
	}

	id, qerr := s.repo.Enqueue(ctx, &p, err.Error(), next)
	if qerr != nil {
		return nil, fmt.Errorf("enqueue submission: %w", qerr)
	}

	s.logger.Info("submission queued for retry",
		zap.Int64("item_id", id),
		zap.String("url", p.URL),
		zap.Error(err),
	)
	return &domain.SubmitResult{
		Status:  "queued",
		Message: fmt.Sprintf("Remote service unavailable, queued for retry: %v", err),
		Queued:  true,
	}, nil
}

// ListQueue returns the queued items in insertion order.
func (s *SubmissionService) ListQueue(ctx context.Context) ([]*domain.QueueItem, error) {
	items, err := s.repo.List(ctx, s.listLimit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.QueueItem{}
	}
	return items, nil
}

// RetryNow triggers an immediate due-item pass outside the timer cadence
// and reports how many items were delivered and how many remain queued.
func (s *SubmissionService) RetryNow(ctx context.Context) (*domain.QueueRetryResult, error) {
	sent, err := s.retrier.ProcessDue(ctx, s.retryNowBatch)
	if err != nil {
		return nil, err
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.QueueRetryResult{Sent: sent, Remaining: stats.Pending}, nil
}

func (s *SubmissionService) QueueStats(ctx context.Context) (*domain.QueueStats, error) {
	return s.repo.Stats(ctx)
}

// Session reports what a UI needs to bootstrap: whether a remote token is
// configured and the current queue stats.
func (s *SubmissionService) Session(ctx context.Context) (*domain.SessionInfo, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.SessionInfo{TokenConfigured: s.tokenConfigured, QueueStats: *stats}, nil
}

// buildPrefill derives the form pre-fill from a finished inspection.
// A detected duplicate pre-fills every field from the existing record and
// switches the intent to update. Otherwise the fetched title (possibly
// empty) seeds a create; the caller keeps any title the user already typed.
func buildPrefill(res *domain.InspectionResult) *domain.BookmarkPayload {
	if res.Duplicate != nil && res.Duplicate.Exists && res.Duplicate.Bookmark != nil {
		b := res.Duplicate.Bookmark
		return &domain.BookmarkPayload{
			URL:       b.URL,
			Title:     b.Title,
			Notes:     b.Notes,
			Tags:      append([]string(nil), b.Tags...),
			Private:   b.Private,
			ReadLater: b.ReadLater,
			Intent:    domain.IntentUpdate,
		}
	}
	return &domain.BookmarkPayload{
		URL:    res.URL,
		Title:  res.Title,
		Intent: domain.IntentCreate,
	}
}

func lookupMessage(op string, err error) string {
	return fmt.Sprintf("%s unavailable: %v", op, err)
}
