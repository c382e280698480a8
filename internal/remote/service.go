package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linkspool/linkspool/internal/domain"
)

// Service abstracts the remote bookmarking side: the three inspection
// lookups plus delivery. Mocking this interface in tests gives full control
// over remote behaviour without making real HTTP calls.
type Service interface {
	CheckDuplicate(ctx context.Context, url string) (*domain.DuplicateCheckResult, error)
	SuggestTags(ctx context.Context, url string) (*domain.TagSuggestions, error)
	FetchTitle(ctx context.Context, url string) (string, error)

	// Save creates or replaces one bookmark according to payload.Intent.
	Save(ctx context.Context, payload *domain.BookmarkPayload) error
}

// Error classifies a remote failure. Transient failures (network errors,
// timeouts, 429, 5xx) are eligible for queueing and retry; everything else
// (auth, validation, API rejection) is permanent and surfaced immediately.
type Error struct {
	Op         string
	Message    string
	Transient  bool
	RetryAfter time.Duration // from a Retry-After header, 0 when absent
	Err        error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err represents a failure worth retrying.
func IsTransient(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Transient
}

// RetryAfter extracts the server-requested retry delay, if any.
func RetryAfter(err error) time.Duration {
	var re *Error
	if errors.As(err, &re) {
		return re.RetryAfter
	}
	return 0
}
