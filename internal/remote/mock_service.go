package remote

import (
	"context"

	"github.com/linkspool/linkspool/internal/domain"
)

// MockService is a hand-written Service implementation for tests. Each
// function field defaults to a benign empty response when unset.
type MockService struct {
	CheckDuplicateFn func(ctx context.Context, url string) (*domain.DuplicateCheckResult, error)
	SuggestTagsFn    func(ctx context.Context, url string) (*domain.TagSuggestions, error)
	FetchTitleFn     func(ctx context.Context, url string) (string, error)
	SaveFn           func(ctx context.Context, payload *domain.BookmarkPayload) error
}

func (m *MockService) CheckDuplicate(ctx context.Context, url string) (*domain.DuplicateCheckResult, error) {
	if m.CheckDuplicateFn != nil {
		return m.CheckDuplicateFn(ctx, url)
	}
	return &domain.DuplicateCheckResult{Exists: false}, nil
}

func (m *MockService) SuggestTags(ctx context.Context, url string) (*domain.TagSuggestions, error) {
	if m.SuggestTagsFn != nil {
		return m.SuggestTagsFn(ctx, url)
	}
	return &domain.TagSuggestions{Popular: []string{}, Recommended: []string{}}, nil
}

func (m *MockService) FetchTitle(ctx context.Context, url string) (string, error) {
	if m.FetchTitleFn != nil {
		return m.FetchTitleFn(ctx, url)
	}
	return "", nil
}

func (m *MockService) Save(ctx context.Context, payload *domain.BookmarkPayload) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, payload)
	}
	return nil
}

var _ Service = (*MockService)(nil)
