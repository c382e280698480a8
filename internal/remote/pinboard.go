package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/time/rate"

	"github.com/linkspool/linkspool/internal/config"
	"github.com/linkspool/linkspool/internal/domain"
)

// Client talks to a Pinboard-compatible API. All API calls share one token
// bucket enforcing the service's one-request-per-3-seconds guidance, so a
// burst of inspection lookups cannot trip the remote rate limit.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	pageClient *http.Client
	limiter    *rate.Limiter
	sanitizer  *bluemonday.Policy
	maxPage    int64
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.RemoteBaseURL, "/"),
		token:      cfg.RemoteToken,
		httpClient: &http.Client{Timeout: cfg.RemoteTimeout},
		pageClient: &http.Client{Timeout: cfg.TitleFetchTimeout},
		limiter:    rate.NewLimiter(rate.Every(cfg.RemoteCallInterval), 1),
		sanitizer:  bluemonday.StrictPolicy(),
		maxPage:    cfg.TitleMaxBytes,
	}
}

// TokenConfigured reports whether an API token is present without exposing it.
func (c *Client) TokenConfigured() bool { return c.token != "" }

// Save submits one bookmark via posts/add. replace=yes for updates makes the
// call idempotent on the remote side, which is what lets the retry worker
// deliver at-least-once without creating duplicates.
func (c *Client) Save(ctx context.Context, payload *domain.BookmarkPayload) error {
	replace := "no"
	if payload.Intent == domain.IntentUpdate {
		replace = "yes"
	}
	shared := "yes"
	if payload.Private {
		shared = "no"
	}
	toread := "no"
	if payload.ReadLater {
		toread = "yes"
	}

	params := url.Values{}
	params.Set("url", payload.URL)
	params.Set("description", payload.Title)
	params.Set("extended", payload.Notes)
	params.Set("tags", strings.Join(payload.Tags, " "))
	params.Set("replace", replace)
	params.Set("shared", shared)
	params.Set("toread", toread)

	value, err := c.getJSON(ctx, "posts/add", params)
	if err != nil {
		return err
	}

	code := stringField(value, "result_code", "code")
	if code != "done" {
		return &Error{Op: "posts/add", Message: fmt.Sprintf("api rejected bookmark: %q", code)}
	}
	return nil
}

// CheckDuplicate looks the URL up via posts/get and maps the first returned
// post, if any, to an ExistingBookmark snapshot.
func (c *Client) CheckDuplicate(ctx context.Context, rawURL string) (*domain.DuplicateCheckResult, error) {
	params := url.Values{}
	params.Set("url", rawURL)

	value, err := c.getJSON(ctx, "posts/get", params)
	if err != nil {
		return nil, err
	}

	posts := arrayField(value, "posts")
	if len(posts) == 0 {
		return &domain.DuplicateCheckResult{Exists: false}, nil
	}

	first, _ := posts[0].(map[string]any)
	tagField := stringField(first, "tags", "tag")

	bookmark := &domain.ExistingBookmark{
		URL:       stringField(first, "href", "url"),
		Title:     stringField(first, "description"),
		Notes:     stringField(first, "extended"),
		Tags:      strings.Fields(tagField),
		Private:   stringField(first, "shared") == "no",
		ReadLater: stringField(first, "toread") == "yes",
		Time:      stringField(first, "time"),
	}
	if bookmark.URL == "" {
		bookmark.URL = rawURL
	}

	return &domain.DuplicateCheckResult{Exists: true, Bookmark: bookmark}, nil
}

// SuggestTags fetches popular/recommended tags via posts/suggest. The
// endpoint's response shape varies (an object, or a heterogeneous array of
// single-key objects), so extraction tolerates both.
func (c *Client) SuggestTags(ctx context.Context, rawURL string) (*domain.TagSuggestions, error) {
	params := url.Values{}
	params.Set("url", rawURL)

	value, err := c.getJSON(ctx, "posts/suggest", params)
	if err != nil {
		return nil, err
	}

	return &domain.TagSuggestions{
		Popular:     extractTagList(value, "popular"),
		Recommended: extractTagList(value, "recommended"),
	}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values) (any, error) {
	if c.token == "" {
		return nil, &Error{Op: path, Message: "token not configured", Err: domain.ErrTokenNotSet}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params.Set("format", "json")
	params.Set("auth_token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/"+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &Error{Op: path, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Op: path, Transient: true, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{
			Op:         path,
			Message:    "rate limited (429)",
			Transient:  true,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode >= 500:
		return nil, &Error{Op: path, Message: fmt.Sprintf("server error (%d)", resp.StatusCode), Transient: true}
	case resp.StatusCode >= 400:
		return nil, &Error{Op: path, Message: fmt.Sprintf("request rejected (%d)", resp.StatusCode)}
	}

	var value any
	if err := json.NewDecoder(resp.Body).Decode(&value); err != nil {
		return nil, &Error{Op: path, Message: "invalid API response", Err: err}
	}
	return value, nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// stringField returns the first non-empty string value among keys.
func stringField(value any, keys ...string) string {
	obj, ok := value.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range keys {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func arrayField(value any, key string) []any {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	arr, _ := obj[key].([]any)
	return arr
}

func extractTagList(value any, key string) []string {
	if obj, ok := value.(map[string]any); ok {
		if tags := stringSlice(obj[key]); tags != nil {
			return tags
		}
		for _, child := range obj {
			if inner, ok := child.(map[string]any); ok {
				if tags := stringSlice(inner[key]); tags != nil {
					return tags
				}
			}
		}
	}

	if arr, ok := value.([]any); ok {
		for _, item := range arr {
			if inner, ok := item.(map[string]any); ok {
				if tags := stringSlice(inner[key]); tags != nil {
					return tags
				}
			}
		}
	}

	return []string{}
}

func stringSlice(value any) []string {
	arr, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// compile-time check that Client implements Service
var _ Service = (*Client)(nil)
