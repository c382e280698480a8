package remote

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// FetchTitle downloads the page (bounded in size and time) and extracts its
// title with readability. Best-effort: this lookup degrades one piece of
// form pre-fill, never the submission itself.
func (c *Client) FetchTitle(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &Error{Op: "fetch title", Err: err}
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.pageClient.Do(req)
	if err != nil {
		return "", &Error{Op: "fetch title", Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &Error{Op: "fetch title", Message: resp.Status, Transient: resp.StatusCode >= 500}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxPage))
	if err != nil {
		return "", &Error{Op: "fetch title", Transient: true, Err: err}
	}

	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", &Error{Op: "fetch title", Err: err}
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), pageURL)
	if err != nil {
		return "", &Error{Op: "fetch title", Message: "unreadable page", Err: err}
	}

	// Titles end up as form pre-fill; strip any markup the page smuggled in.
	return strings.TrimSpace(c.sanitizer.Sanitize(article.Title)), nil
}
