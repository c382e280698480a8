package domain

import (
	"net/url"
	"strings"
)

// Intent decides whether a submission creates a new remote bookmark or
// replaces an existing one.
type Intent string

const (
	IntentCreate Intent = "create"
	IntentUpdate Intent = "update"
)

func (i Intent) IsValid() bool {
	switch i {
	case IntentCreate, IntentUpdate:
		return true
	}
	return false
}

// Field limits enforced before any network call.
const (
	MaxTitleLength = 255
	MaxNotesLength = 65536
)

// BookmarkPayload is the unit of submission. Once built for an attempt it
// is never mutated; retries re-send the exact payload that first failed.
type BookmarkPayload struct {
	URL       string   `json:"url"`
	Title     string   `json:"title"`
	Notes     string   `json:"notes"`
	Tags      []string `json:"tags"`
	Private   bool     `json:"private"`
	ReadLater bool     `json:"readLater"`
	Intent    Intent   `json:"intent"`
}

// Normalize canonicalises the URL, deduplicates tags and defaults a missing
// intent to create. Returns ErrInvalidURL when the URL cannot be parsed.
func (p *BookmarkPayload) Normalize() error {
	normalized, ok := NormalizeURL(p.URL)
	if !ok {
		return ErrInvalidURL
	}
	p.URL = normalized
	p.Tags = MergeTags(nil, p.Tags)
	if p.Intent == "" {
		p.Intent = IntentCreate
	}
	return nil
}

func (p *BookmarkPayload) Validate() error {
	if strings.TrimSpace(p.URL) == "" || !IsURLLike(p.URL) {
		return ErrInvalidURL
	}
	if p.Title == "" || len(p.Title) > MaxTitleLength {
		return ErrInvalidTitle
	}
	if len(p.Notes) > MaxNotesLength {
		return ErrInvalidNotes
	}
	if !p.Intent.IsValid() {
		return ErrInvalidIntent
	}
	return nil
}

// ExistingBookmark is the remote service's snapshot of an already-saved
// bookmark, returned by the duplicate check.
type ExistingBookmark struct {
	URL       string   `json:"url"`
	Title     string   `json:"title"`
	Notes     string   `json:"notes"`
	Tags      []string `json:"tags"`
	Private   bool     `json:"private"`
	ReadLater bool     `json:"readLater"`
	Time      string   `json:"time"`
}

// DuplicateCheckResult is transient per-inspection state, never persisted.
type DuplicateCheckResult struct {
	Exists   bool              `json:"exists"`
	Bookmark *ExistingBookmark `json:"bookmark,omitempty"`
}

// TagSuggestions holds the remote service's tag recommendations for a URL.
// Popular comes from global usage, Recommended is URL-specific.
type TagSuggestions struct {
	Popular     []string `json:"popular"`
	Recommended []string `json:"recommended"`
}

// IsURLLike is the permissive gate for running an inspection: an http(s)
// prefix, or anything containing a dot. Deliberately loose — the user is
// still typing.
func IsURLLike(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return true
	}
	return strings.Contains(trimmed, ".")
}

// NormalizeURL trims the input, prepends https:// when no scheme is given,
// and returns the canonical string form. ok is false when the result does
// not parse as an http(s) URL with a host.
func NormalizeURL(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}

	candidate := trimmed
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		candidate = "https://" + trimmed
	}

	u, err := url.Parse(candidate)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return u.String(), true
}

// ParseTags splits a free-form tag field on whitespace.
func ParseTags(input string) []string {
	return strings.Fields(input)
}

// MergeTags concatenates existing and incoming tags, dropping
// case-insensitive duplicates while preserving first-seen casing and order.
func MergeTags(existing, incoming []string) []string {
	merged := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))

	for _, tag := range append(append([]string{}, existing...), incoming...) {
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, tag)
	}
	return merged
}
