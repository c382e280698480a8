package domain

// QueueItem is one undelivered submission. A row exists in the store if and
// only if at least one delivery attempt failed and none has succeeded since.
type QueueItem struct {
	ID            int64           `json:"id"`
	Payload       BookmarkPayload `json:"payload"`
	AttemptCount  int             `json:"attemptCount"`
	NextAttemptAt int64           `json:"nextAttemptAt"`
	LastError     *string         `json:"lastError,omitempty"`
}

// QueueStats is derived, never stored. Failed counts items that have been
// attempted at least once; since items only enter the queue after a failed
// attempt this tracks pending closely, and that near-redundancy is kept
// deliberately.
type QueueStats struct {
	Pending int64 `json:"pending"`
	Failed  int64 `json:"failed"`
}

// SubmitResult reports the outcome of a foreground submission.
type SubmitResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Queued  bool   `json:"queued"`
}

// QueueRetryResult summarises a manual retry-now pass.
type QueueRetryResult struct {
	Sent      int   `json:"sent"`
	Remaining int64 `json:"remaining"`
}

// SessionInfo lets a UI bootstrap its initial state in one call.
type SessionInfo struct {
	TokenConfigured bool       `json:"tokenConfigured"`
	QueueStats      QueueStats `json:"queueStats"`
}

// InspectionResult is the combined outcome of the three concurrent lookups
// for one URL. Each lookup either fills its value field or its error string;
// one failing never blanks the others.
//
// Generation identifies the inspect call that produced the result. Stale is
// set when a newer inspection started before this one finished — stale
// results are reported but never applied to visible state.
type InspectionResult struct {
	Generation uint64 `json:"generation"`
	Stale      bool   `json:"stale"`

	URL         string                `json:"url,omitempty"`
	Duplicate   *DuplicateCheckResult `json:"duplicate,omitempty"`
	Suggestions *TagSuggestions       `json:"suggestions,omitempty"`
	Title       string                `json:"title,omitempty"`

	// Prefill is the payload the UI should load into the form, with Intent
	// already resolved from duplicate detection.
	Prefill *BookmarkPayload `json:"prefill,omitempty"`

	DuplicateError   string `json:"duplicateError,omitempty"`
	SuggestionsError string `json:"suggestionsError,omitempty"`
	TitleError       string `json:"titleError,omitempty"`
}
