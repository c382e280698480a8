package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidURL    = errors.New("url must be a valid http or https address")
	ErrInvalidTitle  = errors.New("title must be between 1 and 255 characters")
	ErrInvalidNotes  = errors.New("notes must not exceed 65536 characters")
	ErrInvalidIntent = errors.New("intent must be create or update")
	ErrTokenNotSet   = errors.New("remote service token is not configured")
)
