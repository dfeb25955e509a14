// Package apperr defines the sentinel errors shared across the application.
package apperr

import "errors"

var (
	// ErrValidation marks invalid user input (blank stack name, blank card text).
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a referenced id that does not exist in the store.
	ErrNotFound = errors.New("not found")
	// ErrProtected marks an attempted mutation of the reserved default stack.
	ErrProtected = errors.New("protected")
	// ErrStoreUnavailable marks a local store that cannot be opened.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrRemote marks a failure reported by the remote document database.
	ErrRemote = errors.New("remote failure")
)
