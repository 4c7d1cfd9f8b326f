package audit

import "errors"

var (
	// ErrEventValidation indicates an event is missing required fields.
	ErrEventValidation = errors.New("audit: event validation failed")

	// ErrStorageUnavailable indicates the storage backend rejected the
	// operation or has shut down.
	ErrStorageUnavailable = errors.New("audit: storage unavailable")

	// ErrCursorNotFound indicates a pagination cursor references an event
	// the storage no longer holds.
	ErrCursorNotFound = errors.New("audit: cursor not found")
)
