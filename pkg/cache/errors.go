package cache

import "errors"

var (
	// ErrNotFound reports a remote-tier miss.
	ErrNotFound = errors.New("cache: entry not found")
	// ErrUnavailable reports that the remote tier is not reachable, e.g.
	// because its circuit breaker is open.
	ErrUnavailable = errors.New("cache: remote tier unavailable")
)
