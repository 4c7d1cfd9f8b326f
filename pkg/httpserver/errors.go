package httpserver

import "errors"

var (
	// ErrStart wraps listen failures reported by Run.
	ErrStart = errors.New("httpserver: failed to start")
	// ErrShutdown wraps graceful shutdown failures.
	ErrShutdown = errors.New("httpserver: graceful shutdown failed")
)
