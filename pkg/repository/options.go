package repository

import (
	"log/slog"

	"github.com/benbjohnson/clock"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// FindOptions narrows and orders a query. The zero value returns every
// matching document unsorted.
type FindOptions struct {
	Projection bson.M
	Sort       bson.D
	Limit      int64
	Skip       int64
}

// Page is one page of results plus the counters a list endpoint renders.
type Page[T any] struct {
	Data       []*T  `json:"data"`
	Total      int64 `json:"total"`
	Page       int64 `json:"page"`
	Limit      int64 `json:"limit"`
	TotalPages int64 `json:"total_pages"`
}

type settings struct {
	resource string
	auditor  Auditor
	clock    clock.Clock
	log      *slog.Logger
}

// Option configures a repository.
type Option func(*settings)

// WithResource overrides the resource name used in errors and audit events.
// It defaults to the collection name.
func WithResource(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.resource = name
		}
	}
}

// WithAuditor attaches an audit sink. Write operations report to it after
// they succeed; a nil auditor disables reporting.
func WithAuditor(a Auditor) Option {
	return func(s *settings) { s.auditor = a }
}

// WithClock overrides the time source for bookkeeping stamps. Tests use a
// mock clock.
func WithClock(c clock.Clock) Option {
	return func(s *settings) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger overrides the repository logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *settings) {
		if log != nil {
			s.log = log
		}
	}
}
