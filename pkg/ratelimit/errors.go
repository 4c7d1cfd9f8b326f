package ratelimit

import "errors"

var (
	// ErrInvalidLimit is returned when a limit has a non-positive
	// capacity or refill rate.
	ErrInvalidLimit = errors.New("ratelimit: invalid limit")

	// ErrInvalidCost is returned when a consume call asks for a
	// negative number of tokens.
	ErrInvalidCost = errors.New("ratelimit: invalid cost")
)
