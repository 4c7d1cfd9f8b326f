package ratelimit

import (
	"fmt"
	"time"
)

// Limit describes one token bucket: how many tokens it holds at most and how
// fast it refills. The capacity is the burst budget; the refill rate is the
// sustained request rate.
type Limit struct {
	Capacity     float64
	RefillPerSec float64
}

// PerMinute builds a limit that sustains n requests per minute with a burst
// of n.
func PerMinute(n int) Limit {
	return Limit{Capacity: float64(n), RefillPerSec: float64(n) / 60}
}

// PerSecond builds a limit that sustains n requests per second with a burst
// of n.
func PerSecond(n int) Limit {
	return Limit{Capacity: float64(n), RefillPerSec: float64(n)}
}

func (l Limit) enabled() bool {
	return l.Capacity > 0 && l.RefillPerSec > 0
}

func (l Limit) validate() error {
	if l.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %v", ErrInvalidLimit, l.Capacity)
	}
	if l.RefillPerSec <= 0 {
		return fmt.Errorf("%w: refill rate must be positive, got %v", ErrInvalidLimit, l.RefillPerSec)
	}
	return nil
}

// Result is the outcome of one admission check.
type Result struct {
	Allowed   bool
	Limit     float64 // capacity of the dimension that produced this result
	Remaining float64 // tokens left after the check
	// ResetAt is when the bucket is back at full capacity.
	ResetAt time.Time
	// RetryAfter is how long to wait until the denied cost would fit.
	// Zero when allowed.
	RetryAfter time.Duration
	// Dimension names the bucket that produced this result: "tenant",
	// "user" or "ip". Empty when no dimension applied.
	Dimension string
}
