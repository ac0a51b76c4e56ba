package guard

import (
	"fmt"
	"time"
)

// RateLimitedError rejects an attempt while the guard is locked. The
// retry hint is rounded so callers can render a message without exposing
// the exact window boundary to someone probing the lockout.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("guard: locked, too many failed attempts; retry in about %s", roundHint(e.RetryAfter))
}

// TooFastError rejects an attempt that arrived under the minimum spacing.
// It does not count toward the lockout ceiling.
type TooFastError struct {
	RetryAfter time.Duration
}

func (e *TooFastError) Error() string {
	return fmt.Sprintf("guard: attempts too close together; wait %s", e.RetryAfter.Round(100*time.Millisecond))
}

// roundHint coarsens a remaining duration to the nearest minute, with a
// floor of one minute.
func roundHint(d time.Duration) time.Duration {
	if d < time.Minute {
		return time.Minute
	}
	return d.Round(time.Minute)
}
