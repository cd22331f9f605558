package safety

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPermissionDenied is returned when the caller may not perform the
	// requested operation. It is surfaced, never retried.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInconsistentRecord is returned when a stored record is missing a
	// field the operation cannot recover (for example a check without a
	// group id and no caller-supplied fallback).
	ErrInconsistentRecord = errors.New("inconsistent record")
)

// RateLimitedError is returned when a cooldown denies an operation.
// It carries the remaining wait so callers can surface a wait-time message;
// rate-limited operations are never retried automatically.
type RateLimitedError struct {
	// Remaining is how long until the operation is allowed again.
	Remaining time.Duration
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %d minute(s)", e.RemainingMinutes())
}

// RemainingMinutes returns the remaining wait in whole minutes, rounded up.
func (e *RateLimitedError) RemainingMinutes() int {
	minutes := int(e.Remaining / time.Minute)
	if e.Remaining%time.Minute > 0 {
		minutes++
	}

	return minutes
}

// IsRateLimited reports whether err is a RateLimitedError and returns it.
func IsRateLimited(err error) (*RateLimitedError, bool) {
	var rateLimited *RateLimitedError
	if errors.As(err, &rateLimited) {
		return rateLimited, true
	}

	return nil, false
}
