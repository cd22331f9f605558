package guard

import (
	"time"

	"github.com/islamsaadi/SOSync/internal/domain/safety"
)

// Decision is the outcome of a cooldown check.
type Decision struct {
	// Allowed is true when the operation may proceed now.
	Allowed bool
	// Remaining is how long until the operation would be allowed.
	// Zero when Allowed.
	Remaining time.Duration
}

// Err converts a denial into the error surfaced to callers, nil when
// allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}

	return &safety.RateLimitedError{Remaining: d.Remaining}
}

// Guard evaluates cooldowns lazily from wall-clock deltas; there are no
// background countdowns.
type Guard struct {
	// now is the clock, injectable for tests.
	now func() time.Time
}

// New creates a guard using the provided clock, defaulting to time.Now.
func New(now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}

	return &Guard{now: now}
}

// CanStartSafetyCheck reports whether a new safety check may start in the
// group, based on the group-wide check interval and the last check time.
func (g *Guard) CanStartSafetyCheck(group *safety.Group) Decision {
	return g.evaluate(group.LastSafetyCheckAt, group.CheckInterval())
}

// CanSendSOS reports whether the user may send a direct SOS in the group,
// based on the per-(user, group) interval and that user's last direct SOS.
// Check-originated alerts bypass this guard entirely.
func (g *Guard) CanSendSOS(lastSOSAt *time.Time, group *safety.Group) Decision {
	return g.evaluate(lastSOSAt, group.SOSInterval())
}

// evaluate applies the shared cooldown rule: denied while the elapsed time
// since the last occurrence is shorter than the interval.
func (g *Guard) evaluate(lastAt *time.Time, interval time.Duration) Decision {
	if lastAt == nil {
		return Decision{Allowed: true}
	}

	elapsed := g.now().Sub(*lastAt)
	if elapsed >= interval {
		return Decision{Allowed: true}
	}

	return Decision{Allowed: false, Remaining: interval - elapsed}
}
