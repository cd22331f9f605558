package guard

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/islamsaadi/SOSync/internal/domain/safety"
)

// TestCanStartSafetyCheck covers the never-checked, cooling-down and
// cooled-down cases.
func TestCanStartSafetyCheck(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	g := New(func() time.Time { return now })

	group := &safety.Group{ID: "g1", CheckIntervalMinutes: 30}

	// Never checked.
	decision := g.CanStartSafetyCheck(group)
	require.True(t, decision.Allowed)
	require.NoError(t, decision.Err())

	// Checked 10 minutes ago.
	lastCheck := now.Add(-10 * time.Minute)
	group.LastSafetyCheckAt = &lastCheck

	decision = g.CanStartSafetyCheck(group)
	require.False(t, decision.Allowed)
	require.Equal(t, 20*time.Minute, decision.Remaining)

	var rateLimited *safety.RateLimitedError
	require.ErrorAs(t, decision.Err(), &rateLimited)
	require.Equal(t, 20, rateLimited.RemainingMinutes())

	// Interval fully elapsed.
	lastCheck = now.Add(-30 * time.Minute)
	group.LastSafetyCheckAt = &lastCheck

	require.True(t, g.CanStartSafetyCheck(group).Allowed)
}

// TestCanSendSOS mirrors scenario C: two direct SOS two minutes apart with
// a five minute interval leave three minutes of cooldown.
func TestCanSendSOS(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	g := New(func() time.Time { return now })

	group := &safety.Group{ID: "g1", SOSIntervalMinutes: 5}

	require.True(t, g.CanSendSOS(nil, group).Allowed)

	lastSOS := now.Add(-2 * time.Minute)
	decision := g.CanSendSOS(&lastSOS, group)
	require.False(t, decision.Allowed)

	var rateLimited *safety.RateLimitedError
	require.True(t, errors.As(decision.Err(), &rateLimited))
	require.Equal(t, 3, rateLimited.RemainingMinutes())
}

// TestCooldown_Monotonic checks that a denial at t implies denial at every
// instant strictly inside the remaining window, and permission right after.
func TestCooldown_Monotonic(t *testing.T) {
	t.Parallel()

	properties := gopter.NewProperties(nil)

	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	properties.Property("denied stays denied until remaining elapses", prop.ForAll(
		func(intervalMinutes, elapsedSeconds, probeSeconds int) bool {
			group := &safety.Group{ID: "g1", SOSIntervalMinutes: intervalMinutes}
			lastSOS := base.Add(-time.Duration(elapsedSeconds) * time.Second)

			now := base
			decision := New(func() time.Time { return now }).CanSendSOS(&lastSOS, group)

			if decision.Allowed {
				return true
			}

			// Probe a random instant strictly inside the remaining window.
			probe := time.Duration(probeSeconds) * time.Second
			if probe >= decision.Remaining {
				probe = decision.Remaining - time.Second
			}

			later := base.Add(probe)
			inside := New(func() time.Time { return later }).CanSendSOS(&lastSOS, group)

			if inside.Allowed {
				return false
			}

			// And right past the remaining window the operation is allowed.
			after := base.Add(decision.Remaining + time.Second)

			return New(func() time.Time { return after }).CanSendSOS(&lastSOS, group).Allowed
		},
		gen.IntRange(safety.MinSOSIntervalMinutes, safety.MaxSOSIntervalMinutes),
		gen.IntRange(0, 3600),
		gen.IntRange(0, 3600),
	))

	properties.TestingRun(t)
}
