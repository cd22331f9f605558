package safety

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestResolve_Precedence verifies the four-step precedence of Resolve over
// representative record sets.
func TestResolve_Precedence(t *testing.T) {
	t.Parallel()

	var (
		now         = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
		resetWindow = time.Hour
		recent      = now.Add(-10 * time.Minute)
		stale       = now.Add(-2 * time.Hour)
	)

	activeAlert := &SOSAlert{ID: "a1", UserID: "u1", GroupID: "g1", Timestamp: recent, IsActive: true}
	resolvedAlert := &SOSAlert{ID: "a2", UserID: "u1", GroupID: "g1", Timestamp: stale, IsActive: false}
	pendingCheck := &SafetyCheck{ID: "c1", GroupID: "g1", CreatedAt: recent, Status: CheckStatusPending}
	allSafeCheck := &SafetyCheck{
		ID:          "c2",
		GroupID:     "g1",
		CreatedAt:   recent,
		Status:      CheckStatusAllSafe,
		CompletedAt: &recent,
	}
	staleAllSafe := &SafetyCheck{
		ID:          "c3",
		GroupID:     "g1",
		CreatedAt:   stale,
		Status:      CheckStatusAllSafe,
		CompletedAt: &stale,
	}
	emergencyCheck := &SafetyCheck{
		ID:          "c4",
		GroupID:     "g1",
		CreatedAt:   recent,
		Status:      CheckStatusEmergency,
		CompletedAt: &recent,
	}

	tests := []struct {
		name   string
		alerts []*SOSAlert
		checks []*SafetyCheck
		want   GroupStatus
	}{
		{
			name: "empty state is normal",
			want: GroupStatusNormal,
		},
		{
			name:   "active alert wins over everything",
			alerts: []*SOSAlert{activeAlert},
			checks: []*SafetyCheck{pendingCheck, allSafeCheck},
			want:   GroupStatusEmergency,
		},
		{
			name:   "resolved alerts do not count",
			alerts: []*SOSAlert{resolvedAlert},
			want:   GroupStatusNormal,
		},
		{
			name:   "pending check means checking",
			checks: []*SafetyCheck{pendingCheck},
			want:   GroupStatusChecking,
		},
		{
			name:   "pending check outranks recent all safe",
			checks: []*SafetyCheck{pendingCheck, allSafeCheck},
			want:   GroupStatusChecking,
		},
		{
			name:   "recent all safe within window",
			checks: []*SafetyCheck{allSafeCheck},
			want:   GroupStatusAllSafe,
		},
		{
			name:   "all safe outside window is normal",
			checks: []*SafetyCheck{staleAllSafe},
			want:   GroupStatusNormal,
		},
		{
			name:   "latest completed check decides, not an older all safe",
			checks: []*SafetyCheck{staleAllSafe, emergencyCheck},
			want:   GroupStatusNormal,
		},
		{
			name:   "resolved alert plus no pending check is normal",
			alerts: []*SOSAlert{resolvedAlert},
			checks: []*SafetyCheck{emergencyCheck},
			want:   GroupStatusNormal,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Resolve(now, tt.alerts, tt.checks, resetWindow)
			require.Equal(t, tt.want, got)
		})
	}
}

// TestResolve_CompletionTimeFallback ensures terminal checks persisted
// without a completion timestamp fall back to their creation time.
func TestResolve_CompletionTimeFallback(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	legacy := &SafetyCheck{
		ID:        "c1",
		GroupID:   "g1",
		CreatedAt: now.Add(-5 * time.Minute),
		Status:    CheckStatusAllSafe,
	}

	require.Equal(t, GroupStatusAllSafe, Resolve(now, nil, []*SafetyCheck{legacy}, time.Hour))
	require.Equal(t, GroupStatusNormal, Resolve(now.Add(2*time.Hour), nil, []*SafetyCheck{legacy}, time.Hour))
}

// TestGroupStatus_Priority verifies the display ordering of statuses.
func TestGroupStatus_Priority(t *testing.T) {
	t.Parallel()

	require.Greater(t, GroupStatusEmergency.Priority(), GroupStatusChecking.Priority())
	require.Greater(t, GroupStatusChecking.Priority(), GroupStatusAllSafe.Priority())
	require.Greater(t, GroupStatusAllSafe.Priority(), GroupStatusNormal.Priority())
	require.Equal(t, 0, GroupStatus("bogus").Priority())
	require.False(t, GroupStatus("bogus").IsValid())
}

// TestRateLimitedError_RemainingMinutes checks the round-up behavior used
// for wait-time messages.
func TestRateLimitedError_RemainingMinutes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		remaining time.Duration
		want      int
	}{
		{remaining: 3 * time.Minute, want: 3},
		{remaining: 2*time.Minute + time.Second, want: 3},
		{remaining: 30 * time.Second, want: 1},
		{remaining: 0, want: 0},
	}

	for _, tt := range tests {
		err := &RateLimitedError{Remaining: tt.remaining}
		require.Equal(t, tt.want, err.RemainingMinutes())
	}
}
