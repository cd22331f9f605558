package safety

import "time"

// Resolve derives a group's status from the currently visible record set.
//
// Precedence follows GroupStatus.Priority:
//  1. any active SOS alert → Emergency,
//  2. else any pending safety check → CheckingStatus,
//  3. else the most recently completed check is all safe and completed
//     within resetWindow of now → AllSafe,
//  4. else → Normal.
//
// The function is pure and total over its inputs: it filters active alerts
// and pending checks itself, so callers pass whatever they have read from
// the store. Coordinators invoke it after every mutation and write the
// result unconditionally; because the result depends only on current state,
// racing writers converge once all writes are visible.
func Resolve(now time.Time, alerts []*SOSAlert, checks []*SafetyCheck, resetWindow time.Duration) GroupStatus {
	if len(ActiveAlerts(alerts)) > 0 {
		return GroupStatusEmergency
	}

	if len(PendingChecks(checks)) > 0 {
		return GroupStatusChecking
	}

	if latest := latestCompleted(checks); latest != nil {
		completedAt := completionTime(latest)
		if latest.Status == CheckStatusAllSafe && now.Sub(completedAt) < resetWindow {
			return GroupStatusAllSafe
		}
	}

	return GroupStatusNormal
}

// latestCompleted returns the terminal check with the newest completion
// time, or nil when no check has completed yet.
func latestCompleted(checks []*SafetyCheck) *SafetyCheck {
	var latest *SafetyCheck

	for _, c := range checks {
		if !c.Status.IsTerminal() {
			continue
		}

		if latest == nil || completionTime(c).After(completionTime(latest)) {
			latest = c
		}
	}

	return latest
}

// completionTime returns when the check reached its terminal status,
// falling back to the creation time for records written before the
// completion timestamp existed.
func completionTime(c *SafetyCheck) time.Time {
	if c.CompletedAt != nil {
		return *c.CompletedAt
	}

	return c.CreatedAt
}
