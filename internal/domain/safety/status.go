package safety

// GroupStatus is the derived status of a whole group.
type GroupStatus string

const (
	// GroupStatusNormal means nothing is happening: no active alerts, no
	// pending checks, no recent all-safe confirmation.
	GroupStatusNormal GroupStatus = "normal"
	// GroupStatusAllSafe means the most recent completed safety check came
	// back all safe and the reset window has not elapsed yet.
	GroupStatusAllSafe GroupStatus = "allSafe"
	// GroupStatusChecking means a safety check is pending responses.
	GroupStatusChecking GroupStatus = "checkingStatus"
	// GroupStatusEmergency means at least one SOS alert is active or a
	// pending check has received an SOS response.
	GroupStatusEmergency GroupStatus = "emergency"
)

// Priority returns the display/precedence rank of the status.
// Emergency outranks CheckingStatus outranks AllSafe outranks Normal;
// Resolve applies the same precedence when several conditions hold at once.
func (s GroupStatus) Priority() int {
	switch s {
	case GroupStatusEmergency:
		return 4
	case GroupStatusChecking:
		return 3
	case GroupStatusAllSafe:
		return 2
	case GroupStatusNormal:
		return 1
	default:
		return 0
	}
}

// IsValid reports whether s is one of the four known statuses.
func (s GroupStatus) IsValid() bool {
	return s.Priority() > 0
}

// CheckStatus is the lifecycle state of a safety check.
type CheckStatus string

const (
	// CheckStatusPending means the check is still collecting responses.
	CheckStatusPending CheckStatus = "pending"
	// CheckStatusAllSafe is the terminal state when every member answered
	// and nobody sent SOS.
	CheckStatusAllSafe CheckStatus = "allSafe"
	// CheckStatusEmergency is the terminal state when every member answered
	// and at least one response was SOS.
	CheckStatusEmergency CheckStatus = "emergency"
)

// IsTerminal reports whether the check has been finalized. Terminal states
// are never reverted to pending.
func (s CheckStatus) IsTerminal() bool {
	return s == CheckStatusAllSafe || s == CheckStatusEmergency
}

// ResponseStatus is a single member's answer to a safety check.
type ResponseStatus string

const (
	// ResponseSafe confirms the member is okay.
	ResponseSafe ResponseStatus = "safe"
	// ResponseSOS escalates the check to an emergency immediately.
	ResponseSOS ResponseStatus = "sos"
	// ResponseNoResponse records that the member did not answer.
	ResponseNoResponse ResponseStatus = "noResponse"
)

// IsValid reports whether s is one of the known response statuses.
func (s ResponseStatus) IsValid() bool {
	return s == ResponseSafe || s == ResponseSOS || s == ResponseNoResponse
}
