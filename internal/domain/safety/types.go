package safety

import "time"

// Interval bounds for group settings, in minutes.
const (
	// MinCheckIntervalMinutes is the shortest allowed safety check cooldown.
	MinCheckIntervalMinutes = 1
	// MaxCheckIntervalMinutes is the longest allowed safety check cooldown.
	MaxCheckIntervalMinutes = 1440
	// MinSOSIntervalMinutes is the shortest allowed per-user SOS cooldown.
	MinSOSIntervalMinutes = 1
	// MaxSOSIntervalMinutes is the longest allowed per-user SOS cooldown.
	MaxSOSIntervalMinutes = 60
)

// AdminCancelDelay is how long an SOS alert must have been active before
// the group admin may cancel it on the owner's behalf. The cooling-off
// period prevents premature suppression of a real emergency.
const AdminCancelDelay = 24 * time.Hour

// Location is a geographic coordinate attached to responses and alerts.
type Location struct {
	// Latitude in decimal degrees.
	Latitude float64 `json:"latitude"`
	// Longitude in decimal degrees.
	Longitude float64 `json:"longitude"`
}

// Clone returns a copy of the location, nil-safe.
func (l *Location) Clone() *Location {
	if l == nil {
		return nil
	}

	cloned := *l

	return &cloned
}

// Group is a set of people who watch out for each other.
// Invariants: AdminID is always a member; Members and PendingMembers are
// disjoint.
type Group struct {
	// ID uniquely identifies the group.
	ID string
	// Name is the human-readable group name.
	Name string
	// AdminID is the user who administers the group.
	AdminID string
	// Members holds the user ids of joined members (set semantics).
	Members []string
	// PendingMembers holds invited users who have not joined yet.
	PendingMembers []string
	// CheckIntervalMinutes is the minimum gap between safety checks.
	CheckIntervalMinutes int
	// SOSIntervalMinutes is the minimum gap between direct SOS alerts
	// from the same user.
	SOSIntervalMinutes int
	// LastSafetyCheckAt is when the last safety check was started, if any.
	LastSafetyCheckAt *time.Time
	// CurrentStatus is the derived group status last committed to the store.
	CurrentStatus GroupStatus
	// CreatedAt is when the group was created.
	CreatedAt time.Time
}

// HasMember reports whether userID has joined the group.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}

	return false
}

// HasPendingMember reports whether userID has an outstanding invitation.
func (g *Group) HasPendingMember(userID string) bool {
	for _, m := range g.PendingMembers {
		if m == userID {
			return true
		}
	}

	return false
}

// CheckInterval returns the safety check cooldown as a duration.
func (g *Group) CheckInterval() time.Duration {
	return time.Duration(g.CheckIntervalMinutes) * time.Minute
}

// SOSInterval returns the per-user SOS cooldown as a duration.
func (g *Group) SOSInterval() time.Duration {
	return time.Duration(g.SOSIntervalMinutes) * time.Minute
}

// SafetyCheck is a broadcast "is everyone okay?" poll.
// Status is monotonic: it is set to a terminal value at most once, when all
// current members have responded, and is never reverted to pending.
type SafetyCheck struct {
	// ID uniquely identifies the check.
	ID string
	// GroupID is the group being polled.
	GroupID string
	// InitiatedBy is the member who started the check.
	InitiatedBy string
	// CreatedAt is when the check was started.
	CreatedAt time.Time
	// Status is pending until every member has responded.
	Status CheckStatus
	// CompletedAt is when the terminal status was written, if it was.
	CompletedAt *time.Time
	// Responses maps user id to that user's response. Absent on a freshly
	// created record and decoded as an empty map.
	Responses map[string]SafetyResponse
}

// RespondedBy reports whether userID has already answered the check.
func (c *SafetyCheck) RespondedBy(userID string) bool {
	_, ok := c.Responses[userID]

	return ok
}

// HasSOSResponse reports whether any recorded response is an SOS.
func (c *SafetyCheck) HasSOSResponse() bool {
	for _, r := range c.Responses {
		if r.Status == ResponseSOS {
			return true
		}
	}

	return false
}

// SafetyResponse is a single member's answer to a safety check. It is
// written once per (check, user) pair; a duplicate write from the same user
// is last-write-wins, which is an accepted edge case.
type SafetyResponse struct {
	// UserID is the responding member.
	UserID string `json:"userId"`
	// Status is the member's answer.
	Status ResponseStatus `json:"status"`
	// Timestamp is when the response was recorded.
	Timestamp time.Time `json:"timestamp"`
	// Location is where the member responded from, if known.
	Location *Location `json:"location,omitempty"`
	// Message is an optional free-text note.
	Message string `json:"message,omitempty"`
}

// SOSAlert is a standing emergency beacon tied to one user. IsActive flips
// true→false exactly once in effect: resolving an already resolved alert is
// a no-op against the stored record.
type SOSAlert struct {
	// ID uniquely identifies the alert.
	ID string
	// UserID is the member in distress.
	UserID string
	// GroupID is the group the alert belongs to.
	GroupID string
	// Timestamp is when the alert was raised.
	Timestamp time.Time
	// Location is where the alert was raised from, if known.
	Location *Location
	// Message is an optional free-text note.
	Message string
	// IsActive is true until the alert is resolved.
	IsActive bool
	// ResolvedAt is when the alert was resolved, if it was.
	ResolvedAt *time.Time
	// ResolvedReason explains why the alert was resolved.
	ResolvedReason string
	// OriginSafetyCheckID links alerts that were auto-created from an SOS
	// response inside a safety check. Empty for direct alerts.
	OriginSafetyCheckID string
}

// ActiveAlerts filters alerts down to the ones still active.
func ActiveAlerts(alerts []*SOSAlert) []*SOSAlert {
	active := make([]*SOSAlert, 0, len(alerts))

	for _, a := range alerts {
		if a.IsActive {
			active = append(active, a)
		}
	}

	return active
}

// PendingChecks filters checks down to the ones still collecting responses.
func PendingChecks(checks []*SafetyCheck) []*SafetyCheck {
	pending := make([]*SafetyCheck, 0, len(checks))

	for _, c := range checks {
		if !c.Status.IsTerminal() {
			pending = append(pending, c)
		}
	}

	return pending
}
