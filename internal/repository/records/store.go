package records

import (
	"context"
	"errors"
	"time"

	"github.com/islamsaadi/SOSync/internal/domain/safety"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// EventKind names the entity kind a record-change event belongs to.
type EventKind string

const (
	// EventGroupUpdated fires on writes to the group record itself
	// (status, membership, cooldown timestamps).
	EventGroupUpdated EventKind = "groupUpdated"
	// EventCheckUpdated fires on writes to a safety check or its responses.
	EventCheckUpdated EventKind = "checkUpdated"
	// EventAlertUpdated fires on SOS alert creation and resolution.
	EventAlertUpdated EventKind = "alertUpdated"
)

// Event is a typed record-change notification pushed to subscribers of a
// group. It carries ids only; subscribers re-read current state rather than
// applying deltas.
type Event struct {
	// Kind is the entity kind that changed.
	Kind EventKind `json:"kind"`
	// GroupID is the group the changed record belongs to.
	GroupID string `json:"groupId"`
	// RecordID is the id of the changed record (group, check or alert id).
	RecordID string `json:"recordId"`
}

// GroupStore persists group records, membership sets and the per-group
// cooldown timestamps.
type GroupStore interface {
	GetGroup(ctx context.Context, groupID string) (*safety.Group, error)
	CreateGroup(ctx context.Context, group *safety.Group) error
	DeleteGroup(ctx context.Context, groupID string) error
	SetGroupStatus(ctx context.Context, groupID string, status safety.GroupStatus) error
	SetLastSafetyCheckAt(ctx context.Context, groupID string, at time.Time) error
	AddPendingMember(ctx context.Context, groupID, userID string) error
	// AcceptInvite atomically moves userID from pending members to members.
	// This is the only compare-and-swap in the system; it fails with
	// ErrNotFound when the invitation has vanished meanwhile.
	AcceptInvite(ctx context.Context, groupID, userID string) error
	RemoveMember(ctx context.Context, groupID, userID string) error
	LastSOSAt(ctx context.Context, groupID, userID string) (*time.Time, error)
	SetLastSOSAt(ctx context.Context, groupID, userID string, at time.Time) error
}

// CheckStore persists safety checks and their response maps.
type CheckStore interface {
	GetCheck(ctx context.Context, checkID string) (*safety.SafetyCheck, error)
	CreateCheck(ctx context.Context, check *safety.SafetyCheck) error
	ChecksByGroup(ctx context.Context, groupID string) ([]*safety.SafetyCheck, error)
	// PutResponse writes one member's response at its own leaf path.
	// A second write for the same (check, user) pair is last-write-wins.
	PutResponse(ctx context.Context, checkID string, response safety.SafetyResponse) error
	RemoveResponse(ctx context.Context, checkID, userID string) error
	SetCheckStatus(ctx context.Context, checkID string, status safety.CheckStatus, completedAt *time.Time) error
}

// AlertStore persists SOS alerts.
type AlertStore interface {
	GetAlert(ctx context.Context, alertID string) (*safety.SOSAlert, error)
	CreateAlert(ctx context.Context, alert *safety.SOSAlert) error
	AlertsByGroup(ctx context.Context, groupID string) ([]*safety.SOSAlert, error)
	// ResolveAlert flips the alert inactive. Resolving an already resolved
	// alert is a no-op that keeps the original resolution fields.
	ResolveAlert(ctx context.Context, alertID string, at time.Time, reason string) error
}

// Watcher delivers record-change events for a group to subscribers.
type Watcher interface {
	// Subscribe returns a channel of events for the group. The channel is
	// closed when ctx is canceled.
	Subscribe(ctx context.Context, groupID string) (<-chan Event, error)
}

// Store is the full record store contract the coordinators depend on.
type Store interface {
	GroupStore
	CheckStore
	AlertStore
	Watcher

	Close() error
}
