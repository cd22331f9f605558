package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/islamsaadi/SOSync/internal/domain/safety"
	"github.com/islamsaadi/SOSync/internal/logger"
	"github.com/islamsaadi/SOSync/internal/repository/records"
)

var (
	// ErrInvalidGroupName is returned when a group is created without a name.
	ErrInvalidGroupName = errors.New("group name must not be empty")
	// ErrInvalidInterval is returned when a cooldown setting is out of range.
	ErrInvalidInterval = errors.New("interval out of range")
	// ErrAlreadyMember is returned when inviting a user who already joined.
	ErrAlreadyMember = errors.New("user is already a member")
	// ErrAlreadyInvited is returned when inviting a user twice.
	ErrAlreadyInvited = errors.New("user is already invited")
	// ErrNotInvited is returned when accepting an invitation that does
	// not exist.
	ErrNotInvited = errors.New("user has no pending invitation")
	// ErrCannotRemoveAdmin is returned when removing the group admin;
	// the admin leaves only by deleting the group.
	ErrCannotRemoveAdmin = errors.New("group admin cannot be removed")
)

// Service manages groups and their rosters on top of the record store.
type Service struct {
	store records.GroupStore
	now   func() time.Time
}

// New creates the membership service. The clock defaults to time.Now.
func New(store records.GroupStore, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{store: store, now: now}
}

// CreateGroupRequest carries the parameters of a new group.
type CreateGroupRequest struct {
	// Name is the human-readable group name.
	Name string
	// CreatorID becomes the admin and the sole initial member.
	CreatorID string
	// CheckIntervalMinutes is the safety check cooldown, 1 to 1440.
	CheckIntervalMinutes int
	// SOSIntervalMinutes is the per-user SOS cooldown, 1 to 60.
	SOSIntervalMinutes int
}

// CreateGroup creates a group with the creator as admin and sole member.
func (s *Service) CreateGroup(ctx context.Context, req CreateGroupRequest) (*safety.Group, error) {
	if req.Name == "" {
		return nil, ErrInvalidGroupName
	}

	if req.CheckIntervalMinutes < safety.MinCheckIntervalMinutes ||
		req.CheckIntervalMinutes > safety.MaxCheckIntervalMinutes {
		return nil, fmt.Errorf("%w: check interval %d not in [%d, %d]",
			ErrInvalidInterval, req.CheckIntervalMinutes,
			safety.MinCheckIntervalMinutes, safety.MaxCheckIntervalMinutes)
	}

	if req.SOSIntervalMinutes < safety.MinSOSIntervalMinutes ||
		req.SOSIntervalMinutes > safety.MaxSOSIntervalMinutes {
		return nil, fmt.Errorf("%w: sos interval %d not in [%d, %d]",
			ErrInvalidInterval, req.SOSIntervalMinutes,
			safety.MinSOSIntervalMinutes, safety.MaxSOSIntervalMinutes)
	}

	group := &safety.Group{
		ID:                   uuid.NewString(),
		Name:                 req.Name,
		AdminID:              req.CreatorID,
		Members:              []string{req.CreatorID},
		CheckIntervalMinutes: req.CheckIntervalMinutes,
		SOSIntervalMinutes:   req.SOSIntervalMinutes,
		CurrentStatus:        safety.GroupStatusNormal,
		CreatedAt:            s.now(),
	}

	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}

	logger.InfoKV(ctx, "Group created",
		"group_id", group.ID,
		"name", group.Name,
		"admin_id", group.AdminID)

	return group, nil
}

// Invite adds userID to the group's pending members. Only the admin
// may invite.
func (s *Service) Invite(ctx context.Context, groupID, adminID, userID string) error {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("get group: %w", err)
	}

	if adminID != group.AdminID {
		return safety.ErrPermissionDenied
	}

	if group.HasMember(userID) {
		return ErrAlreadyMember
	}

	if group.HasPendingMember(userID) {
		return ErrAlreadyInvited
	}

	if err := s.store.AddPendingMember(ctx, groupID, userID); err != nil {
		return fmt.Errorf("add pending member: %w", err)
	}

	logger.InfoKV(ctx, "Member invited",
		"group_id", groupID,
		"user_id", userID)

	return nil
}

// AcceptInvite moves userID from pending members to members. The move is
// atomic against concurrent roster changes.
func (s *Service) AcceptInvite(ctx context.Context, groupID, userID string) error {
	err := s.store.AcceptInvite(ctx, groupID, userID)
	if errors.Is(err, records.ErrNotFound) {
		return fmt.Errorf("%w: %s in group %s", ErrNotInvited, userID, groupID)
	}

	if err != nil {
		return fmt.Errorf("accept invite: %w", err)
	}

	logger.InfoKV(ctx, "Invitation accepted",
		"group_id", groupID,
		"user_id", userID)

	return nil
}

// RemoveMember removes userID from the group. Only the admin may remove
// members, and the admin is never removable.
func (s *Service) RemoveMember(ctx context.Context, groupID, adminID, userID string) error {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("get group: %w", err)
	}

	if adminID != group.AdminID {
		return safety.ErrPermissionDenied
	}

	if userID == group.AdminID {
		return ErrCannotRemoveAdmin
	}

	if err := s.store.RemoveMember(ctx, groupID, userID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}

	logger.InfoKV(ctx, "Member removed",
		"group_id", groupID,
		"user_id", userID)

	return nil
}

// DeleteGroup deletes the group and all of its records. Only the admin
// may delete.
func (s *Service) DeleteGroup(ctx context.Context, groupID, adminID string) error {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("get group: %w", err)
	}

	if adminID != group.AdminID {
		return safety.ErrPermissionDenied
	}

	if err := s.store.DeleteGroup(ctx, groupID); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}

	logger.InfoKV(ctx, "Group deleted", "group_id", groupID)

	return nil
}

// Get returns the group record, membership included.
func (s *Service) Get(ctx context.Context, groupID string) (*safety.Group, error) {
	return s.store.GetGroup(ctx, groupID)
}
