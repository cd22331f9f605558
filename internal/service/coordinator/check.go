package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/islamsaadi/SOSync/internal/domain/safety"
	"github.com/islamsaadi/SOSync/internal/logger"
	"github.com/islamsaadi/SOSync/internal/repository/records"
	"github.com/islamsaadi/SOSync/internal/service/guard"
	"github.com/islamsaadi/SOSync/internal/service/notify"
)

// ErrInvalidResponseStatus is returned when a response carries a status
// other than "safe" or "sos".
var ErrInvalidResponseStatus = errors.New("invalid response status")

// SafetyCheckCoordinator manages the safety check lifecycle: starting
// checks and recording member responses.
type SafetyCheckCoordinator struct {
	store      records.Store
	guard      *guard.Guard
	alerts     *SOSAlertCoordinator
	aggregator *ResponseAggregator
	refresher  *statusRefresher
	dispatcher notify.Dispatcher
	now        func() time.Time
}

// Initiate starts a safety check in the group. Any member may initiate;
// a check started within the group's check cooldown returns a
// *safety.RateLimitedError.
func (c *SafetyCheckCoordinator) Initiate(ctx context.Context, groupID, initiatorID string) (string, error) {
	group, err := c.store.GetGroup(ctx, groupID)
	if err != nil {
		return "", fmt.Errorf("get group: %w", err)
	}

	if !group.HasMember(initiatorID) {
		return "", safety.ErrPermissionDenied
	}

	if decision := c.guard.CanStartSafetyCheck(group); !decision.Allowed {
		return "", decision.Err()
	}

	check := &safety.SafetyCheck{
		ID:          uuid.NewString(),
		GroupID:     groupID,
		InitiatedBy: initiatorID,
		CreatedAt:   c.now(),
		Status:      safety.CheckStatusPending,
		Responses:   map[string]safety.SafetyResponse{},
	}

	if err := c.store.CreateCheck(ctx, check); err != nil {
		return "", fmt.Errorf("create check: %w", err)
	}

	if err := c.store.SetLastSafetyCheckAt(ctx, groupID, check.CreatedAt); err != nil {
		return "", fmt.Errorf("record check time: %w", err)
	}

	// Derived, not forced to "checking": an active alert keeps the group
	// in emergency while the check runs.
	if _, err := c.refresher.Refresh(ctx, groupID); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Safety check started",
		"check_id", check.ID,
		"group_id", groupID,
		"initiated_by", initiatorID)

	c.dispatch(ctx, notify.Notification{
		GroupID:       groupID,
		Title:         "Safety check",
		Body:          fmt.Sprintf("%s asks: is everyone okay?", initiatorID),
		ExcludeUserID: initiatorID,
		Payload: map[string]string{
			"checkId": check.ID,
		},
	})

	return check.ID, nil
}

// RespondRequest carries a member's answer to a safety check.
type RespondRequest struct {
	// CheckID identifies the check being answered.
	CheckID string
	// UserID is the responding member.
	UserID string
	// Status is "safe" or "sos".
	Status safety.ResponseStatus
	// Location optionally pins the responder's position.
	Location *safety.Location
	// Message optionally annotates the response.
	Message string
	// FallbackGroupID recovers checks persisted without a group id.
	FallbackGroupID string
}

// Respond records the member's answer and runs the follow-up the answer
// implies. An SOS response immediately marks the group as emergency and
// raises an alert before aggregation; a Safe response auto-resolves the
// member's earlier alerts. A repeated response overwrites the previous one.
func (c *SafetyCheckCoordinator) Respond(ctx context.Context, req RespondRequest) error {
	if !req.Status.IsValid() || req.Status == safety.ResponseNoResponse {
		return fmt.Errorf("%w: %q", ErrInvalidResponseStatus, req.Status)
	}

	check, err := c.store.GetCheck(ctx, req.CheckID)
	if err != nil {
		return fmt.Errorf("get check: %w", err)
	}

	groupID := check.GroupID
	if groupID == "" {
		groupID = req.FallbackGroupID
	}

	if groupID == "" {
		return fmt.Errorf("check %s has no group: %w", req.CheckID, safety.ErrInconsistentRecord)
	}

	group, err := c.store.GetGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("get group: %w", err)
	}

	if !group.HasMember(req.UserID) {
		return safety.ErrPermissionDenied
	}

	response := safety.SafetyResponse{
		UserID:    req.UserID,
		Status:    req.Status,
		Timestamp: c.now(),
		Location:  req.Location,
		Message:   req.Message,
	}

	if err := c.store.PutResponse(ctx, req.CheckID, response); err != nil {
		return fmt.Errorf("put response: %w", err)
	}

	logger.InfoKV(ctx, "Safety check response recorded",
		"check_id", req.CheckID,
		"group_id", groupID,
		"user_id", req.UserID,
		"status", req.Status)

	switch req.Status {
	case safety.ResponseSOS:
		// Fast path: the group turns emergency before the aggregation
		// delay so other members see it immediately.
		if err := c.store.SetGroupStatus(ctx, groupID, safety.GroupStatusEmergency); err != nil {
			return fmt.Errorf("set group status: %w", err)
		}

		if _, err := c.alerts.CreateFromCheckResponse(ctx, FromCheckResponseRequest{
			GroupID:   groupID,
			UserID:    req.UserID,
			CheckID:   req.CheckID,
			Timestamp: response.Timestamp,
			Location:  req.Location,
			Message:   req.Message,
		}); err != nil {
			return err
		}
	case safety.ResponseSafe:
		if err := c.alerts.AutoResolve(ctx, groupID, req.UserID, check.CreatedAt); err != nil {
			return err
		}
	}

	if _, err := c.aggregator.EvaluateCompletion(ctx, req.CheckID, groupID); err != nil {
		return fmt.Errorf("evaluate completion: %w", err)
	}

	return nil
}

func (c *SafetyCheckCoordinator) dispatch(ctx context.Context, notification notify.Notification) {
	if err := c.dispatcher.Send(ctx, notification); err != nil {
		logger.WarnKV(ctx, "Failed to dispatch notification",
			"group_id", notification.GroupID,
			"title", notification.Title,
			"error", err)
	}
}
