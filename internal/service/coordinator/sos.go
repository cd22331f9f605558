package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/islamsaadi/SOSync/internal/domain/safety"
	"github.com/islamsaadi/SOSync/internal/logger"
	"github.com/islamsaadi/SOSync/internal/repository/records"
	"github.com/islamsaadi/SOSync/internal/service/guard"
	"github.com/islamsaadi/SOSync/internal/service/notify"
)

const (
	resolveReasonOwner      = "cancelled by owner"
	resolveReasonAdmin      = "cancelled by group admin"
	resolveReasonSuperseded = "superseded by later Safe response"
)

// SendSOSRequest carries the parameters of a direct SOS alert.
type SendSOSRequest struct {
	// GroupID is the group the alert targets.
	GroupID string
	// UserID is the member raising the alert.
	UserID string
	// Location optionally pins the sender's position.
	Location *safety.Location
	// Message optionally describes the situation.
	Message string
}

// SOSAlertCoordinator manages the SOS alert lifecycle: raising alerts
// directly or from safety check responses, cancelling them, and resolving
// them automatically when a later Safe response supersedes them.
type SOSAlertCoordinator struct {
	store      records.Store
	guard      *guard.Guard
	refresher  *statusRefresher
	aggregator *ResponseAggregator
	dispatcher notify.Dispatcher
	now        func() time.Time
}

// SendDirect raises an SOS alert outside of any safety check. The sender
// must be a member of the group and within the per-user SOS cooldown;
// a rate-limited send returns a *safety.RateLimitedError.
func (c *SOSAlertCoordinator) SendDirect(ctx context.Context, req SendSOSRequest) (string, error) {
	group, err := c.store.GetGroup(ctx, req.GroupID)
	if err != nil {
		return "", fmt.Errorf("get group: %w", err)
	}

	if !group.HasMember(req.UserID) {
		return "", safety.ErrPermissionDenied
	}

	lastSOSAt, err := c.store.LastSOSAt(ctx, req.GroupID, req.UserID)
	if err != nil {
		return "", fmt.Errorf("get last SOS time: %w", err)
	}

	if decision := c.guard.CanSendSOS(lastSOSAt, group); !decision.Allowed {
		return "", decision.Err()
	}

	alert := &safety.SOSAlert{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		GroupID:   req.GroupID,
		Timestamp: c.now(),
		Location:  req.Location,
		Message:   req.Message,
		IsActive:  true,
	}

	if err := c.store.CreateAlert(ctx, alert); err != nil {
		return "", fmt.Errorf("create alert: %w", err)
	}

	// Only direct sends consume the cooldown. SOS responses to safety
	// checks bypass it entirely.
	if err := c.store.SetLastSOSAt(ctx, req.GroupID, req.UserID, alert.Timestamp); err != nil {
		return "", fmt.Errorf("record SOS time: %w", err)
	}

	if _, err := c.refresher.Refresh(ctx, req.GroupID); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "SOS alert sent",
		"alert_id", alert.ID,
		"group_id", req.GroupID,
		"user_id", req.UserID)

	c.dispatch(ctx, notify.Notification{
		GroupID:       req.GroupID,
		Title:         "SOS",
		Body:          sosBody(req.UserID, req.Message),
		ExcludeUserID: req.UserID,
		Payload: map[string]string{
			"alertId": alert.ID,
			"userId":  req.UserID,
		},
	})

	return alert.ID, nil
}

// FromCheckResponseRequest carries the parameters of an alert raised by an
// SOS response to a safety check.
type FromCheckResponseRequest struct {
	GroupID string
	UserID  string
	CheckID string
	// Timestamp is the response timestamp, reused so the alert and the
	// response agree on when the SOS happened.
	Timestamp time.Time
	Location  *safety.Location
	Message   string
}

// CreateFromCheckResponse raises an alert on behalf of an SOS response. No
// cooldown applies and the cooldown timestamp is not consumed.
func (c *SOSAlertCoordinator) CreateFromCheckResponse(ctx context.Context, req FromCheckResponseRequest) (string, error) {
	alert := &safety.SOSAlert{
		ID:                  uuid.NewString(),
		UserID:              req.UserID,
		GroupID:             req.GroupID,
		Timestamp:           req.Timestamp,
		Location:            req.Location,
		Message:             req.Message,
		IsActive:            true,
		OriginSafetyCheckID: req.CheckID,
	}

	if err := c.store.CreateAlert(ctx, alert); err != nil {
		return "", fmt.Errorf("create alert: %w", err)
	}

	if _, err := c.refresher.Refresh(ctx, req.GroupID); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "SOS alert raised from check response",
		"alert_id", alert.ID,
		"check_id", req.CheckID,
		"group_id", req.GroupID,
		"user_id", req.UserID)

	c.dispatch(ctx, notify.Notification{
		GroupID:       req.GroupID,
		Title:         "SOS",
		Body:          sosBody(req.UserID, req.Message),
		ExcludeUserID: req.UserID,
		Payload: map[string]string{
			"alertId": alert.ID,
			"checkId": req.CheckID,
			"userId":  req.UserID,
		},
	})

	return alert.ID, nil
}

// Cancel resolves an active alert. The alert owner may always cancel;
// the group admin may cancel once the alert is at least
// safety.AdminCancelDelay old. Cancelling an already resolved alert
// is a no-op.
func (c *SOSAlertCoordinator) Cancel(ctx context.Context, alertID, requesterID string) error {
	alert, err := c.store.GetAlert(ctx, alertID)
	if err != nil {
		return fmt.Errorf("get alert: %w", err)
	}

	if !alert.IsActive {
		logger.DebugKV(ctx, "Cancel skipped, alert already resolved", "alert_id", alertID)

		return nil
	}

	if requesterID != alert.UserID {
		group, err := c.store.GetGroup(ctx, alert.GroupID)
		if err != nil {
			return fmt.Errorf("get group: %w", err)
		}

		elapsed := c.now().Sub(alert.Timestamp)
		if requesterID != group.AdminID || elapsed < safety.AdminCancelDelay {
			return safety.ErrPermissionDenied
		}
	}

	reason := resolveReasonOwner
	if requesterID != alert.UserID {
		reason = resolveReasonAdmin
	}

	if err := c.store.ResolveAlert(ctx, alertID, c.now(), reason); err != nil {
		return fmt.Errorf("resolve alert: %w", err)
	}

	logger.InfoKV(ctx, "SOS alert cancelled",
		"alert_id", alertID,
		"group_id", alert.GroupID,
		"requester_id", requesterID,
		"reason", reason)

	if _, err := c.refresher.Refresh(ctx, alert.GroupID); err != nil {
		return err
	}

	// An alert raised by a check response is retracted from the check when
	// the check is still open, then completion is re-evaluated.
	if alert.OriginSafetyCheckID != "" {
		if err := c.retractResponse(ctx, alert); err != nil {
			return err
		}
	}

	c.dispatch(ctx, notify.Notification{
		GroupID: alert.GroupID,
		Title:   "SOS resolved",
		Body:    fmt.Sprintf("The SOS alert from %s was %s.", alert.UserID, reason),
		Payload: map[string]string{
			"alertId": alertID,
			"reason":  reason,
		},
	})

	return nil
}

func (c *SOSAlertCoordinator) retractResponse(ctx context.Context, alert *safety.SOSAlert) error {
	check, err := c.store.GetCheck(ctx, alert.OriginSafetyCheckID)
	if err != nil {
		// The originating check may have been pruned with its group.
		logger.WarnKV(ctx, "Originating check unavailable, skipping retraction",
			"alert_id", alert.ID,
			"check_id", alert.OriginSafetyCheckID,
			"error", err)

		return nil
	}

	if check.Status.IsTerminal() {
		return nil
	}

	if err := c.store.RemoveResponse(ctx, check.ID, alert.UserID); err != nil {
		return fmt.Errorf("remove response: %w", err)
	}

	if _, err := c.aggregator.EvaluateCompletion(ctx, check.ID, alert.GroupID); err != nil {
		return fmt.Errorf("re-evaluate check: %w", err)
	}

	return nil
}

// AutoResolve resolves the user's active alerts that predate the given
// safety check. A Safe response to a newer check supersedes them.
func (c *SOSAlertCoordinator) AutoResolve(ctx context.Context, groupID, userID string, checkCreatedAt time.Time) error {
	alerts, err := c.store.AlertsByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}

	resolvedAt := c.now()

	for _, alert := range alerts {
		if !alert.IsActive || alert.UserID != userID || !alert.Timestamp.Before(checkCreatedAt) {
			continue
		}

		if err := c.store.ResolveAlert(ctx, alert.ID, resolvedAt, resolveReasonSuperseded); err != nil {
			return fmt.Errorf("resolve alert %s: %w", alert.ID, err)
		}

		logger.InfoKV(ctx, "SOS alert auto-resolved",
			"alert_id", alert.ID,
			"group_id", groupID,
			"user_id", userID)
	}

	return nil
}

func (c *SOSAlertCoordinator) dispatch(ctx context.Context, notification notify.Notification) {
	if err := c.dispatcher.Send(ctx, notification); err != nil {
		logger.WarnKV(ctx, "Failed to dispatch notification",
			"group_id", notification.GroupID,
			"title", notification.Title,
			"error", err)
	}
}

func sosBody(userID, message string) string {
	if message == "" {
		return fmt.Sprintf("%s needs help.", userID)
	}

	return fmt.Sprintf("%s needs help: %s", userID, message)
}
