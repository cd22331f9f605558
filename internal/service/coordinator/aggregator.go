package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/islamsaadi/SOSync/internal/domain/safety"
	"github.com/islamsaadi/SOSync/internal/logger"
	"github.com/islamsaadi/SOSync/internal/repository/records"
	"github.com/islamsaadi/SOSync/internal/service/notify"
)

// ResponseAggregator decides whether a safety check is complete and assigns
// its terminal status. It is invoked after every response write and after
// every response retraction; evaluation is idempotent, so concurrent clients
// evaluating the same check converge on the same terminal record.
type ResponseAggregator struct {
	store       records.Store
	refresher   *statusRefresher
	scheduler   *StatusResetScheduler
	dispatcher  notify.Dispatcher
	settleDelay time.Duration
	resetWindow time.Duration
	now         func() time.Time
}

// EvaluateCompletion re-reads the check and the group membership, then
// either re-asserts the pending status or commits the terminal one.
//
// A short settle delay runs before the read so that a batch of responses
// landing together is evaluated once against its final shape rather than
// flapping through intermediate states. A transient store failure is retried
// once after another settle delay.
//
// fallbackGroupID recovers checks persisted without a group id; it may be
// empty when the caller has no better knowledge than the record itself.
func (a *ResponseAggregator) EvaluateCompletion(ctx context.Context, checkID, fallbackGroupID string) (safety.CheckStatus, error) {
	if err := a.settle(ctx); err != nil {
		return "", err
	}

	status, err := a.evaluateOnce(ctx, checkID, fallbackGroupID)
	if err == nil || !retryable(err) {
		return status, err
	}

	logger.WarnKV(ctx, "Check evaluation failed, retrying",
		"check_id", checkID,
		"error", err)

	if err := a.settle(ctx); err != nil {
		return "", err
	}

	return a.evaluateOnce(ctx, checkID, fallbackGroupID)
}

func (a *ResponseAggregator) evaluateOnce(ctx context.Context, checkID, fallbackGroupID string) (safety.CheckStatus, error) {
	check, err := a.store.GetCheck(ctx, checkID)
	if err != nil {
		return "", err
	}

	// Terminal checks are never reverted, late responses notwithstanding.
	if check.Status.IsTerminal() {
		return check.Status, nil
	}

	groupID := check.GroupID
	if groupID == "" {
		groupID = fallbackGroupID
	}

	if groupID == "" {
		return "", safety.ErrInconsistentRecord
	}

	// Membership is re-read at evaluation time: members added or removed
	// after the check started count against its current roster.
	group, err := a.store.GetGroup(ctx, groupID)
	if err != nil {
		return "", err
	}

	complete := true

	for _, member := range group.Members {
		if !check.RespondedBy(member) {
			complete = false

			break
		}
	}

	if !complete {
		if err := a.store.SetCheckStatus(ctx, checkID, safety.CheckStatusPending, nil); err != nil {
			return "", err
		}

		if _, err := a.refresher.Refresh(ctx, groupID); err != nil {
			return "", err
		}

		return safety.CheckStatusPending, nil
	}

	final := safety.CheckStatusAllSafe
	if check.HasSOSResponse() {
		final = safety.CheckStatusEmergency
	}

	completedAt := a.now()

	if err := a.store.SetCheckStatus(ctx, checkID, final, &completedAt); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Safety check completed",
		"check_id", checkID,
		"group_id", groupID,
		"status", final)

	groupStatus, err := a.refresher.Refresh(ctx, groupID)
	if err != nil {
		return "", err
	}

	if groupStatus == safety.GroupStatusAllSafe {
		a.scheduler.Schedule(ctx, groupID, a.resetWindow)
	}

	a.dispatch(ctx, notify.Notification{
		GroupID: groupID,
		Title:   completionTitle(final),
		Body:    completionBody(final),
		Payload: map[string]string{
			"checkId": checkID,
			"status":  string(final),
		},
	})

	return final, nil
}

// settle waits out the aggregation delay, honoring context cancellation.
func (a *ResponseAggregator) settle(ctx context.Context) error {
	if a.settleDelay <= 0 {
		return nil
	}

	timer := time.NewTimer(a.settleDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *ResponseAggregator) dispatch(ctx context.Context, notification notify.Notification) {
	if err := a.dispatcher.Send(ctx, notification); err != nil {
		logger.WarnKV(ctx, "Failed to dispatch notification",
			"group_id", notification.GroupID,
			"title", notification.Title,
			"error", err)
	}
}

// retryable reports whether an evaluation failure is worth a second attempt.
// Missing or inconsistent records will not heal within a settle delay.
func retryable(err error) bool {
	return !errors.Is(err, records.ErrNotFound) &&
		!errors.Is(err, safety.ErrInconsistentRecord) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func completionTitle(status safety.CheckStatus) string {
	if status == safety.CheckStatusEmergency {
		return "Emergency"
	}

	return "All safe"
}

func completionBody(status safety.CheckStatus) string {
	if status == safety.CheckStatusEmergency {
		return "A member responded with SOS to the safety check."
	}

	return "Every member responded safe to the safety check."
}
