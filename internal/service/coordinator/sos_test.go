package coordinator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/islamsaadi/SOSync/internal/domain/safety"
	"github.com/islamsaadi/SOSync/internal/service/coordinator"
)

func TestSendDirect(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, time.Hour)
	group := f.seedGroup(t, "alice", "bob")

	alertID, err := f.engine.Alerts.SendDirect(ctx, coordinator.SendSOSRequest{
		GroupID:  group.ID,
		UserID:   "bob",
		Location: &safety.Location{Latitude: 32.08, Longitude: 34.78},
		Message:  "trapped in elevator",
	})
	require.NoError(t, err)

	alert, err := f.store.GetAlert(ctx, alertID)
	require.NoError(t, err)
	require.True(t, alert.IsActive)
	require.Equal(t, "bob", alert.UserID)
	require.Empty(t, alert.OriginSafetyCheckID)
	require.NotNil(t, alert.Location)
	require.InDelta(t, 32.08, alert.Location.Latitude, 1e-9)

	require.Equal(t, safety.GroupStatusEmergency, f.groupStatus(t, group.ID))

	lastSOSAt, err := f.store.LastSOSAt(ctx, group.ID, "bob")
	require.NoError(t, err)
	require.NotNil(t, lastSOSAt)

	notifications := f.sent.byTitle("SOS")
	require.Len(t, notifications, 1)
	require.Equal(t, "bob", notifications[0].ExcludeUserID)
	require.Equal(t, alertID, notifications[0].Payload["alertId"])
}

func TestSendDirect_NotMember(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Hour)
	group := f.seedGroup(t, "alice")

	_, err := f.engine.Alerts.SendDirect(context.Background(), coordinator.SendSOSRequest{
		GroupID: group.ID,
		UserID:  "mallory",
	})
	require.ErrorIs(t, err, safety.ErrPermissionDenied)
}

func TestSendDirect_Cooldown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, time.Hour)
	group := f.seedGroup(t, "alice", "bob")

	_, err := f.engine.Alerts.SendDirect(ctx, coordinator.SendSOSRequest{
		GroupID: group.ID,
		UserID:  "bob",
	})
	require.NoError(t, err)

	// Two minutes into a five minute cooldown: three minutes remain.
	f.clock.Advance(2 * time.Minute)

	_, err = f.engine.Alerts.SendDirect(ctx, coordinator.SendSOSRequest{
		GroupID: group.ID,
		UserID:  "bob",
	})
	rateLimited, ok := safety.IsRateLimited(err)
	require.True(t, ok)
	require.Equal(t, 3, rateLimited.RemainingMinutes())

	// The cooldown is per user: alice is unaffected by bob's send.
	_, err = f.engine.Alerts.SendDirect(ctx, coordinator.SendSOSRequest{
		GroupID: group.ID,
		UserID:  "alice",
	})
	require.NoError(t, err)

	f.clock.Advance(3 * time.Minute)

	_, err = f.engine.Alerts.SendDirect(ctx, coordinator.SendSOSRequest{
		GroupID: group.ID,
		UserID:  "bob",
	})
	require.NoError(t, err)
}

func TestSOSFromCheckResponse_BypassesCooldown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, time.Hour)
	group := f.seedGroup(t, "alice", "bob")

	_, err := f.engine.Alerts.SendDirect(ctx, coordinator.SendSOSRequest{
		GroupID: group.ID,
		UserID:  "bob",
	})
	require.NoError(t, err)

	// Still inside bob's direct-SOS cooldown, but an SOS answer to a
	// safety check must never be rate limited.
	f.clock.Advance(time.Minute)

	checkID, err := f.engine.Checks.Initiate(ctx, group.ID, "alice")
	require.NoError(t, err)

	f.respond(t, checkID, "bob", safety.ResponseSOS)

	alerts, err := f.store.AlertsByGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
}

func TestCancel_Owner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, time.Hour)
	group := f.seedGroup(t, "alice", "bob")

	alertID, err := f.engine.Alerts.SendDirect(ctx, coordinator.SendSOSRequest{
		GroupID: group.ID,
		UserID:  "bob",
	})
	require.NoError(t, err)
	require.Equal(t, safety.GroupStatusEmergency, f.groupStatus(t, group.ID))

	require.NoError(t, f.engine.Alerts.Cancel(ctx, alertID, "bob"))

	alert, err := f.store.GetAlert(ctx, alertID)
	require.NoError(t, err)
	require.False(t, alert.IsActive)
	require.Equal(t, "cancelled by owner", alert.ResolvedReason)
	require.NotNil(t, alert.ResolvedAt)

	require.Equal(t, safety.GroupStatusNormal, f.groupStatus(t, group.ID))
}

func TestCancel_AdminNeedsDelay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, time.Hour)
	group := f.seedGroup(t, "alice", "bob")

	alertID, err := f.engine.Alerts.SendDirect(ctx, coordinator.SendSOSRequest{
		GroupID: group.ID,
		UserID:  "bob",
	})
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)

	err = f.engine.Alerts.Cancel(ctx, alertID, "alice")
	require.ErrorIs(t, err, safety.ErrPermissionDenied)

	f.clock.Advance(23 * time.Hour)

	require.NoError(t, f.engine.Alerts.Cancel(ctx, alertID, "alice"))

	alert, err := f.store.GetAlert(ctx, alertID)
	require.NoError(t, err)
	require.False(t, alert.IsActive)
	require.Equal(t, "cancelled by group admin", alert.ResolvedReason)
}

func TestCancel_NonOwnerNonAdmin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, time.Hour)
	group := f.seedGroup(t, "alice", "bob", "carol")

	alertID, err := f.engine.Alerts.SendDirect(ctx, coordinator.SendSOSRequest{
		GroupID: group.ID,
		UserID:  "bob",
	})
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)

	err = f.engine.Alerts.Cancel(ctx, alertID, "carol")
	require.ErrorIs(t, err, safety.ErrPermissionDenied)
}

func TestCancel_Idempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, time.Hour)
	group := f.seedGroup(t, "alice", "bob")

	alertID, err := f.engine.Alerts.SendDirect(ctx, coordinator.SendSOSRequest{
		GroupID: group.ID,
		UserID:  "bob",
	})
	require.NoError(t, err)

	require.NoError(t, f.engine.Alerts.Cancel(ctx, alertID, "bob"))

	alert, err := f.store.GetAlert(ctx, alertID)
	require.NoError(t, err)
	firstResolvedAt := alert.ResolvedAt

	f.clock.Advance(time.Hour)

	// The second cancel is a no-op that keeps the original resolution.
	require.NoError(t, f.engine.Alerts.Cancel(ctx, alertID, "bob"))

	alert, err = f.store.GetAlert(ctx, alertID)
	require.NoError(t, err)
	require.Equal(t, firstResolvedAt, alert.ResolvedAt)
	require.Equal(t, "cancelled by owner", alert.ResolvedReason)
}

func TestCancel_RetractsCheckResponse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, time.Hour)
	group := f.seedGroup(t, "alice", "bob", "carol")

	checkID, err := f.engine.Checks.Initiate(ctx, group.ID, "alice")
	require.NoError(t, err)

	f.respond(t, checkID, "alice", safety.ResponseSafe)
	f.respond(t, checkID, "bob", safety.ResponseSOS)
	require.Equal(t, safety.GroupStatusEmergency, f.groupStatus(t, group.ID))

	alerts, err := f.store.AlertsByGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	// Bob cancels the false alarm while the check is still open: his SOS
	// response is withdrawn along with the alert.
	require.NoError(t, f.engine.Alerts.Cancel(ctx, alerts[0].ID, "bob"))

	check, err := f.store.GetCheck(ctx, checkID)
	require.NoError(t, err)
	require.Equal(t, safety.CheckStatusPending, check.Status)
	require.False(t, check.RespondedBy("bob"))
	require.Equal(t, safety.GroupStatusChecking, f.groupStatus(t, group.ID))

	f.respond(t, checkID, "bob", safety.ResponseSafe)
	f.respond(t, checkID, "carol", safety.ResponseSafe)

	check, err = f.store.GetCheck(ctx, checkID)
	require.NoError(t, err)
	require.Equal(t, safety.CheckStatusAllSafe, check.Status)
	require.Equal(t, safety.GroupStatusAllSafe, f.groupStatus(t, group.ID))
}

func TestCancel_AfterCheckCompleted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, time.Hour)
	group := f.seedGroup(t, "alice", "bob")

	checkID, err := f.engine.Checks.Initiate(ctx, group.ID, "alice")
	require.NoError(t, err)

	f.respond(t, checkID, "alice", safety.ResponseSafe)
	f.respond(t, checkID, "bob", safety.ResponseSOS)

	check, err := f.store.GetCheck(ctx, checkID)
	require.NoError(t, err)
	require.Equal(t, safety.CheckStatusEmergency, check.Status)

	alerts, err := f.store.AlertsByGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	// The check already closed: cancelling the alert resolves it and
	// clears the emergency, but the terminal check status stands.
	require.NoError(t, f.engine.Alerts.Cancel(ctx, alerts[0].ID, "bob"))

	check, err = f.store.GetCheck(ctx, checkID)
	require.NoError(t, err)
	require.Equal(t, safety.CheckStatusEmergency, check.Status)
	require.True(t, check.RespondedBy("bob"))

	require.NotEqual(t, safety.GroupStatusEmergency, f.groupStatus(t, group.ID))
}

func TestSafeResponseAutoResolvesEarlierAlert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, time.Hour)
	group := f.seedGroup(t, "alice", "bob")

	alertID, err := f.engine.Alerts.SendDirect(ctx, coordinator.SendSOSRequest{
		GroupID: group.ID,
		UserID:  "bob",
	})
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)

	checkID, err := f.engine.Checks.Initiate(ctx, group.ID, "alice")
	require.NoError(t, err)

	// Bob answering safe to a check newer than his alert resolves it.
	f.respond(t, checkID, "bob", safety.ResponseSafe)

	alert, err := f.store.GetAlert(ctx, alertID)
	require.NoError(t, err)
	require.False(t, alert.IsActive)
	require.Equal(t, "superseded by later Safe response", alert.ResolvedReason)

	f.respond(t, checkID, "alice", safety.ResponseSafe)
	require.Equal(t, safety.GroupStatusAllSafe, f.groupStatus(t, group.ID))
}

func TestSafeResponseKeepsNewerAlert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, time.Hour)
	group := f.seedGroup(t, "alice", "bob")

	checkID, err := f.engine.Checks.Initiate(ctx, group.ID, "alice")
	require.NoError(t, err)

	f.clock.Advance(time.Minute)

	// Bob raises an alert after the check started, then answers safe.
	// The alert is newer than the check, so it survives the answer and
	// keeps the group in emergency past the all-safe completion.
	alertID, err := f.engine.Alerts.SendDirect(ctx, coordinator.SendSOSRequest{
		GroupID: group.ID,
		UserID:  "bob",
	})
	require.NoError(t, err)

	f.respond(t, checkID, "bob", safety.ResponseSafe)
	f.respond(t, checkID, "alice", safety.ResponseSafe)

	alert, err := f.store.GetAlert(ctx, alertID)
	require.NoError(t, err)
	require.True(t, alert.IsActive)

	check, err := f.store.GetCheck(ctx, checkID)
	require.NoError(t, err)
	require.Equal(t, safety.CheckStatusAllSafe, check.Status)
	require.Equal(t, safety.GroupStatusEmergency, f.groupStatus(t, group.ID))
}
