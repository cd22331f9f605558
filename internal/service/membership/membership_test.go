package membership_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/islamsaadi/SOSync/internal/domain/safety"
	"github.com/islamsaadi/SOSync/internal/repository/records"
	"github.com/islamsaadi/SOSync/internal/service/membership"
)

func newService(t *testing.T) (*membership.Service, *records.RedisStore) {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	store, err := records.NewRedisStore(context.Background(), records.Options{Addr: mini.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	now := func() time.Time {
		return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	}

	return membership.New(store, now), store
}

func createGroup(t *testing.T, svc *membership.Service, creatorID string) *safety.Group {
	t.Helper()

	group, err := svc.CreateGroup(context.Background(), membership.CreateGroupRequest{
		Name:                 "family",
		CreatorID:            creatorID,
		CheckIntervalMinutes: 30,
		SOSIntervalMinutes:   5,
	})
	require.NoError(t, err)

	return group
}

func TestCreateGroup(t *testing.T) {
	t.Parallel()

	svc, store := newService(t)
	group := createGroup(t, svc, "alice")

	require.NotEmpty(t, group.ID)
	require.Equal(t, "alice", group.AdminID)
	require.Equal(t, []string{"alice"}, group.Members)
	require.Empty(t, group.PendingMembers)
	require.Equal(t, safety.GroupStatusNormal, group.CurrentStatus)

	stored, err := store.GetGroup(context.Background(), group.ID)
	require.NoError(t, err)
	require.Equal(t, group.Members, stored.Members)
}

func TestCreateGroup_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateGroup(ctx, membership.CreateGroupRequest{
		CreatorID:            "alice",
		CheckIntervalMinutes: 30,
		SOSIntervalMinutes:   5,
	})
	require.ErrorIs(t, err, membership.ErrInvalidGroupName)

	_, err = svc.CreateGroup(ctx, membership.CreateGroupRequest{
		Name:                 "family",
		CreatorID:            "alice",
		CheckIntervalMinutes: 0,
		SOSIntervalMinutes:   5,
	})
	require.ErrorIs(t, err, membership.ErrInvalidInterval)

	_, err = svc.CreateGroup(ctx, membership.CreateGroupRequest{
		Name:                 "family",
		CreatorID:            "alice",
		CheckIntervalMinutes: 30,
		SOSIntervalMinutes:   61,
	})
	require.ErrorIs(t, err, membership.ErrInvalidInterval)
}

func TestInviteAndAccept(t *testing.T) {
	t.Parallel()

	svc, store := newService(t)
	ctx := context.Background()
	group := createGroup(t, svc, "alice")

	require.NoError(t, svc.Invite(ctx, group.ID, "alice", "bob"))

	stored, err := store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	require.True(t, stored.HasPendingMember("bob"))
	require.False(t, stored.HasMember("bob"))

	require.NoError(t, svc.AcceptInvite(ctx, group.ID, "bob"))

	stored, err = store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	require.True(t, stored.HasMember("bob"))
	require.False(t, stored.HasPendingMember("bob"))
}

func TestInvite_OnlyAdmin(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	ctx := context.Background()
	group := createGroup(t, svc, "alice")

	require.NoError(t, svc.Invite(ctx, group.ID, "alice", "bob"))
	require.NoError(t, svc.AcceptInvite(ctx, group.ID, "bob"))

	err := svc.Invite(ctx, group.ID, "bob", "carol")
	require.ErrorIs(t, err, safety.ErrPermissionDenied)
}

func TestInvite_Duplicates(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	ctx := context.Background()
	group := createGroup(t, svc, "alice")

	require.NoError(t, svc.Invite(ctx, group.ID, "alice", "bob"))

	err := svc.Invite(ctx, group.ID, "alice", "bob")
	require.ErrorIs(t, err, membership.ErrAlreadyInvited)

	require.NoError(t, svc.AcceptInvite(ctx, group.ID, "bob"))

	err = svc.Invite(ctx, group.ID, "alice", "bob")
	require.ErrorIs(t, err, membership.ErrAlreadyMember)
}

func TestAcceptInvite_NotInvited(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	group := createGroup(t, svc, "alice")

	err := svc.AcceptInvite(context.Background(), group.ID, "mallory")
	require.ErrorIs(t, err, membership.ErrNotInvited)
}

func TestRemoveMember(t *testing.T) {
	t.Parallel()

	svc, store := newService(t)
	ctx := context.Background()
	group := createGroup(t, svc, "alice")

	require.NoError(t, svc.Invite(ctx, group.ID, "alice", "bob"))
	require.NoError(t, svc.AcceptInvite(ctx, group.ID, "bob"))

	err := svc.RemoveMember(ctx, group.ID, "bob", "alice")
	require.ErrorIs(t, err, safety.ErrPermissionDenied)

	err = svc.RemoveMember(ctx, group.ID, "alice", "alice")
	require.ErrorIs(t, err, membership.ErrCannotRemoveAdmin)

	require.NoError(t, svc.RemoveMember(ctx, group.ID, "alice", "bob"))

	stored, err := store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	require.False(t, stored.HasMember("bob"))
}

func TestDeleteGroup(t *testing.T) {
	t.Parallel()

	svc, store := newService(t)
	ctx := context.Background()
	group := createGroup(t, svc, "alice")

	err := svc.DeleteGroup(ctx, group.ID, "bob")
	require.ErrorIs(t, err, safety.ErrPermissionDenied)

	require.NoError(t, svc.DeleteGroup(ctx, group.ID, "alice"))

	_, err = store.GetGroup(ctx, group.ID)
	require.ErrorIs(t, err, records.ErrNotFound)
}
