package membership

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alhamdi/divvy/internal/notification"
	"github.com/alhamdi/divvy/pkg/deeplink"
	"github.com/alhamdi/divvy/pkg/ratelimit"
)

func TestInviteRedeemAcceptFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.addUser(1, "owner", "owner@test.io")
	f.addUser(2, "alice", "alice@test.io")
	f.addGroup(10, "trip")
	f.seed(10, 1, RoleOwner, StatusActive)

	m, err := f.svc.SendInvitation(ctx, 10, 1, "alice@test.io")
	require.NoError(t, err)
	assert.Equal(t, StatusInvited, m.Status)
	assert.Equal(t, RoleMember, m.Role)

	token, err := f.tokens.GetByMember(ctx, 10, 2)
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "trip", token.GroupName)

	result, err := f.svc.RedeemInvitationToken(ctx, token.Value)
	require.NoError(t, err)
	assert.Equal(t, RedeemPending, result.Outcome)
	assert.Equal(t, StatusPendingApproval, result.Membership.Status)

	accepted, err := f.svc.AcceptRequest(ctx, 10, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, accepted.Status)
	assert.Equal(t, RoleMember, accepted.Role)

	// token is gone once the request is settled
	token, err = f.tokens.GetByMember(ctx, 10, 2)
	require.NoError(t, err)
	assert.Nil(t, token)

	kinds := f.events.kinds()
	assert.Contains(t, kinds, notification.KindInvitationSent)
	assert.Contains(t, kinds, notification.KindPendingApproval)
	assert.Contains(t, kinds, notification.KindJoinRequest)
	assert.Contains(t, kinds, notification.KindAccepted)
}

func TestInviteRequiresReviewerRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.addUser(1, "owner", "owner@test.io")
	f.addUser(2, "bob", "bob@test.io")
	f.addUser(3, "carol", "carol@test.io")
	f.addGroup(10, "trip")
	f.seed(10, 1, RoleOwner, StatusActive)
	f.seed(10, 2, RoleMember, StatusActive)

	_, err := f.svc.SendInvitation(ctx, 10, 2, "carol@test.io")
	require.Error(t, err)
	assert.True(t, IsPermissionDenied(err))

	// non-members cannot invite at all
	_, err = f.svc.SendInvitation(ctx, 10, 3, "carol@test.io")
	assert.ErrorIs(t, err, ErrNotActiveMember)
}

func TestInviteConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.addUser(1, "owner", "owner@test.io")
	f.addUser(2, "alice", "alice@test.io")
	f.addGroup(10, "trip")
	f.seed(10, 1, RoleOwner, StatusActive)

	_, err := f.svc.SendInvitation(ctx, 10, 1, "alice@test.io")
	require.NoError(t, err)

	_, err = f.svc.SendInvitation(ctx, 10, 1, "alice@test.io")
	assert.ErrorIs(t, err, ErrAlreadyInvited)

	_, err = f.svc.SendInvitation(ctx, 10, 1, "nobody@test.io")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.SendInvitation(ctx, 10, 1, "owner@test.io")
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestReinviteAfterRejection(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.addUser(1, "owner", "owner@test.io")
	f.addUser(2, "alice", "alice@test.io")
	f.addGroup(10, "trip")
	f.seed(10, 1, RoleOwner, StatusActive)

	first, err := f.svc.SendInvitation(ctx, 10, 1, "alice@test.io")
	require.NoError(t, err)

	token, err := f.tokens.GetByMember(ctx, 10, 2)
	require.NoError(t, err)
	_, err = f.svc.RedeemInvitationToken(ctx, token.Value)
	require.NoError(t, err)
	require.NoError(t, f.svc.RejectRequest(ctx, 10, 1, 2))

	// rejection is terminal for that incarnation; a fresh invite starts over
	second, err := f.svc.SendInvitation(ctx, 10, 1, "alice@test.io")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, StatusInvited, second.Status)
}

func TestRedeemIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.addUser(1, "owner", "owner@test.io")
	f.addUser(2, "alice", "alice@test.io")
	f.addGroup(10, "trip")
	f.seed(10, 1, RoleOwner, StatusActive)

	_, err := f.svc.SendInvitation(ctx, 10, 1, "alice@test.io")
	require.NoError(t, err)

	token, err := f.tokens.GetByMember(ctx, 10, 2)
	require.NoError(t, err)

	first, err := f.svc.RedeemInvitationToken(ctx, token.Value)
	require.NoError(t, err)
	assert.Equal(t, RedeemPending, first.Outcome)
	eventCount := len(f.events.kinds())

	second, err := f.svc.RedeemInvitationToken(ctx, token.Value)
	require.NoError(t, err)
	assert.Equal(t, RedeemAlreadyPending, second.Outcome)

	// landing on the link again does not duplicate notifications
	assert.Len(t, f.events.kinds(), eventCount)
}

func TestRedeemInvalidToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.svc.RedeemInvitationToken(ctx, "bogus")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAcceptCapacityRecheck(t *testing.T) {
	ctx := context.Background()
	f := newFixtureWithLimits(Limits{MaxGroupsPerUser: 20, MaxMembersPerGroup: 2})
	f.addUser(1, "owner", "owner@test.io")
	f.addUser(2, "alice", "alice@test.io")
	f.addUser(3, "bob", "bob@test.io")
	f.addGroup(10, "trip")
	f.seed(10, 1, RoleOwner, StatusActive)

	_, err := f.svc.SendInvitation(ctx, 10, 1, "alice@test.io")
	require.NoError(t, err)

	// the group fills up while the invitation sits unanswered
	f.seed(10, 3, RoleMember, StatusActive)

	token, err := f.tokens.GetByMember(ctx, 10, 2)
	require.NoError(t, err)
	_, err = f.svc.RedeemInvitationToken(ctx, token.Value)
	require.NoError(t, err)

	_, err = f.svc.AcceptRequest(ctx, 10, 1, 2)
	assert.ErrorIs(t, err, ErrGroupFull)
}

func TestAcceptRejectRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.addUser(1, "owner", "owner@test.io")
	f.addUser(2, "alice", "alice@test.io")
	f.addGroup(10, "trip")
	f.seed(10, 1, RoleOwner, StatusActive)
	f.seed(10, 2, RoleMember, StatusPendingApproval)

	_, err := f.svc.AcceptRequest(ctx, 10, 1, 2)
	require.NoError(t, err)

	// the loser of the race sees no pending request, not corrupted state
	err = f.svc.RejectRequest(ctx, 10, 1, 2)
	assert.ErrorIs(t, err, ErrNoPendingRequest)

	m, err := f.store.GetCurrent(ctx, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, m.Status)
}

func TestRemoveMemberRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.addUser(1, "owner", "owner@test.io")
	f.addUser(2, "admin", "admin@test.io")
	f.addUser(3, "bob", "bob@test.io")
	f.addUser(4, "carol", "carol@test.io")
	f.addGroup(10, "trip")
	f.seed(10, 1, RoleOwner, StatusActive)
	f.seed(10, 2, RoleAdmin, StatusActive)
	f.seed(10, 3, RoleMember, StatusActive)
	f.seed(10, 4, RoleAdmin, StatusActive)

	// nobody removes the owner
	err := f.svc.RemoveMember(ctx, 10, 2, 1)
	require.Error(t, err)
	assert.True(t, IsPermissionDenied(err))

	// admins do not remove admins
	err = f.svc.RemoveMember(ctx, 10, 2, 4)
	require.Error(t, err)
	assert.True(t, IsPermissionDenied(err))

	// removal is not the self-service exit path
	assert.ErrorIs(t, f.svc.RemoveMember(ctx, 10, 2, 2), ErrSelfRemoval)

	// admin removes member
	require.NoError(t, f.svc.RemoveMember(ctx, 10, 2, 3))
	m, err := f.store.GetCurrent(ctx, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, StatusLeft, m.Status)

	// owner removes admin
	require.NoError(t, f.svc.RemoveMember(ctx, 10, 1, 4))
}

func TestExitGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.addUser(1, "owner", "owner@test.io")
	f.addUser(2, "bob", "bob@test.io")
	f.addGroup(10, "trip")
	f.seed(10, 1, RoleOwner, StatusActive)
	f.seed(10, 2, RoleMember, StatusActive)

	assert.ErrorIs(t, f.svc.ExitGroup(ctx, 10, 1), ErrOwnerCannotExit)

	require.NoError(t, f.svc.ExitGroup(ctx, 10, 2))
	m, err := f.store.GetCurrent(ctx, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, StatusLeft, m.Status)
	assert.True(t, f.groups.byID[10].IsActive)
}

func TestExitLastMemberDeactivatesGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.addUser(2, "bob", "bob@test.io")
	f.addGroup(10, "trip")
	f.seed(10, 2, RoleMember, StatusActive)

	require.NoError(t, f.svc.ExitGroup(ctx, 10, 2))
	assert.False(t, f.groups.byID[10].IsActive)
}

func TestUpdateMemberRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.addUser(1, "owner", "owner@test.io")
	f.addUser(2, "admin", "admin@test.io")
	f.addUser(3, "bob", "bob@test.io")
	f.addGroup(10, "trip")
	f.seed(10, 1, RoleOwner, StatusActive)
	f.seed(10, 2, RoleAdmin, StatusActive)
	f.seed(10, 3, RoleMember, StatusActive)

	_, err := f.svc.UpdateMemberRole(ctx, 10, 1, 3, Role("SUPERUSER"))
	assert.ErrorIs(t, err, ErrInvalidRole)

	// a no-op change is invalid input, not a permission failure
	_, err = f.svc.UpdateMemberRole(ctx, 10, 1, 2, RoleAdmin)
	assert.ErrorIs(t, err, ErrRoleUnchanged)

	_, err = f.svc.UpdateMemberRole(ctx, 10, 2, 3, RoleAdmin)
	require.Error(t, err)
	assert.True(t, IsPermissionDenied(err))

	_, err = f.svc.UpdateMemberRole(ctx, 10, 1, 3, RoleOwner)
	require.Error(t, err)
	assert.True(t, IsPermissionDenied(err))

	updated, err := f.svc.UpdateMemberRole(ctx, 10, 1, 3, RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, updated.Role)

	kinds := f.events.kinds()
	assert.Contains(t, kinds, notification.KindRoleUpdatedIndividual)
	assert.Contains(t, kinds, notification.KindRoleUpdatedGroup)
}

func TestInviteCapacityLimits(t *testing.T) {
	ctx := context.Background()
	f := newFixtureWithLimits(Limits{MaxGroupsPerUser: 1, MaxMembersPerGroup: 50})
	f.addUser(1, "owner", "owner@test.io")
	f.addUser(2, "alice", "alice@test.io")
	f.addGroup(10, "trip")
	f.addGroup(11, "house")
	f.seed(10, 1, RoleOwner, StatusActive)
	f.seed(11, 1, RoleOwner, StatusActive)
	f.seed(11, 2, RoleMember, StatusActive)

	// alice is at her active-group cap
	_, err := f.svc.SendInvitation(ctx, 10, 1, "alice@test.io")
	assert.ErrorIs(t, err, ErrGroupLimitReached)
}

func TestInviteRateLimited(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.addUser(1, "owner", "owner@test.io")
	f.addUser(2, "alice", "alice@test.io")
	f.addUser(3, "bob", "bob@test.io")
	f.addGroup(10, "trip")
	f.seed(10, 1, RoleOwner, StatusActive)

	validator := NewValidator(f.store, Limits{MaxGroupsPerUser: 20, MaxMembersPerGroup: 50})
	svc := NewService(
		f.store, validator, f.users, f.groups, f.tokens, f.events,
		ratelimit.NewMemoryLimiter(1),
		deeplink.NewBuilder("https://app.test"),
		30*24*time.Hour,
		zerolog.Nop(),
	)

	_, err := svc.SendInvitation(ctx, 10, 1, "alice@test.io")
	require.NoError(t, err)

	_, err = svc.SendInvitation(ctx, 10, 1, "bob@test.io")
	assert.ErrorIs(t, err, ErrInviteRateLimited)
}

func TestBootstrapOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.addUser(1, "owner", "owner@test.io")
	f.addGroup(10, "trip")

	require.NoError(t, f.svc.BootstrapOwner(ctx, 10, 1))

	m, err := f.store.GetCurrent(ctx, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, RoleOwner, m.Role)
	assert.Equal(t, StatusActive, m.Status)

	isOwner, err := f.svc.IsActiveOwner(ctx, 10, 1)
	require.NoError(t, err)
	assert.True(t, isOwner)

	isOwner, err = f.svc.IsActiveOwner(ctx, 10, 2)
	require.NoError(t, err)
	assert.False(t, isOwner)
}

func TestListPendingRequests(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.addUser(1, "owner", "owner@test.io")
	f.addUser(2, "alice", "alice@test.io")
	f.addUser(3, "bob", "bob@test.io")
	f.addGroup(10, "trip")
	f.seed(10, 1, RoleOwner, StatusActive)
	f.seed(10, 2, RoleMember, StatusPendingApproval)
	f.seed(10, 3, RoleMember, StatusActive)

	pending, err := f.svc.ListPendingRequests(ctx, 10, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(2), pending[0].UserID)

	// plain members do not see the review queue
	_, err = f.svc.ListPendingRequests(ctx, 10, 3)
	require.Error(t, err)
	assert.True(t, IsPermissionDenied(err))
}
