package membership

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanUserJoinMoreGroups(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	v := NewValidator(store, Limits{MaxGroupsPerUser: 2, MaxMembersPerGroup: 50})

	require.NoError(t, v.CanUserJoinMoreGroups(ctx, 1))

	store.Create(ctx, 10, 1, RoleMember, StatusActive)
	require.NoError(t, v.CanUserJoinMoreGroups(ctx, 1))

	store.Create(ctx, 11, 1, RoleMember, StatusActive)
	assert.ErrorIs(t, v.CanUserJoinMoreGroups(ctx, 1), ErrGroupLimitReached)
}

func TestNonActiveMembershipsDoNotCount(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	v := NewValidator(store, Limits{MaxGroupsPerUser: 1, MaxMembersPerGroup: 1})

	store.Create(ctx, 10, 1, RoleMember, StatusLeft)
	store.Create(ctx, 11, 1, RoleMember, StatusInvited)
	store.Create(ctx, 12, 1, RoleMember, StatusPendingApproval)

	assert.NoError(t, v.CanUserJoinMoreGroups(ctx, 1))
	assert.NoError(t, v.CanGroupAcceptMoreMembers(ctx, 10))
}

func TestCanGroupAcceptMoreMembers(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	v := NewValidator(store, Limits{MaxGroupsPerUser: 50, MaxMembersPerGroup: 2})

	store.Create(ctx, 10, 1, RoleOwner, StatusActive)
	require.NoError(t, v.CanGroupAcceptMoreMembers(ctx, 10))

	store.Create(ctx, 10, 2, RoleMember, StatusActive)
	assert.ErrorIs(t, v.CanGroupAcceptMoreMembers(ctx, 10), ErrGroupFull)
}

func TestCanUserJoinGroup(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	v := NewValidator(store, Limits{MaxGroupsPerUser: 50, MaxMembersPerGroup: 50})

	require.NoError(t, v.CanUserJoinGroup(ctx, 1, 10))

	store.Create(ctx, 10, 1, RoleMember, StatusActive)
	assert.ErrorIs(t, v.CanUserJoinGroup(ctx, 1, 10), ErrAlreadyMember)

	// a terminal incarnation does not block rejoining
	store.Create(ctx, 10, 2, RoleMember, StatusLeft)
	assert.NoError(t, v.CanUserJoinGroup(ctx, 2, 10))
}
