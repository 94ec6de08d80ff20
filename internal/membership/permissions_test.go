package membership

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleLevel(t *testing.T) {
	assert.Greater(t, RoleOwner.Level(), RoleAdmin.Level())
	assert.Greater(t, RoleAdmin.Level(), RoleMember.Level())
}

func TestCanInvite(t *testing.T) {
	assert.NoError(t, CanInvite(RoleOwner))
	assert.NoError(t, CanInvite(RoleAdmin))

	err := CanInvite(RoleMember)
	require.Error(t, err)
	assert.True(t, IsPermissionDenied(err))
}

func TestCanReview(t *testing.T) {
	assert.NoError(t, CanReview(RoleOwner))
	assert.NoError(t, CanReview(RoleAdmin))
	assert.True(t, IsPermissionDenied(CanReview(RoleMember)))
}

func TestCanRemove(t *testing.T) {
	tests := []struct {
		name    string
		actor   Role
		target  Role
		allowed bool
	}{
		{"owner removes admin", RoleOwner, RoleAdmin, true},
		{"owner removes member", RoleOwner, RoleMember, true},
		{"owner removes owner", RoleOwner, RoleOwner, false},
		{"admin removes member", RoleAdmin, RoleMember, true},
		{"admin removes admin", RoleAdmin, RoleAdmin, false},
		{"admin removes owner", RoleAdmin, RoleOwner, false},
		{"member removes member", RoleMember, RoleMember, false},
		{"member removes owner", RoleMember, RoleOwner, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanRemove(tt.actor, tt.target)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, IsPermissionDenied(err))
			}
		})
	}
}

func TestCanRemoveLastAdmin(t *testing.T) {
	assert.NoError(t, CanRemoveLastAdmin(true, 1))
	assert.NoError(t, CanRemoveLastAdmin(false, 2))

	err := CanRemoveLastAdmin(false, 1)
	require.Error(t, err)
	assert.True(t, IsPermissionDenied(err))
}

func TestCanUpdateRole(t *testing.T) {
	assert.NoError(t, CanUpdateRole(RoleOwner, RoleMember, RoleAdmin))
	assert.NoError(t, CanUpdateRole(RoleOwner, RoleAdmin, RoleMember))

	// only the owner changes roles
	assert.True(t, IsPermissionDenied(CanUpdateRole(RoleAdmin, RoleMember, RoleAdmin)))
	assert.True(t, IsPermissionDenied(CanUpdateRole(RoleMember, RoleMember, RoleAdmin)))

	// ownership never moves through role updates
	assert.True(t, IsPermissionDenied(CanUpdateRole(RoleOwner, RoleMember, RoleOwner)))
	assert.True(t, IsPermissionDenied(CanUpdateRole(RoleOwner, RoleOwner, RoleAdmin)))
}

func TestCanTransferOwnership(t *testing.T) {
	assert.NoError(t, CanTransferOwnership(RoleOwner, 1, 2))

	assert.True(t, IsPermissionDenied(CanTransferOwnership(RoleAdmin, 1, 2)))
	assert.True(t, IsPermissionDenied(CanTransferOwnership(RoleMember, 1, 2)))
	assert.True(t, IsPermissionDenied(CanTransferOwnership(RoleOwner, 1, 1)))
}
