package membership

import "context"

// Limits are the capacity policy constants
type Limits struct {
	MaxGroupsPerUser   int
	MaxMembersPerGroup int
}

// Validator enforces capacity invariants and membership uniqueness. Checks
// run at invite time and again at accept time, because state may have
// changed while the invitation sat in someone's inbox.
type Validator struct {
	store  Store
	limits Limits
}

// NewValidator creates a validator over the membership store
func NewValidator(store Store, limits Limits) *Validator {
	return &Validator{store: store, limits: limits}
}

// CanUserJoinMoreGroups fails when the user is at their active-group cap
func (v *Validator) CanUserJoinMoreGroups(ctx context.Context, userID int64) error {
	count, err := v.store.CountActiveByUser(ctx, userID)
	if err != nil {
		return err
	}
	if count >= v.limits.MaxGroupsPerUser {
		return ErrGroupLimitReached
	}
	return nil
}

// CanGroupAcceptMoreMembers fails when the group is at its member cap
func (v *Validator) CanGroupAcceptMoreMembers(ctx context.Context, groupID int64) error {
	count, err := v.store.CountActiveByGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if count >= v.limits.MaxMembersPerGroup {
		return ErrGroupFull
	}
	return nil
}

// CanUserJoinGroup composes the uniqueness check with both capacity checks
func (v *Validator) CanUserJoinGroup(ctx context.Context, userID, groupID int64) error {
	current, err := v.store.GetCurrent(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if current != nil && current.Status == StatusActive {
		return ErrAlreadyMember
	}

	if err := v.CanUserJoinMoreGroups(ctx, userID); err != nil {
		return err
	}

	return v.CanGroupAcceptMoreMembers(ctx, groupID)
}
