package membership

// Permission engine: stateless decisions over the role hierarchy. Every
// deny carries a user-facing reason; callers surface it as a permission
// failure, never as an internal fault.

// reviewerRoles may invite members and review join requests
var reviewerRoles = map[Role]bool{
	RoleOwner: true,
	RoleAdmin: true,
}

// removalRules: actor role -> target roles the actor may remove. OWNER is
// absent as a target everywhere: ownership is never ended by removal.
var removalRules = map[Role]map[Role]bool{
	RoleOwner: {RoleAdmin: true, RoleMember: true},
	RoleAdmin: {RoleMember: true},
}

// CanInvite reports whether the actor may invite new members
func CanInvite(actor Role) error {
	if !reviewerRoles[actor] {
		return permissionDenied("only admins and the owner can invite members")
	}
	return nil
}

// CanReview reports whether the actor may view, accept, or reject join requests
func CanReview(actor Role) error {
	if !reviewerRoles[actor] {
		return permissionDenied("only admins and the owner can review join requests")
	}
	return nil
}

// CanRemove reports whether the actor may remove a member with the target role
func CanRemove(actor, target Role) error {
	if target == RoleOwner {
		return permissionDenied("the group owner cannot be removed")
	}
	if !removalRules[actor][target] {
		return permissionDenied("a %s cannot remove a %s", actor, target)
	}
	return nil
}

// CanRemoveLastAdmin guards against leaving a group leaderless: the sole
// admin may only go if an active owner exists or another admin remains.
func CanRemoveLastAdmin(hasOwner bool, adminCount int) error {
	if hasOwner || adminCount > 1 {
		return nil
	}
	return permissionDenied("cannot remove the only admin of a group with no owner")
}

// CanUpdateRole reports whether the actor may change a member's role from
// current to next. Ownership changes hands only through transfer.
func CanUpdateRole(actor, current, next Role) error {
	if actor != RoleOwner {
		return permissionDenied("only the owner can change member roles")
	}
	if current == RoleOwner || next == RoleOwner {
		return permissionDenied("ownership can only be changed by transferring it")
	}
	return nil
}

// CanTransferOwnership reports whether the actor may hand ownership to the target
func CanTransferOwnership(actor Role, actorUserID, targetUserID int64) error {
	if actor != RoleOwner {
		return permissionDenied("only the current owner can transfer ownership")
	}
	if actorUserID == targetUserID {
		return permissionDenied("cannot transfer ownership to yourself")
	}
	return nil
}
