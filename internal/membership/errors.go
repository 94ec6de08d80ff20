package membership

import (
	"errors"
	"fmt"
)

// Common errors. Sentinels are grouped by the caller fault they represent:
// conflicts (already in an incompatible state), not-found, validation.
var (
	ErrMembershipNotFound = errors.New("membership not found")
	ErrNotActiveMember    = errors.New("not an active member of this group")
	ErrNoPendingRequest   = errors.New("no pending request found")
	ErrTokenInvalid       = errors.New("invitation link is invalid or has expired")

	ErrAlreadyMember  = errors.New("user is already a member of this group")
	ErrAlreadyInvited = errors.New("user has already been invited to this group")
	ErrAlreadyPending = errors.New("user already has a pending join request for this group")
	ErrRoleUnchanged  = errors.New("member already has this role")

	ErrInvalidRole     = errors.New("invalid role")
	ErrSelfRemoval     = errors.New("leave the group instead of removing yourself")
	ErrOwnerCannotExit = errors.New("owner must transfer ownership or delete the group before leaving")
	ErrUserNotFound    = errors.New("no account exists for this email address")
	ErrUserInactive    = errors.New("user account is deactivated")

	ErrGroupLimitReached = errors.New("user has reached the maximum number of active groups")
	ErrGroupFull         = errors.New("group has reached the maximum number of members")
	ErrInviteRateLimited = errors.New("too many invitations sent, try again later")
)

// PermissionError is a role-hierarchy rule failure. The reason is written
// for the end user and is safe to surface.
type PermissionError struct {
	Reason string
}

func (e *PermissionError) Error() string {
	return e.Reason
}

func permissionDenied(format string, args ...any) error {
	return &PermissionError{Reason: fmt.Sprintf(format, args...)}
}

// IsPermissionDenied reports whether err is a permission failure
func IsPermissionDenied(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// InvariantError marks a state that correct upstream checks should have made
// unreachable. It is logged loudly and the operation aborts without writes.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "membership invariant violated: " + e.Msg
}

// IsInvariantViolation reports whether err is an invariant failure
func IsInvariantViolation(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
