package membership

import "time"

// Role is a member's role within a group. Roles form a total order:
// OWNER > ADMIN > MEMBER. Each active group has exactly one active OWNER.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Level returns the role's position in the hierarchy, higher is stronger
func (r Role) Level() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

// Valid reports whether the role is one of the known values
func (r Role) Valid() bool {
	return r.Level() > 0
}

// Status is the lifecycle state of a membership incarnation:
//
//	INVITED -> PENDING_APPROVAL -> ACTIVE -> LEFT
//	                            -> REJECTED
//
// REJECTED and LEFT are terminal; a user who left or was rejected can be
// invited again, which creates a fresh incarnation.
type Status string

const (
	StatusInvited         Status = "INVITED"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusActive          Status = "ACTIVE"
	StatusRejected        Status = "REJECTED"
	StatusLeft            Status = "LEFT"
)

// Terminal reports whether no further transition happens on this incarnation
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusLeft
}

// Membership is one (user, group) incarnation. Old incarnations are never
// deleted; the current one is the most recent row per (user, group).
type Membership struct {
	ID       int64     `json:"id"`
	GroupID  int64     `json:"group_id"`
	UserID   int64     `json:"user_id"`
	Role     Role      `json:"role"`
	Status   Status    `json:"status"`
	JoinedAt time.Time `json:"joined_at"`

	// Populated from JOIN
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}
