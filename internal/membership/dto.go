package membership

// InviteMemberRequest represents the request to invite a user by email
type InviteMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RedeemTokenRequest represents the request to redeem an invitation token
type RedeemTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// UpdateMemberRoleRequest represents the request to change a member's role
type UpdateMemberRoleRequest struct {
	Role Role `json:"role" validate:"required"`
}

// TransferOwnershipRequest represents the request to hand the group to
// another member
type TransferOwnershipRequest struct {
	NewOwnerID int64 `json:"new_owner_id" validate:"required"`
}

// MemberResponse represents a membership in API responses
type MemberResponse struct {
	ID       int64  `json:"id"`
	GroupID  int64  `json:"group_id"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role"`
	Status   Status `json:"status"`
	JoinedAt string `json:"joined_at"`
}

// RedeemResponse represents the outcome of redeeming an invitation token
type RedeemResponse struct {
	Outcome   RedeemOutcome `json:"outcome"`
	GroupID   int64         `json:"group_id"`
	GroupName string        `json:"group_name"`
	Status    Status        `json:"status"`
}

// ToResponse converts a Membership model to a MemberResponse DTO
func (m *Membership) ToResponse() *MemberResponse {
	return &MemberResponse{
		ID:       m.ID,
		GroupID:  m.GroupID,
		UserID:   m.UserID,
		Username: m.Username,
		Email:    m.Email,
		Role:     m.Role,
		Status:   m.Status,
		JoinedAt: m.JoinedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ToResponse converts a RedeemResult to a RedeemResponse DTO
func (r *RedeemResult) ToResponse() *RedeemResponse {
	return &RedeemResponse{
		Outcome:   r.Outcome,
		GroupID:   r.Membership.GroupID,
		GroupName: r.GroupName,
		Status:    r.Membership.Status,
	}
}
