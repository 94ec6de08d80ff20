package invitation

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Token correlates an email invitation with a pending membership. The
// membership row is the source of truth for role and status; the token is a
// transient index that lets the invited user land on their invitation from
// an email link.
type Token struct {
	Value       string    `json:"value"`
	GroupID     int64     `json:"group_id"`
	GroupName   string    `json:"group_name"`
	InviterID   int64     `json:"inviter_id"`
	InviterName string    `json:"inviter_name"`
	UserID      int64     `json:"user_id"`
	Email       string    `json:"email"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewToken mints an opaque token for an invitation with the given lifetime
func NewToken(groupID int64, groupName string, inviterID int64, inviterName string, userID int64, email, status string, ttl time.Duration) *Token {
	now := time.Now().UTC()

	return &Token{
		Value:       newValue(),
		GroupID:     groupID,
		GroupName:   groupName,
		InviterID:   inviterID,
		InviterName: inviterName,
		UserID:      userID,
		Email:       email,
		Status:      status,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

// Expired reports whether the token's lifetime has elapsed
func (t *Token) Expired() bool {
	return time.Now().UTC().After(t.ExpiresAt)
}

func newValue() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
