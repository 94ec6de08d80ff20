package group

import "time"

// Group represents a shared-expense group. A group stays active as long as
// it has at least one active member; it is soft-deleted, never removed.
type Group struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
