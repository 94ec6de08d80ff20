package group

// CreateGroupRequest represents the request to create a new group
type CreateGroupRequest struct {
	Name      string  `json:"name" validate:"required,min=1,max=100"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// UpdateGroupRequest represents the request to update a group
type UpdateGroupRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// GroupResponse represents the response for a group
type GroupResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	IsActive  bool    `json:"is_active"`
	CreatedAt string  `json:"created_at"`
}

// ToResponse converts a Group model to a GroupResponse DTO
func (g *Group) ToResponse() *GroupResponse {
	return &GroupResponse{
		ID:        g.ID,
		Name:      g.Name,
		AvatarURL: g.AvatarURL,
		IsActive:  g.IsActive,
		CreatedAt: g.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
