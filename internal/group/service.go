package group

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrGroupNotFound = errors.New("group not found")
	ErrGroupInactive = errors.New("group is deactivated")
	ErrNotGroupOwner = errors.New("only the group owner may do this")
)

// MemberDirectory is the slice of the membership service the group feature
// needs: seeding the creator's membership and checking ownership.
type MemberDirectory interface {
	BootstrapOwner(ctx context.Context, groupID, userID int64) error
	IsActiveOwner(ctx context.Context, groupID, userID int64) (bool, error)
}

// Service handles group business logic
type Service struct {
	repo    *Repository
	members MemberDirectory
}

// NewService creates a new group service
func NewService(repo *Repository, members MemberDirectory) *Service {
	return &Service{repo: repo, members: members}
}

// Create creates a new group with the creator as its owner
func (s *Service) Create(ctx context.Context, creatorID int64, req *CreateGroupRequest) (*Group, error) {
	group, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.members.BootstrapOwner(ctx, group.ID, creatorID); err != nil {
		// A group without an owner violates the membership invariants, so
		// undo the creation rather than leave it dangling.
		_ = s.repo.SetActive(ctx, group.ID, false)
		return nil, err
	}

	return group, nil
}

// GetByID retrieves a group by its ID
func (s *Service) GetByID(ctx context.Context, id int64) (*Group, error) {
	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	return group, nil
}

// ListByUserID retrieves the active groups a user belongs to
func (s *Service) ListByUserID(ctx context.Context, userID int64, page, perPage int) ([]*Group, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListByUserID(ctx, userID, perPage, offset)
}

// Update modifies an existing group
func (s *Service) Update(ctx context.Context, id int64, req *UpdateGroupRequest) (*Group, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrGroupNotFound
	}

	return s.repo.Update(ctx, id, req)
}

// DeactivateByOwner soft-deletes a group on the owner's request
func (s *Service) DeactivateByOwner(ctx context.Context, id, actorID int64) error {
	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if group == nil {
		return ErrGroupNotFound
	}
	if !group.IsActive {
		return ErrGroupInactive
	}

	isOwner, err := s.members.IsActiveOwner(ctx, id, actorID)
	if err != nil {
		return err
	}
	if !isOwner {
		return ErrNotGroupOwner
	}

	return s.repo.SetActive(ctx, id, false)
}

// Deactivate soft-deletes a group without an acting user. Used by role
// succession when no member is left to take over.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, false)
}
