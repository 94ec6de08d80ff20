package user

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Common errors
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailAlreadyInUse   = errors.New("email already in use")
	ErrUserAlreadyInactive = errors.New("user account is already deactivated")
)

// DeactivationHook is told when an account goes inactive so group roles can
// be reassigned. Implemented by the membership succession controller.
type DeactivationHook interface {
	HandleAccountDeactivation(ctx context.Context, userID int64) error
}

// Service handles user business logic
type Service struct {
	repo *Repository
	hook DeactivationHook
	log  zerolog.Logger
}

// NewService creates a new user service with repository dependency injected
func NewService(repo *Repository, hook DeactivationHook, log zerolog.Logger) *Service {
	return &Service{repo: repo, hook: hook, log: log}
}

// Create creates a new user
func (s *Service) Create(ctx context.Context, req *CreateUserRequest) (*User, error) {
	existing, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyInUse
	}

	return s.repo.Create(ctx, req)
}

// GetByID retrieves a user by their ID
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetByEmail retrieves a user by email, or nil when no account exists
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, email)
}

// List retrieves all users with pagination
func (s *Service) List(ctx context.Context, page, perPage int) ([]*User, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.List(ctx, perPage, offset)
}

// Update modifies an existing user
func (s *Service) Update(ctx context.Context, id int64, req *UpdateUserRequest) (*User, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrUserNotFound
	}

	return s.repo.Update(ctx, id, req)
}

// Deactivate marks the account inactive and hands its group roles over. The
// account flag is the authoritative write; succession runs after it and its
// failure is logged, not returned, so a deactivation never half-reverts.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrUserNotFound
	}
	if !existing.IsActive {
		return ErrUserAlreadyInactive
	}

	ok, err := s.repo.SetActive(ctx, id, false)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserAlreadyInactive
	}

	if s.hook != nil {
		if err := s.hook.HandleAccountDeactivation(ctx, id); err != nil {
			s.log.Error().Err(err).Int64("user_id", id).Msg("role succession after deactivation failed")
		}
	}

	return nil
}
