package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/alhamdi/divvy/internal/notification"
	"github.com/alhamdi/divvy/internal/user"
)

// Succession handles the two ways ownership moves: an explicit transfer by
// the current owner, and forced succession when an account is deactivated.
// The deactivation path also retires the user's plain memberships, so it
// implements the user feature's DeactivationHook.
type Succession struct {
	store    Store
	groups   GroupDirectory
	users    UserDirectory
	notifier notification.Notifier
	log      zerolog.Logger
}

// NewSuccession creates the ownership succession handler
func NewSuccession(store Store, groups GroupDirectory, users UserDirectory, notifier notification.Notifier, log zerolog.Logger) *Succession {
	return &Succession{
		store:    store,
		groups:   groups,
		users:    users,
		notifier: notifier,
		log:      log,
	}
}

// TransferOwnership hands the group to another active member. The old owner
// becomes MEMBER and the new owner takes OWNER in a single transaction, so
// the group never observes zero or two owners.
func (s *Succession) TransferOwnership(ctx context.Context, groupID, ownerID, newOwnerUserID int64) error {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}

	owner, err := s.store.GetCurrent(ctx, groupID, ownerID)
	if err != nil {
		return err
	}
	if owner == nil || owner.Status != StatusActive {
		return ErrNotActiveMember
	}
	if err := CanTransferOwnership(owner.Role, ownerID, newOwnerUserID); err != nil {
		return err
	}

	target, err := s.store.GetCurrent(ctx, groupID, newOwnerUserID)
	if err != nil {
		return err
	}
	if target == nil || target.Status != StatusActive {
		return ErrNotActiveMember
	}

	account, err := s.users.GetByID(ctx, newOwnerUserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return ErrUserInactive
		}
		return err
	}
	if !account.IsActive {
		return ErrUserInactive
	}

	if err := s.store.TransferOwnership(ctx, groupID, owner.ID, target.ID); err != nil {
		return err
	}

	active, err := s.store.ListByGroupAndStatus(ctx, groupID, StatusActive)
	if err != nil {
		s.log.Warn().Err(err).Int64("group_id", groupID).Msg("member list failed after transfer")
		active = nil
	}

	events := []notification.Event{{
		Kind:       notification.KindRoleUpdatedIndividual,
		GroupID:    groupID,
		GroupName:  g.Name,
		ActorID:    ownerID,
		ActorName:  owner.Username,
		TargetID:   newOwnerUserID,
		Role:       string(RoleOwner),
		Recipients: []int64{newOwnerUserID},
	}}

	broadcast := recipientIDs(active, newOwnerUserID)
	if len(broadcast) > 0 {
		events = append(events, notification.Event{
			Kind:       notification.KindRoleUpdatedGroup,
			GroupID:    groupID,
			GroupName:  g.Name,
			ActorID:    ownerID,
			TargetID:   newOwnerUserID,
			TargetName: target.Username,
			Role:       string(RoleOwner),
			Recipients: broadcast,
		})
	}

	s.notifier.Notify(ctx, events...)

	return nil
}

// HandleAccountDeactivation retires every active membership of the user and
// fills the leadership holes it leaves. Groups where the user was OWNER are
// settled first, then groups where they were the last ADMIN, then the rest.
// A failure in one group is logged and does not stop the others.
func (s *Succession) HandleAccountDeactivation(ctx context.Context, userID int64) error {
	var errs []error

	owned, err := s.store.ListActiveByUserAndRole(ctx, userID, RoleOwner)
	if err != nil {
		return fmt.Errorf("failed to list owned groups: %w", err)
	}
	for _, m := range owned {
		if err := s.succeedOwner(ctx, m); err != nil {
			s.log.Error().Err(err).Int64("group_id", m.GroupID).Int64("user_id", userID).Msg("owner succession failed")
			errs = append(errs, err)
		}
	}

	admined, err := s.store.ListActiveByUserAndRole(ctx, userID, RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to list administered groups: %w", err)
	}
	for _, m := range admined {
		if err := s.succeedAdmin(ctx, m); err != nil {
			s.log.Error().Err(err).Int64("group_id", m.GroupID).Int64("user_id", userID).Msg("admin succession failed")
			errs = append(errs, err)
		}
	}

	rest, err := s.store.ListActiveByUserAndRole(ctx, userID, RoleMember)
	if err != nil {
		return fmt.Errorf("failed to list memberships: %w", err)
	}
	for _, m := range rest {
		if err := s.retireMember(ctx, m); err != nil {
			s.log.Error().Err(err).Int64("group_id", m.GroupID).Int64("user_id", userID).Msg("membership retirement failed")
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// succeedOwner retires a deactivated owner's membership and promotes the
// first active admin to owner, falling back to the first active member. A
// group with nobody left is deactivated.
func (s *Succession) succeedOwner(ctx context.Context, m *Membership) error {
	if _, err := s.store.UpdateStatus(ctx, m.ID, StatusActive, StatusLeft); err != nil {
		return fmt.Errorf("failed to retire owner membership: %w", err)
	}

	g, err := s.groups.GetByID(ctx, m.GroupID)
	if err != nil {
		return err
	}
	if !g.IsActive {
		return nil
	}

	heir, err := s.firstActive(ctx, m.GroupID, RoleAdmin, RoleMember)
	if err != nil {
		return err
	}
	if heir == nil {
		return s.groups.Deactivate(ctx, m.GroupID)
	}

	if _, err := s.store.UpdateRole(ctx, heir.ID, RoleOwner); err != nil {
		return fmt.Errorf("failed to promote successor: %w", err)
	}

	s.notifier.Notify(ctx, notification.Event{
		Kind:       notification.KindSuccessionPromotion,
		GroupID:    m.GroupID,
		GroupName:  g.Name,
		TargetID:   heir.UserID,
		TargetName: heir.Username,
		Role:       string(RoleOwner),
		Recipients: []int64{heir.UserID},
	})

	return nil
}

// succeedAdmin retires a deactivated admin's membership. If the group still
// has leadership (an owner or another admin) nothing more happens; otherwise
// the first active member is promoted to admin, and an empty group is
// deactivated.
func (s *Succession) succeedAdmin(ctx context.Context, m *Membership) error {
	if _, err := s.store.UpdateStatus(ctx, m.ID, StatusActive, StatusLeft); err != nil {
		return fmt.Errorf("failed to retire admin membership: %w", err)
	}

	g, err := s.groups.GetByID(ctx, m.GroupID)
	if err != nil {
		return err
	}
	if !g.IsActive {
		return nil
	}

	leaders, err := s.firstActive(ctx, m.GroupID, RoleOwner, RoleAdmin)
	if err != nil {
		return err
	}
	if leaders != nil {
		return nil
	}

	heir, err := s.firstActive(ctx, m.GroupID, RoleMember)
	if err != nil {
		return err
	}
	if heir == nil {
		return s.groups.Deactivate(ctx, m.GroupID)
	}

	if _, err := s.store.UpdateRole(ctx, heir.ID, RoleAdmin); err != nil {
		return fmt.Errorf("failed to promote successor: %w", err)
	}

	s.notifier.Notify(ctx, notification.Event{
		Kind:       notification.KindSuccessionPromotion,
		GroupID:    m.GroupID,
		GroupName:  g.Name,
		TargetID:   heir.UserID,
		TargetName: heir.Username,
		Role:       string(RoleAdmin),
		Recipients: []int64{heir.UserID},
	})

	return nil
}

// retireMember retires a plain membership and deactivates the group if it
// became empty
func (s *Succession) retireMember(ctx context.Context, m *Membership) error {
	if _, err := s.store.UpdateStatus(ctx, m.ID, StatusActive, StatusLeft); err != nil {
		return fmt.Errorf("failed to retire membership: %w", err)
	}

	count, err := s.store.CountActiveByGroup(ctx, m.GroupID)
	if err != nil {
		return err
	}
	if count == 0 {
		return s.groups.Deactivate(ctx, m.GroupID)
	}

	return nil
}

// firstActive returns the first active member holding any of the roles, in
// role order, or nil when none exists
func (s *Succession) firstActive(ctx context.Context, groupID int64, roles ...Role) (*Membership, error) {
	for _, role := range roles {
		members, err := s.store.FindActiveByRole(ctx, groupID, role)
		if err != nil {
			return nil, err
		}
		if len(members) > 0 {
			return members[0], nil
		}
	}

	return nil, nil
}
