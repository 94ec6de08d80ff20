package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/alhamdi/divvy/internal/group"
	"github.com/alhamdi/divvy/internal/invitation"
	"github.com/alhamdi/divvy/internal/notification"
	"github.com/alhamdi/divvy/internal/user"
	"github.com/alhamdi/divvy/pkg/deeplink"
	"github.com/alhamdi/divvy/pkg/ratelimit"
)

// UserDirectory is the slice of the user service the membership core needs
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

// GroupDirectory is the slice of the group service the membership core needs
type GroupDirectory interface {
	GetByID(ctx context.Context, id int64) (*group.Group, error)
	Deactivate(ctx context.Context, id int64) error
}

// Service is the membership lifecycle controller. It orchestrates state
// transitions, enforces permission and capacity rules, and keeps the
// invitation token store in step with the membership record. Every
// operation commits its authoritative write first; notifications and token
// writes are side effects that degrade without failing the operation.
type Service struct {
	store     Store
	validator *Validator
	users     UserDirectory
	groups    GroupDirectory
	tokens    invitation.Store
	notifier  notification.Notifier
	limiter   ratelimit.Limiter
	links     *deeplink.Builder
	inviteTTL time.Duration
	log       zerolog.Logger
}

// NewService creates the membership lifecycle controller
func NewService(
	store Store,
	validator *Validator,
	users UserDirectory,
	groups GroupDirectory,
	tokens invitation.Store,
	notifier notification.Notifier,
	limiter ratelimit.Limiter,
	links *deeplink.Builder,
	inviteTTL time.Duration,
	log zerolog.Logger,
) *Service {
	return &Service{
		store:     store,
		validator: validator,
		users:     users,
		groups:    groups,
		tokens:    tokens,
		notifier:  notifier,
		limiter:   limiter,
		links:     links,
		inviteTTL: inviteTTL,
		log:       log,
	}
}

// RedeemOutcome distinguishes the idempotent results of redeeming a token
type RedeemOutcome string

const (
	RedeemPending        RedeemOutcome = "PENDING"
	RedeemAlreadyPending RedeemOutcome = "ALREADY_PENDING"
	RedeemAlreadyMember  RedeemOutcome = "ALREADY_MEMBER"
)

// RedeemResult is the outcome of landing on an invitation link
type RedeemResult struct {
	Outcome    RedeemOutcome
	Membership *Membership
	GroupName  string
}

// activeGroup loads a group and requires it to be active
func (s *Service) activeGroup(ctx context.Context, groupID int64) (*group.Group, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !g.IsActive {
		return nil, group.ErrGroupInactive
	}
	return g, nil
}

// requireActiveMember loads the current incarnation and requires it ACTIVE
func (s *Service) requireActiveMember(ctx context.Context, groupID, userID int64) (*Membership, error) {
	m, err := s.store.GetCurrent(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil || m.Status != StatusActive {
		return nil, ErrNotActiveMember
	}
	return m, nil
}

// SendInvitation invites the account behind email into the group. The
// membership row is the authoritative signal; the token is a convenience
// channel, so a token-store failure degrades to "invitation recorded, link
// delivery pending" instead of failing the operation.
func (s *Service) SendInvitation(ctx context.Context, groupID, inviterID int64, email string) (*Membership, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrUserNotFound)
	}

	g, err := s.activeGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	inviter, err := s.requireActiveMember(ctx, groupID, inviterID)
	if err != nil {
		return nil, err
	}
	if err := CanInvite(inviter.Role); err != nil {
		return nil, err
	}

	if !s.limiter.Allow(ctx, fmt.Sprintf("invite:%d", inviterID)) {
		return nil, ErrInviteRateLimited
	}

	target, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrUserNotFound
	}
	if !target.IsActive {
		return nil, ErrUserInactive
	}

	current, err := s.store.GetCurrent(ctx, groupID, target.ID)
	if err != nil {
		return nil, err
	}
	if current != nil && !current.Status.Terminal() {
		switch current.Status {
		case StatusActive:
			return nil, ErrAlreadyMember
		case StatusInvited:
			return nil, ErrAlreadyInvited
		default:
			return nil, ErrAlreadyPending
		}
	}

	if err := s.validator.CanUserJoinMoreGroups(ctx, target.ID); err != nil {
		return nil, err
	}
	if err := s.validator.CanGroupAcceptMoreMembers(ctx, groupID); err != nil {
		return nil, err
	}

	m, err := s.store.Create(ctx, groupID, target.ID, RoleMember, StatusInvited)
	if err != nil {
		return nil, err
	}

	var link string
	token := invitation.NewToken(groupID, g.Name, inviterID, inviter.Username, target.ID, email, string(StatusInvited), s.inviteTTL)
	if err := s.tokens.Save(ctx, token); err != nil {
		s.log.Warn().Err(err).
			Int64("group_id", groupID).
			Int64("user_id", target.ID).
			Msg("invitation token save failed, link delivery pending")
	} else {
		link = s.links.InviteLink(token.Value)
	}

	s.notifier.Notify(ctx, notification.Event{
		Kind:       notification.KindInvitationSent,
		GroupID:    groupID,
		GroupName:  g.Name,
		ActorID:    inviterID,
		ActorName:  inviter.Username,
		TargetID:   target.ID,
		TargetName: target.Username,
		Recipients: []int64{target.ID},
		Email:      email,
		Link:       link,
	})

	return m, nil
}

// RedeemInvitationToken is the invited user landing on their link. Moving
// INVITED to PENDING_APPROVAL happens once; landing again is answered
// idempotently without a second transition or duplicate notifications. A
// token whose membership is in any other state never forces a transition.
func (s *Service) RedeemInvitationToken(ctx context.Context, value string) (*RedeemResult, error) {
	token, err := s.tokens.Get(ctx, value)
	if err != nil {
		// Fail closed: an unreadable token store means no redemption.
		s.log.Warn().Err(err).Msg("token store read failed during redeem")
		return nil, ErrTokenInvalid
	}
	if token == nil || token.Expired() {
		return nil, ErrTokenInvalid
	}

	m, err := s.store.GetCurrent(ctx, token.GroupID, token.UserID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrTokenInvalid
	}

	switch m.Status {
	case StatusPendingApproval:
		return &RedeemResult{Outcome: RedeemAlreadyPending, Membership: m, GroupName: token.GroupName}, nil
	case StatusActive:
		return &RedeemResult{Outcome: RedeemAlreadyMember, Membership: m, GroupName: token.GroupName}, nil
	case StatusInvited:
		// fall through to the transition
	default:
		return nil, ErrTokenInvalid
	}

	updated, err := s.store.UpdateStatus(ctx, m.ID, StatusInvited, StatusPendingApproval)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// Lost a race with a concurrent redeem; answer idempotently.
		again, err := s.store.GetCurrent(ctx, token.GroupID, token.UserID)
		if err != nil {
			return nil, err
		}
		if again != nil && again.Status == StatusPendingApproval {
			return &RedeemResult{Outcome: RedeemAlreadyPending, Membership: again, GroupName: token.GroupName}, nil
		}
		return nil, ErrTokenInvalid
	}

	if err := s.tokens.UpdateStatus(ctx, token.Value, string(StatusPendingApproval)); err != nil {
		s.log.Warn().Err(err).Str("token", token.Value).Msg("token status update failed")
	}

	events := []notification.Event{{
		Kind:       notification.KindPendingApproval,
		GroupID:    token.GroupID,
		GroupName:  token.GroupName,
		TargetID:   token.UserID,
		TargetName: m.Username,
		Recipients: []int64{token.UserID},
	}}

	reviewers, err := s.store.ListReviewers(ctx, token.GroupID)
	if err != nil {
		s.log.Warn().Err(err).Int64("group_id", token.GroupID).Msg("reviewer lookup failed")
	} else if len(reviewers) > 0 {
		events = append(events, notification.Event{
			Kind:       notification.KindJoinRequest,
			GroupID:    token.GroupID,
			GroupName:  token.GroupName,
			TargetID:   token.UserID,
			TargetName: m.Username,
			Recipients: recipientIDs(reviewers),
		})
	}

	s.notifier.Notify(ctx, events...)

	return &RedeemResult{Outcome: RedeemPending, Membership: updated, GroupName: token.GroupName}, nil
}

// ListPendingRequests returns the group's join requests awaiting review
func (s *Service) ListPendingRequests(ctx context.Context, groupID, reviewerID int64) ([]*Membership, error) {
	if _, err := s.activeGroup(ctx, groupID); err != nil {
		return nil, err
	}

	reviewer, err := s.requireActiveMember(ctx, groupID, reviewerID)
	if err != nil {
		return nil, err
	}
	if err := CanReview(reviewer.Role); err != nil {
		return nil, err
	}

	return s.store.ListByGroupAndStatus(ctx, groupID, StatusPendingApproval)
}

// AcceptRequest approves a pending join request. Capacity is re-validated
// here, not only at invite time, because state may have changed while the
// invitation sat unanswered. The accepted member always comes in as MEMBER.
func (s *Service) AcceptRequest(ctx context.Context, groupID, reviewerID, targetUserID int64) (*Membership, error) {
	g, err := s.activeGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	reviewer, err := s.requireActiveMember(ctx, groupID, reviewerID)
	if err != nil {
		return nil, err
	}
	if err := CanReview(reviewer.Role); err != nil {
		return nil, err
	}

	target, err := s.store.GetCurrent(ctx, groupID, targetUserID)
	if err != nil {
		return nil, err
	}
	if target == nil || target.Status != StatusPendingApproval {
		return nil, ErrNoPendingRequest
	}

	account, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrUserInactive
		}
		return nil, err
	}
	if !account.IsActive {
		return nil, ErrUserInactive
	}

	if err := s.validator.CanUserJoinGroup(ctx, targetUserID, groupID); err != nil {
		return nil, err
	}

	updated, err := s.store.Activate(ctx, target.ID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNoPendingRequest
	}

	s.deleteToken(ctx, groupID, targetUserID)

	s.notifier.Notify(ctx, notification.Event{
		Kind:       notification.KindAccepted,
		GroupID:    groupID,
		GroupName:  g.Name,
		ActorID:    reviewerID,
		ActorName:  reviewer.Username,
		TargetID:   targetUserID,
		Recipients: []int64{targetUserID},
	})

	return updated, nil
}

// RejectRequest declines a pending join request
func (s *Service) RejectRequest(ctx context.Context, groupID, reviewerID, targetUserID int64) error {
	g, err := s.activeGroup(ctx, groupID)
	if err != nil {
		return err
	}

	reviewer, err := s.requireActiveMember(ctx, groupID, reviewerID)
	if err != nil {
		return err
	}
	if err := CanReview(reviewer.Role); err != nil {
		return err
	}

	target, err := s.store.GetCurrent(ctx, groupID, targetUserID)
	if err != nil {
		return err
	}
	if target == nil || target.Status != StatusPendingApproval {
		return ErrNoPendingRequest
	}

	updated, err := s.store.UpdateStatus(ctx, target.ID, StatusPendingApproval, StatusRejected)
	if err != nil {
		return err
	}
	if updated == nil {
		return ErrNoPendingRequest
	}

	s.deleteToken(ctx, groupID, targetUserID)

	s.notifier.Notify(ctx, notification.Event{
		Kind:       notification.KindRejected,
		GroupID:    groupID,
		GroupName:  g.Name,
		ActorID:    reviewerID,
		ActorName:  reviewer.Username,
		TargetID:   targetUserID,
		Recipients: []int64{targetUserID},
	})

	return nil
}

// RemoveMember takes an active member out of the group. The permission
// rules are symmetric with role strength: the owner removes admins and
// members, admins remove members, nobody removes the owner.
func (s *Service) RemoveMember(ctx context.Context, groupID, actorID, targetUserID int64) error {
	if actorID == targetUserID {
		return ErrSelfRemoval
	}

	g, err := s.activeGroup(ctx, groupID)
	if err != nil {
		return err
	}

	actor, err := s.requireActiveMember(ctx, groupID, actorID)
	if err != nil {
		return err
	}

	target, err := s.requireActiveMember(ctx, groupID, targetUserID)
	if err != nil {
		if errors.Is(err, ErrNotActiveMember) {
			return ErrMembershipNotFound
		}
		return err
	}

	if err := CanRemove(actor.Role, target.Role); err != nil {
		return err
	}

	if target.Role == RoleAdmin {
		owners, err := s.store.FindActiveByRole(ctx, groupID, RoleOwner)
		if err != nil {
			return err
		}
		admins, err := s.store.FindActiveByRole(ctx, groupID, RoleAdmin)
		if err != nil {
			return err
		}
		if err := CanRemoveLastAdmin(len(owners) > 0, len(admins)); err != nil {
			return err
		}
	}

	updated, err := s.store.UpdateStatus(ctx, target.ID, StatusActive, StatusLeft)
	if err != nil {
		return err
	}
	if updated == nil {
		return ErrMembershipNotFound
	}

	events := []notification.Event{{
		Kind:       notification.KindRemovedIndividual,
		GroupID:    groupID,
		GroupName:  g.Name,
		ActorID:    actorID,
		ActorName:  actor.Username,
		TargetID:   targetUserID,
		TargetName: target.Username,
		Recipients: []int64{targetUserID},
	}}

	remaining, err := s.store.ListByGroupAndStatus(ctx, groupID, StatusActive)
	if err != nil {
		s.log.Warn().Err(err).Int64("group_id", groupID).Msg("member list failed after removal")
	} else if len(remaining) > 0 {
		events = append(events, notification.Event{
			Kind:       notification.KindRemovedGroup,
			GroupID:    groupID,
			GroupName:  g.Name,
			ActorID:    actorID,
			TargetID:   targetUserID,
			TargetName: target.Username,
			Recipients: recipientIDs(remaining),
		})
	}

	s.notifier.Notify(ctx, events...)

	return nil
}

// ExitGroup is self-service removal. The owner cannot exit: an active group
// without an owner breaks the membership invariants, so ownership must be
// transferred or the group deleted first.
func (s *Service) ExitGroup(ctx context.Context, groupID, userID int64) error {
	g, err := s.activeGroup(ctx, groupID)
	if err != nil {
		return err
	}

	m, err := s.requireActiveMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if m.Role == RoleOwner {
		return ErrOwnerCannotExit
	}

	updated, err := s.store.UpdateStatus(ctx, m.ID, StatusActive, StatusLeft)
	if err != nil {
		return err
	}
	if updated == nil {
		return ErrNotActiveMember
	}

	remaining, err := s.store.ListByGroupAndStatus(ctx, groupID, StatusActive)
	if err != nil {
		s.log.Warn().Err(err).Int64("group_id", groupID).Msg("member list failed after exit")
		return nil
	}

	if len(remaining) == 0 {
		if err := s.groups.Deactivate(ctx, groupID); err != nil {
			s.log.Error().Err(err).Int64("group_id", groupID).Msg("failed to deactivate emptied group")
		}
		return nil
	}

	s.notifier.Notify(ctx, notification.Event{
		Kind:       notification.KindRemovedGroup,
		GroupID:    groupID,
		GroupName:  g.Name,
		TargetID:   userID,
		TargetName: m.Username,
		Recipients: recipientIDs(remaining),
	})

	return nil
}

// UpdateMemberRole changes a member's role between ADMIN and MEMBER. Only
// the owner may do this, and ownership itself never moves through here.
func (s *Service) UpdateMemberRole(ctx context.Context, groupID, actorID, targetUserID int64, newRole Role) (*Membership, error) {
	if !newRole.Valid() {
		return nil, ErrInvalidRole
	}

	g, err := s.activeGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	actor, err := s.requireActiveMember(ctx, groupID, actorID)
	if err != nil {
		return nil, err
	}

	target, err := s.requireActiveMember(ctx, groupID, targetUserID)
	if err != nil {
		if errors.Is(err, ErrNotActiveMember) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}

	if target.Role == newRole {
		return nil, ErrRoleUnchanged
	}
	if err := CanUpdateRole(actor.Role, target.Role, newRole); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateRole(ctx, target.ID, newRole)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrMembershipNotFound
	}

	events := []notification.Event{{
		Kind:       notification.KindRoleUpdatedIndividual,
		GroupID:    groupID,
		GroupName:  g.Name,
		ActorID:    actorID,
		TargetID:   targetUserID,
		Role:       string(newRole),
		Recipients: []int64{targetUserID},
	}}

	members, err := s.store.ListByGroupAndStatus(ctx, groupID, StatusActive)
	if err != nil {
		s.log.Warn().Err(err).Int64("group_id", groupID).Msg("member list failed after role update")
	} else {
		broadcast := recipientIDs(members, targetUserID)
		if len(broadcast) > 0 {
			events = append(events, notification.Event{
				Kind:       notification.KindRoleUpdatedGroup,
				GroupID:    groupID,
				GroupName:  g.Name,
				ActorID:    actorID,
				TargetID:   targetUserID,
				TargetName: target.Username,
				Role:       string(newRole),
				Recipients: broadcast,
			})
		}
	}

	s.notifier.Notify(ctx, events...)

	return updated, nil
}

// ListMembers returns the group's active members
func (s *Service) ListMembers(ctx context.Context, groupID int64) ([]*Membership, error) {
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return nil, err
	}

	return s.store.ListByGroupAndStatus(ctx, groupID, StatusActive)
}

// BootstrapOwner seeds a freshly created group with its owner. Implements
// the group feature's MemberDirectory.
func (s *Service) BootstrapOwner(ctx context.Context, groupID, userID int64) error {
	account, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !account.IsActive {
		return ErrUserInactive
	}

	if err := s.validator.CanUserJoinMoreGroups(ctx, userID); err != nil {
		return err
	}

	_, err = s.store.Create(ctx, groupID, userID, RoleOwner, StatusActive)
	return err
}

// IsActiveOwner reports whether the user is the group's active owner
func (s *Service) IsActiveOwner(ctx context.Context, groupID, userID int64) (bool, error) {
	m, err := s.store.GetCurrent(ctx, groupID, userID)
	if err != nil {
		return false, err
	}
	return m != nil && m.Status == StatusActive && m.Role == RoleOwner, nil
}

// deleteToken drops the invitation token once its membership reached a
// terminal outcome. Best-effort: the token self-expires anyway.
func (s *Service) deleteToken(ctx context.Context, groupID, userID int64) {
	if err := s.tokens.DeleteByMember(ctx, groupID, userID); err != nil {
		s.log.Warn().Err(err).
			Int64("group_id", groupID).
			Int64("user_id", userID).
			Msg("invitation token delete failed")
	}
}

// recipientIDs collects user ids from memberships, skipping the excluded ones
func recipientIDs(members []*Membership, exclude ...int64) []int64 {
	skip := make(map[int64]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		if !skip[m.UserID] {
			ids = append(ids, m.UserID)
		}
	}

	return ids
}
