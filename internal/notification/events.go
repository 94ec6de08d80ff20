package notification

import "fmt"

// EventKind identifies a membership event that collaborators are told about
type EventKind string

const (
	KindInvitationSent        EventKind = "INVITATION_SENT"
	KindPendingApproval       EventKind = "PENDING_APPROVAL"
	KindJoinRequest           EventKind = "JOIN_REQUEST"
	KindAccepted              EventKind = "ACCEPTED"
	KindRejected              EventKind = "REJECTED"
	KindRemovedIndividual     EventKind = "REMOVED"
	KindRemovedGroup          EventKind = "MEMBER_REMOVED"
	KindRoleUpdatedIndividual EventKind = "ROLE_UPDATED"
	KindRoleUpdatedGroup      EventKind = "MEMBER_ROLE_UPDATED"
	KindSuccessionPromotion   EventKind = "SUCCESSION_PROMOTION"
)

// Event is a committed membership state change to be announced. Events are
// emitted by the membership service after its authoritative write and are
// delivered best-effort; delivery failure never surfaces to the operation
// that produced the event.
type Event struct {
	Kind       EventKind
	GroupID    int64
	GroupName  string
	ActorID    int64
	ActorName  string
	TargetID   int64
	TargetName string
	Recipients []int64
	Email      string
	Link       string
	Role       string
}

// Message renders the in-app feed text for the event
func (e Event) Message() string {
	switch e.Kind {
	case KindInvitationSent:
		return fmt.Sprintf("%s invited you to join group %q", e.ActorName, e.GroupName)
	case KindPendingApproval:
		return fmt.Sprintf("Your request to join %q is waiting for approval", e.GroupName)
	case KindJoinRequest:
		return fmt.Sprintf("%s wants to join %q", e.TargetName, e.GroupName)
	case KindAccepted:
		return fmt.Sprintf("You are now a member of %q", e.GroupName)
	case KindRejected:
		return fmt.Sprintf("Your request to join %q was declined", e.GroupName)
	case KindRemovedIndividual:
		return fmt.Sprintf("You were removed from %q", e.GroupName)
	case KindRemovedGroup:
		return fmt.Sprintf("%s is no longer a member of %q", e.TargetName, e.GroupName)
	case KindRoleUpdatedIndividual:
		return fmt.Sprintf("Your role in %q is now %s", e.GroupName, e.Role)
	case KindRoleUpdatedGroup:
		return fmt.Sprintf("%s is now %s of %q", e.TargetName, e.Role, e.GroupName)
	case KindSuccessionPromotion:
		return fmt.Sprintf("You are now %s of %q", e.Role, e.GroupName)
	default:
		return fmt.Sprintf("Group %q was updated", e.GroupName)
	}
}

// Title renders the push notification title for the event
func (e Event) Title() string {
	switch e.Kind {
	case KindInvitationSent:
		return "Group invitation"
	case KindJoinRequest:
		return "New join request"
	case KindAccepted, KindRejected, KindPendingApproval:
		return "Join request update"
	case KindRoleUpdatedIndividual, KindRoleUpdatedGroup, KindSuccessionPromotion:
		return "Role change"
	default:
		return "Group update"
	}
}
