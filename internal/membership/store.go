package membership

import "context"

// Store is the membership repository contract. It owns durability and the
// serialization of conflicting writes to the same (user, group) row; it
// holds no business rules.
//
// Guarded updates (UpdateStatus, Activate) return (nil, nil) when no row
// matched the expected current status. The caller lost a race or the
// transition was never legal, and maps that to its own error.
type Store interface {
	// GetCurrent returns the most recent incarnation for (group, user),
	// or nil when the user has never been associated with the group.
	GetCurrent(ctx context.Context, groupID, userID int64) (*Membership, error)

	GetByID(ctx context.Context, id int64) (*Membership, error)

	// Create inserts a fresh incarnation
	Create(ctx context.Context, groupID, userID int64, role Role, status Status) (*Membership, error)

	// UpdateStatus transitions a row from an expected status to a new one
	UpdateStatus(ctx context.Context, id int64, from, to Status) (*Membership, error)

	// Activate moves a PENDING_APPROVAL row to ACTIVE and normalizes the
	// role to MEMBER in the same write.
	Activate(ctx context.Context, id int64) (*Membership, error)

	UpdateRole(ctx context.Context, id int64, role Role) (*Membership, error)

	// TransferOwnership demotes one ACTIVE OWNER row to MEMBER and promotes
	// one ACTIVE row to OWNER as a single transaction.
	TransferOwnership(ctx context.Context, groupID, fromID, toID int64) error

	ListByGroupAndStatus(ctx context.Context, groupID int64, status Status) ([]*Membership, error)

	// ListReviewers returns the group's active admins and owner
	ListReviewers(ctx context.Context, groupID int64) ([]*Membership, error)

	// FindActiveByRole returns the group's active rows with the given role,
	// ordered by membership id ascending.
	FindActiveByRole(ctx context.Context, groupID int64, role Role) ([]*Membership, error)

	// ListActiveByUserAndRole returns a user's active rows with the given
	// role across all groups, ordered by membership id ascending.
	ListActiveByUserAndRole(ctx context.Context, userID int64, role Role) ([]*Membership, error)

	CountActiveByGroup(ctx context.Context, groupID int64) (int, error)
	CountActiveByUser(ctx context.Context, userID int64) (int, error)
}
