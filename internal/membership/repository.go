package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Repository is the postgres-backed membership store
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new membership repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const memberColumns = `gm.id, gm.group_id, gm.user_id, gm.role, gm.status, gm.joined_at, u.username, u.email`

func scanMember(row interface{ Scan(...any) error }) (*Membership, error) {
	member := &Membership{}
	err := row.Scan(
		&member.ID,
		&member.GroupID,
		&member.UserID,
		&member.Role,
		&member.Status,
		&member.JoinedAt,
		&member.Username,
		&member.Email,
	)
	if err != nil {
		return nil, err
	}
	return member, nil
}

// GetCurrent retrieves the most recent incarnation for (group, user)
func (r *Repository) GetCurrent(ctx context.Context, groupID, userID int64) (*Membership, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM group_members gm
		JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1 AND gm.user_id = $2
		ORDER BY gm.joined_at DESC, gm.id DESC
		LIMIT 1
	`

	member, err := scanMember(r.db.QueryRowContext(ctx, query, groupID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return member, nil
}

// GetByID retrieves a membership row by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Membership, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM group_members gm
		JOIN users u ON gm.user_id = u.id
		WHERE gm.id = $1
	`

	member, err := scanMember(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return member, nil
}

// Create inserts a fresh membership incarnation
func (r *Repository) Create(ctx context.Context, groupID, userID int64, role Role, status Status) (*Membership, error) {
	query := `
		INSERT INTO group_members (group_id, user_id, role, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, group_id, user_id, role, status, joined_at
	`

	member := &Membership{}
	err := r.db.QueryRowContext(ctx, query, groupID, userID, role, status).Scan(
		&member.ID,
		&member.GroupID,
		&member.UserID,
		&member.Role,
		&member.Status,
		&member.JoinedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	return member, nil
}

// UpdateStatus transitions a row from an expected status to a new one. The
// status predicate is the optimistic guard: when two transitions race on
// the same row, exactly one matches and the other gets (nil, nil).
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to Status) (*Membership, error) {
	query := `
		UPDATE group_members
		SET status = $3
		WHERE id = $1 AND status = $2
		RETURNING id, group_id, user_id, role, status, joined_at
	`

	member := &Membership{}
	err := r.db.QueryRowContext(ctx, query, id, from, to).Scan(
		&member.ID,
		&member.GroupID,
		&member.UserID,
		&member.Role,
		&member.Status,
		&member.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update membership status: %w", err)
	}

	return member, nil
}

// Activate moves a pending row to ACTIVE with role MEMBER. Acceptance never
// carries an elevated role.
func (r *Repository) Activate(ctx context.Context, id int64) (*Membership, error) {
	query := `
		UPDATE group_members
		SET status = $2, role = $3
		WHERE id = $1 AND status = $4
		RETURNING id, group_id, user_id, role, status, joined_at
	`

	member := &Membership{}
	err := r.db.QueryRowContext(ctx, query, id, StatusActive, RoleMember, StatusPendingApproval).Scan(
		&member.ID,
		&member.GroupID,
		&member.UserID,
		&member.Role,
		&member.Status,
		&member.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to activate membership: %w", err)
	}

	return member, nil
}

// UpdateRole changes the role on an active row
func (r *Repository) UpdateRole(ctx context.Context, id int64, role Role) (*Membership, error) {
	query := `
		UPDATE group_members
		SET role = $2
		WHERE id = $1 AND status = $3
		RETURNING id, group_id, user_id, role, status, joined_at
	`

	member := &Membership{}
	err := r.db.QueryRowContext(ctx, query, id, role, StatusActive).Scan(
		&member.ID,
		&member.GroupID,
		&member.UserID,
		&member.Role,
		&member.Status,
		&member.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update membership role: %w", err)
	}

	return member, nil
}

// TransferOwnership demotes the current owner row and promotes the new one
// inside a single transaction. Both rows are locked first so concurrent
// readers never observe a group with zero or two owners.
func (r *Repository) TransferOwnership(ctx context.Context, groupID, fromID, toID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	lockQuery := `
		SELECT id, role, status
		FROM group_members
		WHERE id = ANY($1) AND group_id = $2
		FOR UPDATE
	`

	rows, err := tx.QueryContext(ctx, lockQuery, pq.Array([]int64{fromID, toID}), groupID)
	if err != nil {
		return fmt.Errorf("failed to lock membership rows: %w", err)
	}

	locked := map[int64]struct {
		role   Role
		status Status
	}{}
	for rows.Next() {
		var (
			id     int64
			role   Role
			status Status
		)
		if err := rows.Scan(&id, &role, &status); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan locked row: %w", err)
		}
		locked[id] = struct {
			role   Role
			status Status
		}{role, status}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to lock membership rows: %w", err)
	}

	from, ok := locked[fromID]
	if !ok || from.role != RoleOwner || from.status != StatusActive {
		return ErrMembershipNotFound
	}
	to, ok := locked[toID]
	if !ok || to.status != StatusActive {
		return ErrMembershipNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE group_members SET role = $2 WHERE id = $1`, fromID, RoleMember); err != nil {
		return fmt.Errorf("failed to demote owner: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE group_members SET role = $2 WHERE id = $1`, toID, RoleOwner); err != nil {
		return fmt.Errorf("failed to promote new owner: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transfer: %w", err)
	}

	return nil
}

// ListByGroupAndStatus retrieves a group's members with the given status
func (r *Repository) ListByGroupAndStatus(ctx context.Context, groupID int64, status Status) ([]*Membership, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM group_members gm
		JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1 AND gm.status = $2
		ORDER BY gm.joined_at
	`

	return r.queryMembers(ctx, query, groupID, status)
}

// ListReviewers retrieves the group's active admins and owner
func (r *Repository) ListReviewers(ctx context.Context, groupID int64) ([]*Membership, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM group_members gm
		JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1 AND gm.status = $2 AND gm.role IN ($3, $4)
		ORDER BY gm.id
	`

	return r.queryMembers(ctx, query, groupID, StatusActive, RoleOwner, RoleAdmin)
}

// FindActiveByRole retrieves the group's active rows with the given role.
// Ordered by membership id so succession picks candidates deterministically.
func (r *Repository) FindActiveByRole(ctx context.Context, groupID int64, role Role) ([]*Membership, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM group_members gm
		JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1 AND gm.status = $2 AND gm.role = $3
		ORDER BY gm.id
	`

	return r.queryMembers(ctx, query, groupID, StatusActive, role)
}

// ListActiveByUserAndRole retrieves a user's active rows with the given role
func (r *Repository) ListActiveByUserAndRole(ctx context.Context, userID int64, role Role) ([]*Membership, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM group_members gm
		JOIN users u ON gm.user_id = u.id
		WHERE gm.user_id = $1 AND gm.status = $2 AND gm.role = $3
		ORDER BY gm.id
	`

	return r.queryMembers(ctx, query, userID, StatusActive, role)
}

// CountActiveByGroup counts a group's active members
func (r *Repository) CountActiveByGroup(ctx context.Context, groupID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM group_members WHERE group_id = $1 AND status = $2`
	if err := r.db.QueryRowContext(ctx, query, groupID, StatusActive).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count group members: %w", err)
	}
	return count, nil
}

// CountActiveByUser counts the active groups a user belongs to
func (r *Repository) CountActiveByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM group_members gm
		JOIN groups g ON gm.group_id = g.id
		WHERE gm.user_id = $1 AND gm.status = $2 AND g.is_active = true
	`
	if err := r.db.QueryRowContext(ctx, query, userID, StatusActive).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count user memberships: %w", err)
	}
	return count, nil
}

func (r *Repository) queryMembers(ctx context.Context, query string, args ...any) ([]*Membership, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []*Membership
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	return members, rows.Err()
}
