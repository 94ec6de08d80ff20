package invitation

import "context"

// Store is the invitation token store: a key-value store with per-entry
// expiry, indexed by opaque token value and by (group, user) pair. It holds
// no business rules. Lookups return (nil, nil) when no live token exists.
type Store interface {
	// Save stores the token under both indices with its remaining lifetime
	Save(ctx context.Context, token *Token) error

	// Get returns the token by its opaque value, or nil if absent/expired
	Get(ctx context.Context, value string) (*Token, error)

	// GetByMember returns the token for a (group, user) pair, or nil
	GetByMember(ctx context.Context, groupID, userID int64) (*Token, error)

	// UpdateStatus rewrites the token's status field in place, keeping the
	// remaining expiry unchanged
	UpdateStatus(ctx context.Context, value, status string) error

	// Delete removes the token and its member index entry
	Delete(ctx context.Context, value string) error

	// DeleteByMember removes the token for a (group, user) pair, if any
	DeleteByMember(ctx context.Context, groupID, userID int64) error
}

// Purger is implemented by stores that need a periodic sweep for entries
// that did not expire cleanly (orphaned member-index entries).
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}
