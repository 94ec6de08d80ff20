package membership

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alhamdi/divvy/internal/group"
	"github.com/alhamdi/divvy/internal/invitation"
	"github.com/alhamdi/divvy/internal/notification"
	"github.com/alhamdi/divvy/internal/user"
	"github.com/alhamdi/divvy/pkg/deeplink"
	"github.com/alhamdi/divvy/pkg/ratelimit"
)

// fakeStore is an in-memory Store with the same guard semantics as the SQL
// repository: guarded updates return (nil, nil) when the row is not in the
// expected state.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []*Membership
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func clone(m *Membership) *Membership {
	c := *m
	return &c
}

func (s *fakeStore) current(groupID, userID int64) *Membership {
	var best *Membership
	for _, m := range s.rows {
		if m.GroupID == groupID && m.UserID == userID {
			if best == nil || m.ID > best.ID {
				best = m
			}
		}
	}
	return best
}

func (s *fakeStore) GetCurrent(_ context.Context, groupID, userID int64) (*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m := s.current(groupID, userID); m != nil {
		return clone(m), nil
	}
	return nil, nil
}

func (s *fakeStore) GetByID(_ context.Context, id int64) (*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.rows {
		if m.ID == id {
			return clone(m), nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Create(_ context.Context, groupID, userID int64, role Role, status Status) (*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	m := &Membership{
		ID:       s.nextID,
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		Status:   status,
		JoinedAt: time.Now(),
	}
	s.rows = append(s.rows, m)
	return clone(m), nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id int64, from, to Status) (*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.rows {
		if m.ID == id && m.Status == from {
			m.Status = to
			return clone(m), nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Activate(_ context.Context, id int64) (*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.rows {
		if m.ID == id && m.Status == StatusPendingApproval {
			m.Status = StatusActive
			m.Role = RoleMember
			return clone(m), nil
		}
	}
	return nil, nil
}

func (s *fakeStore) UpdateRole(_ context.Context, id int64, role Role) (*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.rows {
		if m.ID == id && m.Status == StatusActive {
			m.Role = role
			return clone(m), nil
		}
	}
	return nil, nil
}

func (s *fakeStore) TransferOwnership(_ context.Context, groupID, fromID, toID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var from, to *Membership
	for _, m := range s.rows {
		if m.GroupID != groupID {
			continue
		}
		if m.ID == fromID {
			from = m
		}
		if m.ID == toID {
			to = m
		}
	}
	if from == nil || from.Role != RoleOwner || from.Status != StatusActive {
		return ErrMembershipNotFound
	}
	if to == nil || to.Status != StatusActive {
		return ErrMembershipNotFound
	}

	from.Role = RoleMember
	to.Role = RoleOwner
	return nil
}

func (s *fakeStore) ListByGroupAndStatus(_ context.Context, groupID int64, status Status) ([]*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Membership
	for _, m := range s.rows {
		if m.GroupID == groupID && m.Status == status {
			out = append(out, clone(m))
		}
	}
	return out, nil
}

func (s *fakeStore) ListReviewers(_ context.Context, groupID int64) ([]*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Membership
	for _, m := range s.rows {
		if m.GroupID == groupID && m.Status == StatusActive && (m.Role == RoleOwner || m.Role == RoleAdmin) {
			out = append(out, clone(m))
		}
	}
	return out, nil
}

func (s *fakeStore) FindActiveByRole(_ context.Context, groupID int64, role Role) ([]*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Membership
	for _, m := range s.rows {
		if m.GroupID == groupID && m.Status == StatusActive && m.Role == role {
			out = append(out, clone(m))
		}
	}
	return out, nil
}

func (s *fakeStore) ListActiveByUserAndRole(_ context.Context, userID int64, role Role) ([]*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Membership
	for _, m := range s.rows {
		if m.UserID == userID && m.Status == StatusActive && m.Role == role {
			out = append(out, clone(m))
		}
	}
	return out, nil
}

func (s *fakeStore) CountActiveByGroup(_ context.Context, groupID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, m := range s.rows {
		if m.GroupID == groupID && m.Status == StatusActive {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) CountActiveByUser(_ context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, m := range s.rows {
		if m.UserID == userID && m.Status == StatusActive {
			count++
		}
	}
	return count, nil
}

// fakeUsers is an in-memory UserDirectory
type fakeUsers struct {
	byID map[int64]*user.User
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

// fakeGroups is an in-memory GroupDirectory
type fakeGroups struct {
	byID map[int64]*group.Group
}

func (f *fakeGroups) GetByID(_ context.Context, id int64) (*group.Group, error) {
	g, ok := f.byID[id]
	if !ok {
		return nil, group.ErrGroupNotFound
	}
	return g, nil
}

func (f *fakeGroups) Deactivate(_ context.Context, id int64) error {
	g, ok := f.byID[id]
	if !ok {
		return group.ErrGroupNotFound
	}
	g.IsActive = false
	return nil
}

// recorder collects emitted events synchronously
type recorder struct {
	mu     sync.Mutex
	events []notification.Event
}

func (r *recorder) Notify(_ context.Context, events ...notification.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *recorder) kinds() []notification.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]notification.EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func (r *recorder) last() notification.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// fixture wires a Service and Succession over the in-memory fakes
type fixture struct {
	store      *fakeStore
	users      *fakeUsers
	groups     *fakeGroups
	tokens     *invitation.MemoryStore
	events     *recorder
	svc        *Service
	succession *Succession
}

func newFixture() *fixture {
	return newFixtureWithLimits(Limits{MaxGroupsPerUser: 20, MaxMembersPerGroup: 50})
}

func newFixtureWithLimits(limits Limits) *fixture {
	f := &fixture{
		store:  newFakeStore(),
		users:  &fakeUsers{byID: map[int64]*user.User{}},
		groups: &fakeGroups{byID: map[int64]*group.Group{}},
		tokens: invitation.NewMemoryStore(),
		events: &recorder{},
	}

	validator := NewValidator(f.store, limits)
	f.svc = NewService(
		f.store,
		validator,
		f.users,
		f.groups,
		f.tokens,
		f.events,
		ratelimit.Unlimited{},
		deeplink.NewBuilder("https://app.test"),
		30*24*time.Hour,
		zerolog.Nop(),
	)
	f.succession = NewSuccession(f.store, f.groups, f.users, f.events, zerolog.Nop())

	return f
}

func (f *fixture) addUser(id int64, username, email string) {
	f.users.byID[id] = &user.User{ID: id, Username: username, Email: email, IsActive: true}
}

func (f *fixture) addGroup(id int64, name string) {
	f.groups.byID[id] = &group.Group{ID: id, Name: name, IsActive: true}
}

func (f *fixture) seed(groupID, userID int64, role Role, status Status) *Membership {
	m, _ := f.store.Create(context.Background(), groupID, userID, role, status)
	return m
}
