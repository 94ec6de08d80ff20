package invitation

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is a process-local token store for single-instance deployments
// and tests. Expiry is checked on read; PurgeExpired removes dead entries.
type MemoryStore struct {
	mu       sync.RWMutex
	byValue  map[string]*Token
	byMember map[string]string // "(groupID:userID)" -> token value
}

// NewMemoryStore creates an empty in-memory token store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byValue:  make(map[string]*Token),
		byMember: make(map[string]string),
	}
}

func memberKey(groupID, userID int64) string {
	return fmt.Sprintf("%d:%d", groupID, userID)
}

// Save stores the token under both indices
func (s *MemoryStore) Save(_ context.Context, token *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *token
	s.byValue[token.Value] = &cp
	s.byMember[memberKey(token.GroupID, token.UserID)] = token.Value

	return nil
}

// Get returns the token by value, or nil if absent or expired
func (s *MemoryStore) Get(_ context.Context, value string) (*Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.byValue[value]
	if !ok || token.Expired() {
		return nil, nil
	}

	cp := *token
	return &cp, nil
}

// GetByMember returns the token for a (group, user) pair, or nil. A member
// index entry pointing at a missing token is treated as not found.
func (s *MemoryStore) GetByMember(_ context.Context, groupID, userID int64) (*Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.byMember[memberKey(groupID, userID)]
	if !ok {
		return nil, nil
	}

	token, ok := s.byValue[value]
	if !ok || token.Expired() {
		return nil, nil
	}

	cp := *token
	return &cp, nil
}

// UpdateStatus rewrites the status of a live token; expiry is untouched
func (s *MemoryStore) UpdateStatus(_ context.Context, value, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.byValue[value]
	if !ok || token.Expired() {
		return fmt.Errorf("token not found")
	}

	token.Status = status

	return nil
}

// Delete removes the token and its member index entry
func (s *MemoryStore) Delete(_ context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token, ok := s.byValue[value]; ok {
		delete(s.byMember, memberKey(token.GroupID, token.UserID))
		delete(s.byValue, value)
	}

	return nil
}

// DeleteByMember removes the token for a (group, user) pair, if any
func (s *MemoryStore) DeleteByMember(_ context.Context, groupID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey(groupID, userID)
	if value, ok := s.byMember[key]; ok {
		delete(s.byValue, value)
		delete(s.byMember, key)
	}

	return nil
}

// PurgeExpired drops expired tokens and member index entries whose token is
// gone. Returns the number of entries removed.
func (s *MemoryStore) PurgeExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0

	for value, token := range s.byValue {
		if token.Expired() {
			delete(s.byValue, value)
			removed++
		}
	}

	for key, value := range s.byMember {
		if _, ok := s.byValue[value]; !ok {
			delete(s.byMember, key)
			removed++
		}
	}

	return removed, nil
}
