package invitation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	tokenKeyPrefix  = "invite:token:"
	memberKeyPrefix = "invite:member:"
)

// RedisStore keeps tokens in Redis with native TTL expiry. The primary entry
// holds the JSON payload under the token value; a member-index entry maps
// (group, user) back to the token value with the same TTL.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed token store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func tokenKey(value string) string {
	return tokenKeyPrefix + value
}

func redisMemberKey(groupID, userID int64) string {
	return fmt.Sprintf("%s%d:%d", memberKeyPrefix, groupID, userID)
}

// Save writes both entries with the token's remaining lifetime
func (s *RedisStore) Save(ctx context.Context, token *Token) error {
	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("token already expired")
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, tokenKey(token.Value), payload, ttl)
	pipe.Set(ctx, redisMemberKey(token.GroupID, token.UserID), token.Value, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	return nil
}

// Get returns the token by value, or nil when absent or expired
func (s *RedisStore) Get(ctx context.Context, value string) (*Token, error) {
	payload, err := s.client.Get(ctx, tokenKey(value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	token := &Token{}
	if err := json.Unmarshal(payload, token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}

	return token, nil
}

// GetByMember resolves the member index and loads the token. A dangling
// index entry (token payload gone) is removed and reported as not found.
func (s *RedisStore) GetByMember(ctx context.Context, groupID, userID int64) (*Token, error) {
	value, err := s.client.Get(ctx, redisMemberKey(groupID, userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member index: %w", err)
	}

	token, err := s.Get(ctx, value)
	if err != nil {
		return nil, err
	}
	if token == nil {
		s.client.Del(ctx, redisMemberKey(groupID, userID))
		return nil, nil
	}

	return token, nil
}

// UpdateStatus rewrites the payload in place, keeping the remaining TTL
func (s *RedisStore) UpdateStatus(ctx context.Context, value, status string) error {
	token, err := s.Get(ctx, value)
	if err != nil {
		return err
	}
	if token == nil {
		return fmt.Errorf("token not found")
	}

	token.Status = status

	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := s.client.Set(ctx, tokenKey(value), payload, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}

	return nil
}

// Delete removes the token and its member index entry
func (s *RedisStore) Delete(ctx context.Context, value string) error {
	token, err := s.Get(ctx, value)
	if err != nil {
		return err
	}

	keys := []string{tokenKey(value)}
	if token != nil {
		keys = append(keys, redisMemberKey(token.GroupID, token.UserID))
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	return nil
}

// DeleteByMember removes the token for a (group, user) pair, if any
func (s *RedisStore) DeleteByMember(ctx context.Context, groupID, userID int64) error {
	value, err := s.client.Get(ctx, redisMemberKey(groupID, userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("failed to get member index: %w", err)
	}

	keys := []string{redisMemberKey(groupID, userID), tokenKey(value)}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	return nil
}

// PurgeExpired removes member-index entries whose token payload is gone.
// Token entries themselves expire natively, so this only chases orphans
// left behind by partial writes.
func (s *RedisStore) PurgeExpired(ctx context.Context) (int, error) {
	removed := 0

	iter := s.client.Scan(ctx, 0, memberKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		value, err := s.client.Get(ctx, key).Result()
		if err != nil {
			continue
		}

		exists, err := s.client.Exists(ctx, tokenKey(value)).Result()
		if err != nil || exists > 0 {
			continue
		}

		if s.client.Del(ctx, key).Err() == nil {
			removed++
		}
	}

	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to scan member index: %w", err)
	}

	return removed, nil
}
