package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bizguardian/manager/internal/core/ports"
)

// SessionRegistry tracks issued tokens in Redis.
// Key format: session:<token_id> -> user id (expires with the token)
//
//	user_sessions:<user_id> -> set of token ids
type SessionRegistry struct {
	client *redis.Client
}

var _ ports.SessionRegistry = (*SessionRegistry)(nil)

// NewSessionRegistry creates a SessionRegistry wrapping the given Redis client.
func NewSessionRegistry(client *redis.Client) *SessionRegistry {
	return &SessionRegistry{client: client}
}

// Register records tokenID for userID until ttl elapses. Every token shares
// the same ttl, so refreshing the user index expiry keeps it alive at least as
// long as its newest token.
func (s *SessionRegistry) Register(ctx context.Context, tokenID, userID string, ttl time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(tokenID), userID, ttl)
		pipe.SAdd(ctx, userKey(userID), tokenID)
		pipe.Expire(ctx, userKey(userID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("register session: %w", err)
	}
	return nil
}

// IsActive reports whether tokenID is registered and not expired.
func (s *SessionRegistry) IsActive(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("session check: %w", err)
	}
	return n > 0, nil
}

// Revoke removes a single token. Unknown tokens are ignored.
func (s *SessionRegistry) Revoke(ctx context.Context, tokenID string) error {
	userID, err := s.client.Get(ctx, sessionKey(tokenID)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(tokenID))
		pipe.SRem(ctx, userKey(userID), tokenID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeUser removes every token registered for userID.
func (s *SessionRegistry) RevokeUser(ctx context.Context, userID string) error {
	ids, err := s.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("revoke user sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userKey(userID))

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("revoke user sessions: %w", err)
	}
	return nil
}

func (s *SessionRegistry) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func sessionKey(tokenID string) string {
	return fmt.Sprintf("session:%s", tokenID)
}

func userKey(userID string) string {
	return fmt.Sprintf("user_sessions:%s", userID)
}
