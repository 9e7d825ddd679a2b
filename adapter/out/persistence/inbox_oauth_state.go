package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OAuthStateKey Redis key prefix for OAuth state
const OAuthStateKey = "oauth:state:"

// RedisOAuthStateStore stores one-time OAuth states in Redis for CSRF
// protection.
type RedisOAuthStateStore struct {
	client redis.UniversalClient
}

// NewRedisOAuthStateStore creates a new Redis OAuth state store.
func NewRedisOAuthStateStore(client redis.UniversalClient) *RedisOAuthStateStore {
	return &RedisOAuthStateStore{client: client}
}

// StoreState stores a state with a TTL.
func (s *RedisOAuthStateStore) StoreState(ctx context.Context, state, ownerID string, ttl time.Duration) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if ownerID == "" {
		return errors.New("ownerID cannot be empty")
	}

	key := OAuthStateKey + state
	if err := s.client.Set(ctx, key, ownerID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store OAuth state: %w", err)
	}

	return nil
}

// ValidateState validates a state and returns its owner. The state is
// deleted atomically so it can only be used once.
func (s *RedisOAuthStateStore) ValidateState(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", errors.New("state cannot be empty")
	}

	key := OAuthStateKey + state

	ownerID, err := s.client.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return "", errors.New("state not found or expired")
	}
	if err != nil {
		return "", fmt.Errorf("failed to validate OAuth state: %w", err)
	}

	return ownerID, nil
}
