package cache

import (
	"context"
	"errors"
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"github.com/redis/go-redis/v9"
)

// RedisTokenStore implements domain.TransientTokenStore
type RedisTokenStore struct {
	client redis.UniversalClient
}

var _ domain.TransientTokenStore = (*RedisTokenStore)(nil)

// NewRedisTokenStore constructs a Redis-backed transient token store
func NewRedisTokenStore(client redis.UniversalClient) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

// tokenKey is <purpose>:<token>; callers own their purpose prefix
func tokenKey(purpose, token string) string {
	return purpose + ":" + token
}

// PutTransientToken stores value under purpose:token until ttl elapses
func (s *RedisTokenStore) PutTransientToken(ctx context.Context, purpose, token, value string, ttl time.Duration) error {
	return s.client.Set(ctx, tokenKey(purpose, token), value, ttl).Err()
}

// GetTransientToken returns the stored value; ok is false when absent or expired
func (s *RedisTokenStore) GetTransientToken(ctx context.Context, purpose, token string) (string, bool, error) {
	value, err := s.client.Get(ctx, tokenKey(purpose, token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// DeleteTransientToken removes the token; deleting a missing token is not an error
func (s *RedisTokenStore) DeleteTransientToken(ctx context.Context, purpose, token string) error {
	return s.client.Del(ctx, tokenKey(purpose, token)).Err()
}

// ConsumeTransientToken reads and deletes the token in one round trip
func (s *RedisTokenStore) ConsumeTransientToken(ctx context.Context, purpose, token string) (string, bool, error) {
	value, err := s.client.GetDel(ctx, tokenKey(purpose, token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}
