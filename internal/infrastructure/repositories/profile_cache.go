package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"github.com/redis/go-redis/v9"
)

// ProfileKeyPrefix prefixes cached profiles: user:profile:<userId>
const ProfileKeyPrefix = "user:profile:"

// ProfileCacheImpl implements domain.ProfileCache using Redis
type ProfileCacheImpl struct {
	client redis.UniversalClient
}

// NewProfileCache creates a new Redis profile cache
func NewProfileCache(client redis.UniversalClient) domain.ProfileCache {
	return &ProfileCacheImpl{client: client}
}

// Get implements domain.ProfileCache. A miss is (nil, false, nil).
func (c *ProfileCacheImpl) Get(ctx context.Context, userID string) (*domain.User, bool, error) {
	data, err := c.client.Get(ctx, ProfileKeyPrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &user, true, nil
}

// Set implements domain.ProfileCache. Only the sanitized user is stored.
func (c *ProfileCacheImpl) Set(ctx context.Context, user *domain.User, ttl time.Duration) error {
	data, err := json.Marshal(user.Sanitized())
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	return c.client.Set(ctx, ProfileKeyPrefix+user.ID, data, ttl).Err()
}

// Invalidate implements domain.ProfileCache
func (c *ProfileCacheImpl) Invalidate(ctx context.Context, userID string) error {
	return c.client.Del(ctx, ProfileKeyPrefix+userID).Err()
}
