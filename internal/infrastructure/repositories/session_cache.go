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

// SessionKeyPrefix prefixes cached sessions: session:<sessionToken>
const SessionKeyPrefix = "session:"

// SessionCacheImpl implements domain.SessionCache using Redis
type SessionCacheImpl struct {
	client redis.UniversalClient
	prefix string
}

// NewSessionCache creates a new Redis session cache
func NewSessionCache(client redis.UniversalClient) domain.SessionCache {
	return &SessionCacheImpl{
		client: client,
		prefix: SessionKeyPrefix,
	}
}

// Set implements domain.SessionCache. A non-positive ttl is rejected so no
// entry can outlive its session.
func (c *SessionCacheImpl) Set(ctx context.Context, session *domain.Session, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("refusing to cache session with ttl %v", ttl)
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return c.client.Set(ctx, c.prefix+session.SessionToken, data, ttl).Err()
}

// Get implements domain.SessionCache
func (c *SessionCacheImpl) Get(ctx context.Context, sessionToken string) (*domain.Session, error) {
	data, err := c.client.Get(ctx, c.prefix+sessionToken).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Delete implements domain.SessionCache
func (c *SessionCacheImpl) Delete(ctx context.Context, sessionTokens ...string) error {
	if len(sessionTokens) == 0 {
		return nil
	}
	keys := make([]string, len(sessionTokens))
	for i, t := range sessionTokens {
		keys[i] = c.prefix + t
	}
	return c.client.Del(ctx, keys...).Err()
}
