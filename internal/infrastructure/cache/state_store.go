package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/infrastructure/auth"
	"github.com/redis/go-redis/v9"
)

const (
	// StateKeyPrefix prefixes OAuth state records: oauth:state:<state>
	StateKeyPrefix = "oauth:state:"
	// StateTTL bounds the lifetime of an issued state
	StateTTL = 10 * time.Minute

	stateBytes = 32
	nonceBytes = 16
)

// RedisStateStore implements domain.OAuthStateStore backed by Redis
type RedisStateStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	now    func() time.Time
}

var _ domain.OAuthStateStore = (*RedisStateStore)(nil)

// NewRedisStateStore constructs a Redis-backed state store
func NewRedisStateStore(client redis.UniversalClient) *RedisStateStore {
	return &RedisStateStore{client: client, ttl: StateTTL, now: time.Now}
}

// Issue stores a fresh state with a ten minute TTL
func (s *RedisStateStore) Issue(ctx context.Context, redirectURI string) (*domain.IssuedOAuthState, error) {
	state, err := auth.GenerateOpaqueSecret(stateBytes)
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}
	nonce, err := auth.GenerateOpaqueSecret(nonceBytes)
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	payload, err := json.Marshal(domain.OAuthState{
		State:       state,
		RedirectURI: redirectURI,
		Nonce:       nonce,
		Timestamp:   s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	if err := s.client.Set(ctx, StateKeyPrefix+state, payload, s.ttl).Err(); err != nil {
		return nil, domain.NewStorageError("oauth state issue", err)
	}

	return &domain.IssuedOAuthState{State: state, Nonce: nonce}, nil
}

// Consume atomically reads and deletes the state, so a second call for the
// same value always fails.
func (s *RedisStateStore) Consume(ctx context.Context, state, redirectURI string) (*domain.OAuthState, error) {
	if state == "" {
		return nil, domain.ErrInvalidOAuthState
	}

	data, err := s.client.GetDel(ctx, StateKeyPrefix+state).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrInvalidOAuthState
		}
		return nil, domain.NewStorageError("oauth state consume", err)
	}

	var stored domain.OAuthState
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, domain.ErrInvalidOAuthState.Wrap(err)
	}

	if s.now().Sub(stored.Timestamp) > s.ttl {
		return nil, domain.ErrInvalidOAuthState
	}
	if redirectURI != "" && redirectURI != stored.RedirectURI {
		return nil, domain.ErrRedirectURIMismatch
	}

	return &stored, nil
}
