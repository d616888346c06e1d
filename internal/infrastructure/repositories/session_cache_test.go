package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCacheImpl_SetAndGet(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewSessionCache(client)
	ctx := context.Background()

	session := newTestSession("sess-1", "user-1", "refresh-1", time.Hour)
	require.NoError(t, cache.Set(ctx, session, 30*time.Minute))

	ttl := client.TTL(ctx, "session:sess-1").Val()
	assert.True(t, ttl > 29*time.Minute && ttl <= 30*time.Minute, "unexpected ttl %v", ttl)

	got, err := cache.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "refresh-1", got.RefreshToken)
	assert.True(t, got.ExpiresAt.Equal(session.ExpiresAt))
}

func TestSessionCacheImpl_Miss(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewSessionCache(client)

	_, err := cache.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionCacheImpl_TTLExpiry(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewSessionCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, newTestSession("sess-1", "user-1", "r", time.Second), time.Second))
	mr.FastForward(2 * time.Second)

	_, err := cache.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionCacheImpl_RejectsNonPositiveTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewSessionCache(client)

	err := cache.Set(context.Background(), newTestSession("sess-1", "user-1", "r", -time.Second), 0)
	assert.Error(t, err)
	assert.False(t, mr.Exists("session:sess-1"))
}

func TestSessionCacheImpl_Delete(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewSessionCache(client)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, cache.Set(ctx, newTestSession(id, "user-1", "r"+id, time.Hour), time.Hour))
	}

	require.NoError(t, cache.Delete(ctx, "a", "b"))
	require.NoError(t, cache.Delete(ctx))
	require.NoError(t, cache.Delete(ctx, "missing"))

	assert.False(t, mr.Exists("session:a"))
	assert.False(t, mr.Exists("session:b"))
	assert.True(t, mr.Exists("session:c"))
}

func TestProfileCacheImpl(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewProfileCache(client)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)

	user := newLocalUser("a@b.com")
	user.ID = "user-1"
	require.NoError(t, cache.Set(ctx, user, 5*time.Minute))

	raw, err := mr.Get("user:profile:user-1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "$2a$04$hash", "credentials never reach the cache")

	got, ok, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a@b.com", got.Email)
	assert.Nil(t, got.Auth)

	require.NoError(t, cache.Invalidate(ctx, "user-1"))
	_, ok, err = cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
