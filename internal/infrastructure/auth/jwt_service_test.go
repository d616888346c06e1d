package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-at-least-32-bytes-long"

func newTestJWTService(ttl time.Duration, now func() time.Time) *JWTServiceImpl {
	svc := NewJWTService(testSecret, "maestro-auth", "maestro-api", ttl).(*JWTServiceImpl)
	if now != nil {
		svc.now = now
	}
	return svc
}

func testClaims() domain.TokenClaims {
	return domain.TokenClaims{
		UserID:    "user-123",
		SessionID: "sess-abc",
		Email:     "a@b.com",
		Role:      domain.RoleUser,
	}
}

func TestJWTServiceImpl_SignAndValidate(t *testing.T) {
	svc := newTestJWTService(15*time.Minute, nil)

	token, err := svc.Sign(testClaims())
	require.NoError(t, err)

	result := svc.Validate(token)
	require.True(t, result.Valid)
	assert.False(t, result.Expired)
	assert.NoError(t, result.Err)
	require.NotNil(t, result.Claims)

	assert.Equal(t, "user-123", result.Claims.UserID)
	assert.Equal(t, "sess-abc", result.Claims.SessionID)
	assert.Equal(t, "a@b.com", result.Claims.Email)
	assert.Equal(t, domain.RoleUser, result.Claims.Role)
	assert.Equal(t, int64(15*60), result.Claims.ExpiresAt-result.Claims.IssuedAt)
}

func TestJWTServiceImpl_ExpiredToken(t *testing.T) {
	issued := time.Now()
	ttl := 15 * time.Minute
	clock := issued
	svc := newTestJWTService(ttl, func() time.Time { return clock })

	token, err := svc.Sign(testClaims())
	require.NoError(t, err)

	clock = issued.Add(ttl + time.Second)
	result := svc.Validate(token)

	assert.False(t, result.Valid)
	assert.True(t, result.Expired)
	assert.ErrorIs(t, result.Err, domain.ErrTokenExpired)
	require.NotNil(t, result.Claims)
	assert.Equal(t, "sess-abc", result.Claims.SessionID)
}

func TestJWTServiceImpl_InvalidTokens(t *testing.T) {
	svc := newTestJWTService(15*time.Minute, nil)
	token, err := svc.Sign(testClaims())
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	otherSecret := NewJWTService("another-secret-that-is-at-least-32-bytes", "maestro-auth", "maestro-api", time.Minute)
	foreign, err := otherSecret.Sign(testClaims())
	require.NoError(t, err)

	otherIssuer := NewJWTService(testSecret, "someone-else", "maestro-api", time.Minute)
	wrongIssuer, err := otherIssuer.Sign(testClaims())
	require.NoError(t, err)

	otherAudience := NewJWTService(testSecret, "maestro-auth", "another-api", time.Minute)
	wrongAudience, err := otherAudience.Sign(testClaims())
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"tampered payload", parts[0] + "." + parts[1] + "x." + parts[2]},
		{"tampered signature", parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))},
		{"signed with another secret", foreign},
		{"wrong issuer", wrongIssuer},
		{"wrong audience", wrongAudience},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := svc.Validate(tt.token)
			assert.False(t, result.Valid)
			assert.False(t, result.Expired)
			assert.Error(t, result.Err)
			assert.Equal(t, domain.KindAuthentication, domain.KindOf(result.Err))
		})
	}
}

func TestJWTServiceImpl_ExpiredWithWrongIssuerIsInvalid(t *testing.T) {
	issued := time.Now()
	clock := issued
	other := NewJWTService(testSecret, "someone-else", "maestro-api", time.Minute).(*JWTServiceImpl)
	other.now = func() time.Time { return clock }
	token, err := other.Sign(testClaims())
	require.NoError(t, err)

	svc := newTestJWTService(time.Minute, func() time.Time { return issued.Add(time.Hour) })
	result := svc.Validate(token)

	assert.False(t, result.Valid)
	assert.False(t, result.Expired)
}

func TestJWTServiceImpl_MissingSession(t *testing.T) {
	svc := newTestJWTService(time.Minute, nil)
	claims := testClaims()
	claims.SessionID = ""

	token, err := svc.Sign(claims)
	require.NoError(t, err)

	result := svc.Validate(token)
	assert.False(t, result.Valid)
	assert.ErrorIs(t, result.Err, domain.ErrTokenMalformed)
}

func TestJWTServiceImpl_TokensAreUnique(t *testing.T) {
	svc := newTestJWTService(time.Minute, nil)

	t1, err := svc.Sign(testClaims())
	require.NoError(t, err)
	t2, err := svc.Sign(testClaims())
	require.NoError(t, err)

	assert.NotEqual(t, t1, t2)
}

func TestGenerateOpaqueSecret(t *testing.T) {
	a, err := GenerateOpaqueSecret(32)
	require.NoError(t, err)
	b, err := GenerateOpaqueSecret(32)
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)

	_, err = GenerateOpaqueSecret(0)
	assert.Error(t, err)
}
