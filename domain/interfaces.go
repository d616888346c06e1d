package domain

import (
	"context"
	"time"
)

// UserRepository defines user data access operations against the persistent store
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByProvider(ctx context.Context, provider AuthProvider, providerID string) (*User, error)
	// Update persists identity and profile fields. Auth records are managed
	// through UpsertAuth and RemoveAuth only.
	Update(ctx context.Context, user *User) error
	// UpsertAuth replaces the record for auth.Provider, or appends it when the
	// user has none. At most one record per provider exists afterwards.
	UpsertAuth(ctx context.Context, userID string, auth UserAuth) error
	RemoveAuth(ctx context.Context, userID string, provider AuthProvider) error
	RecordLogin(ctx context.Context, userID string, at time.Time) error
}

// SessionRepository is the authoritative session store
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, sessionToken string) (*Session, error)
	FindByRefreshToken(ctx context.Context, refreshToken string) (*Session, error)
	FindByUser(ctx context.Context, userID string) ([]*Session, error)
	UpdateLastAccessed(ctx context.Context, sessionToken string, at time.Time) error
	// RotateRefreshToken swaps the refresh token only if the stored value still
	// equals previous. It returns ErrRefreshTokenReused when it does not.
	RotateRefreshToken(ctx context.Context, sessionToken, previous, next string, expiresAt time.Time) error
	Delete(ctx context.Context, sessionToken string) error
	DeleteMany(ctx context.Context, sessionTokens []string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionCache accelerates session reads. It is always safe to rebuild from
// the SessionRepository.
type SessionCache interface {
	Set(ctx context.Context, session *Session, ttl time.Duration) error
	Get(ctx context.Context, sessionToken string) (*Session, error)
	Delete(ctx context.Context, sessionTokens ...string) error
}

// ProfileCache holds sanitized user profiles keyed by user id
type ProfileCache interface {
	Get(ctx context.Context, userID string) (*User, bool, error)
	Set(ctx context.Context, user *User, ttl time.Duration) error
	Invalidate(ctx context.Context, userID string) error
}

// SessionStore manages the session lifecycle across the persistent store and the cache
type SessionStore interface {
	Create(ctx context.Context, userID string, device DeviceInfo) (*Session, WriteOutcome, error)
	Get(ctx context.Context, sessionToken string) (*Session, error)
	FindByRefreshToken(ctx context.Context, refreshToken string) (*Session, error)
	Touch(ctx context.Context, sessionToken string) WriteOutcome
	RotateRefresh(ctx context.Context, sessionToken, previousRefresh string) (*RefreshRotation, WriteOutcome, error)
	Revoke(ctx context.Context, sessionToken string) (WriteOutcome, error)
	RevokeAllForUser(ctx context.Context, userID string) (int, WriteOutcome, error)
	SweepExpired(ctx context.Context) (int64, error)
}

// OAuthStateStore keeps short-lived single-use OAuth state values
type OAuthStateStore interface {
	Issue(ctx context.Context, redirectURI string) (*IssuedOAuthState, error)
	// Consume validates and deletes the state. A non-empty redirectURI must
	// match the one recorded at issuance.
	Consume(ctx context.Context, state, redirectURI string) (*OAuthState, error)
}

// TransientTokenStore keeps short-lived opaque tokens such as password reset tokens
type TransientTokenStore interface {
	PutTransientToken(ctx context.Context, purpose, token, value string, ttl time.Duration) error
	GetTransientToken(ctx context.Context, purpose, token string) (string, bool, error)
	DeleteTransientToken(ctx context.Context, purpose, token string) error
	// ConsumeTransientToken reads and deletes the token atomically
	ConsumeTransientToken(ctx context.Context, purpose, token string) (string, bool, error)
}

// OAuthClient talks to the device-cloud OAuth provider
type OAuthClient interface {
	BuildAuthorizationURL(clientID, scope, state, redirectURI string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (*ProviderToken, error)
	RefreshProviderToken(ctx context.Context, refreshToken string) (*ProviderToken, error)
	FetchProfile(ctx context.Context, accessToken string) (*ProviderProfile, error)
	Revoke(ctx context.Context, accessToken string) error
}

// AuthService is the authentication façade used by transports
type AuthService interface {
	RegisterLocal(ctx context.Context, req RegisterRequest) (*AuthResult, error)
	LoginLocal(ctx context.Context, email, password string, device DeviceInfo) (*AuthResult, error)
	CompleteAuthentication(ctx context.Context, user *User, device DeviceInfo) (*AuthResult, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, sessionID string) error
	LogoutAll(ctx context.Context, userID string) (int, error)
	BeginOAuth(ctx context.Context, redirectURI string) (*OAuthAuthorization, error)
	HandleOAuthCallback(ctx context.Context, code, state, redirectURI string, device DeviceInfo) (*AuthResult, error)
	RefreshProviderTokenIfNeeded(ctx context.Context, userID string) (bool, error)
	DisconnectProvider(ctx context.Context, userID string) error
	GetCurrentUser(ctx context.Context, userID string) (*User, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string, device DeviceInfo) (*AuthResult, error)
}

// PasswordResetService runs the forgot/reset password flow
type PasswordResetService interface {
	RequestReset(ctx context.Context, email string) error
	ValidateResetToken(ctx context.Context, token string) (bool, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// PasswordService defines password operations
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
}

// TokenService defines bearer token operations
type TokenService interface {
	Sign(claims TokenClaims) (string, error)
	Validate(token string) TokenValidation
	GenerateOpaqueSecret(byteLen int) (string, error)
	AccessTTL() time.Duration
}

// NotificationService defines outbound notification operations
type NotificationService interface {
	SendSMS(ctx context.Context, to, message string) error
	SendEmail(ctx context.Context, to, subject, body string) error
}

// PolicyService defines authorization policy operations
type PolicyService interface {
	AddPolicy(role, resource, action string) error
	RemovePolicy(role, resource, action string) error
	CheckPermission(role, resource, action string) (bool, error)
	GetPolicies() [][]string
}

// CasbinEnforcer interface defines the methods we need from Casbin enforcer
type CasbinEnforcer interface {
	AddPolicy(params ...interface{}) (bool, error)
	RemovePolicy(params ...interface{}) (bool, error)
	Enforce(rvals ...interface{}) (bool, error)
	GetPolicy() ([][]string, error)
}
