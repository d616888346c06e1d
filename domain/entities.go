package domain

import "time"

// AuthProvider identifies an identity provider a user can authenticate with
type AuthProvider string

const (
	ProviderLocal AuthProvider = "local"
	ProviderTuya  AuthProvider = "tuya"
)

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a platform account
type User struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	DisplayName string      `json:"displayName"`
	Role        string      `json:"role"`
	IsActive    bool        `json:"isActive"`
	IsSuspended bool        `json:"isSuspended"`
	Auth        []UserAuth  `json:"auth,omitempty"`
	Profile     UserProfile `json:"profile"`
	LoginCount  int64       `json:"loginCount"`
	LastLoginAt *time.Time  `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// UserProfile holds optional personal details
type UserProfile struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
	Locale    string `json:"locale,omitempty"`
}

// UserAuth is the credential record for one identity provider.
// For ProviderLocal, AccessToken holds the password hash.
type UserAuth struct {
	Provider       AuthProvider `json:"provider"`
	ProviderID     string       `json:"providerId"`
	AccessToken    string       `json:"-"`
	RefreshToken   string       `json:"-"`
	TokenExpiresAt *time.Time   `json:"tokenExpiresAt,omitempty"`
	LastLoginAt    *time.Time   `json:"lastLoginAt,omitempty"`
}

// AuthFor returns the auth record for provider, or nil
func (u *User) AuthFor(provider AuthProvider) *UserAuth {
	for i := range u.Auth {
		if u.Auth[i].Provider == provider {
			return &u.Auth[i]
		}
	}
	return nil
}

// CanAuthenticate reports whether the account may open new sessions
func (u *User) CanAuthenticate() bool {
	return u.IsActive && !u.IsSuspended
}

// Sanitized returns a copy of the user with every auth record stripped
func (u *User) Sanitized() *User {
	clone := *u
	clone.Auth = nil
	return &clone
}

// ConnectedProviders lists the providers the user has records for
func (u *User) ConnectedProviders() []AuthProvider {
	providers := make([]AuthProvider, 0, len(u.Auth))
	for _, a := range u.Auth {
		providers = append(providers, a.Provider)
	}
	return providers
}

// DeviceInfo describes the client a session was opened from
type DeviceInfo struct {
	UserAgent string `json:"userAgent,omitempty"`
	IPAddress string `json:"ipAddress,omitempty"`
	Platform  string `json:"platform,omitempty"`
}

// Session represents a server-side user session
type Session struct {
	SessionToken   string     `json:"sessionToken"`
	UserID         string     `json:"userId"`
	RefreshToken   string     `json:"refreshToken"`
	DeviceInfo     DeviceInfo `json:"deviceInfo"`
	ExpiresAt      time.Time  `json:"expiresAt"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastAccessedAt time.Time  `json:"lastAccessedAt"`
}

// IsExpired reports whether the session is past its expiry at the given instant
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// RemainingTTL is the lifetime left at the given instant
func (s *Session) RemainingTTL(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}

// RefreshRotation is the outcome of rotating a session's refresh token
type RefreshRotation struct {
	RefreshToken string
	ExpiresAt    time.Time
}

// WriteOutcome reports how a dual-store write went. A degraded outcome means the
// authoritative write succeeded but a best-effort cache operation did not.
type WriteOutcome struct {
	Degraded bool
	CacheErr error
}

// OAuthState binds an authorization request to its callback
type OAuthState struct {
	State       string    `json:"state"`
	RedirectURI string    `json:"redirectUri"`
	Nonce       string    `json:"nonce"`
	Timestamp   time.Time `json:"timestamp"`
}

// IssuedOAuthState is returned to the caller when a flow starts
type IssuedOAuthState struct {
	State string
	Nonce string
}

// OAuthAuthorization is the data a client needs to redirect the user to the provider
type OAuthAuthorization struct {
	AuthURL     string `json:"authUrl"`
	State       string `json:"state"`
	RedirectURI string `json:"redirectUri"`
}

// ProviderToken is the token set issued by the device-cloud provider
type ProviderToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	UID          string
	ExpiresAt    time.Time
}

// ProviderProfile is the identity the provider reports for an access token
type ProviderProfile struct {
	UID         string
	Email       string
	Username    string
	Nickname    string
	AvatarURL   string
	CountryCode string
	Timezone    string
}

// TokenClaims is the payload embedded in a bearer token
type TokenClaims struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// TokenValidation is the result of validating a bearer token. Exactly one of
// Valid or Expired is true unless the token is malformed or tampered, in which
// case both are false and Err describes the failure.
type TokenValidation struct {
	Valid   bool
	Expired bool
	Claims  *TokenClaims
	Err     error
}

// AuthResult represents a completed authentication
type AuthResult struct {
	User         *User
	AccessToken  string
	RefreshToken string
	SessionID    string
	ExpiresIn    int64
}

// RegisterRequest carries local registration input
type RegisterRequest struct {
	Email       string
	Password    string
	DisplayName string
	Profile     UserProfile
	Device      DeviceInfo
}
