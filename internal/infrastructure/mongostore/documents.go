package mongostore

import (
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
)

// Collection names
const (
	UsersCollection    = "users"
	SessionsCollection = "user_sessions"
)

type authDocument struct {
	Provider       string     `bson:"provider"`
	ProviderID     string     `bson:"providerId"`
	AccessToken    string     `bson:"accessToken,omitempty"`
	RefreshToken   string     `bson:"refreshToken,omitempty"`
	TokenExpiresAt *time.Time `bson:"tokenExpiresAt,omitempty"`
	LastLoginAt    *time.Time `bson:"lastLoginAt,omitempty"`
}

type profileDocument struct {
	FirstName string `bson:"firstName,omitempty"`
	LastName  string `bson:"lastName,omitempty"`
	Phone     string `bson:"phone,omitempty"`
	AvatarURL string `bson:"avatarUrl,omitempty"`
	Timezone  string `bson:"timezone,omitempty"`
	Locale    string `bson:"locale,omitempty"`
}

// userDocument is the stored shape of a user. AuthVersion guards the auth
// array against lost updates between concurrent writers.
type userDocument struct {
	ID          string          `bson:"_id"`
	Email       string          `bson:"email"`
	DisplayName string          `bson:"displayName"`
	Role        string          `bson:"role"`
	IsActive    bool            `bson:"isActive"`
	IsSuspended bool            `bson:"isSuspended"`
	Auth        []authDocument  `bson:"auth"`
	AuthVersion int64           `bson:"authVersion"`
	Profile     profileDocument `bson:"profile"`
	LoginCount  int64           `bson:"loginCount"`
	LastLoginAt *time.Time      `bson:"lastLoginAt,omitempty"`
	CreatedAt   time.Time       `bson:"createdAt"`
	UpdatedAt   time.Time       `bson:"updatedAt"`
}

type sessionDocument struct {
	SessionToken   string     `bson:"sessionToken"`
	UserID         string     `bson:"userId"`
	RefreshToken   string     `bson:"refreshToken"`
	DeviceInfo     deviceInfo `bson:"deviceInfo"`
	ExpiresAt      time.Time  `bson:"expiresAt"`
	CreatedAt      time.Time  `bson:"createdAt"`
	LastAccessedAt time.Time  `bson:"lastAccessedAt"`
}

type deviceInfo struct {
	UserAgent string `bson:"userAgent,omitempty"`
	IPAddress string `bson:"ipAddress,omitempty"`
	Platform  string `bson:"platform,omitempty"`
}

func authToDocument(a domain.UserAuth) authDocument {
	return authDocument{
		Provider:       string(a.Provider),
		ProviderID:     a.ProviderID,
		AccessToken:    a.AccessToken,
		RefreshToken:   a.RefreshToken,
		TokenExpiresAt: utcPtr(a.TokenExpiresAt),
		LastLoginAt:    utcPtr(a.LastLoginAt),
	}
}

func userToDocument(u *domain.User) *userDocument {
	doc := &userDocument{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		IsActive:    u.IsActive,
		IsSuspended: u.IsSuspended,
		Auth:        make([]authDocument, 0, len(u.Auth)),
		Profile: profileDocument{
			FirstName: u.Profile.FirstName,
			LastName:  u.Profile.LastName,
			Phone:     u.Profile.Phone,
			AvatarURL: u.Profile.AvatarURL,
			Timezone:  u.Profile.Timezone,
			Locale:    u.Profile.Locale,
		},
		LoginCount:  u.LoginCount,
		LastLoginAt: utcPtr(u.LastLoginAt),
		CreatedAt:   u.CreatedAt.UTC(),
		UpdatedAt:   u.UpdatedAt.UTC(),
	}
	for _, a := range u.Auth {
		doc.Auth = append(doc.Auth, authToDocument(a))
	}
	return doc
}

func documentToUser(doc *userDocument) *domain.User {
	u := &domain.User{
		ID:          doc.ID,
		Email:       doc.Email,
		DisplayName: doc.DisplayName,
		Role:        doc.Role,
		IsActive:    doc.IsActive,
		IsSuspended: doc.IsSuspended,
		Profile: domain.UserProfile{
			FirstName: doc.Profile.FirstName,
			LastName:  doc.Profile.LastName,
			Phone:     doc.Profile.Phone,
			AvatarURL: doc.Profile.AvatarURL,
			Timezone:  doc.Profile.Timezone,
			Locale:    doc.Profile.Locale,
		},
		LoginCount:  doc.LoginCount,
		LastLoginAt: doc.LastLoginAt,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	for _, a := range doc.Auth {
		u.Auth = append(u.Auth, domain.UserAuth{
			Provider:       domain.AuthProvider(a.Provider),
			ProviderID:     a.ProviderID,
			AccessToken:    a.AccessToken,
			RefreshToken:   a.RefreshToken,
			TokenExpiresAt: a.TokenExpiresAt,
			LastLoginAt:    a.LastLoginAt,
		})
	}
	return u
}

// replaceAuth rebuilds the auth list with auth substituted for the element of
// the same provider, or appended when there is none.
func replaceAuth(current []authDocument, auth domain.UserAuth) []authDocument {
	next := make([]authDocument, 0, len(current)+1)
	replaced := false
	for _, a := range current {
		if a.Provider == string(auth.Provider) {
			if !replaced {
				next = append(next, authToDocument(auth))
				replaced = true
			}
			continue
		}
		next = append(next, a)
	}
	if !replaced {
		next = append(next, authToDocument(auth))
	}
	return next
}

func sessionToDocument(s *domain.Session) *sessionDocument {
	return &sessionDocument{
		SessionToken: s.SessionToken,
		UserID:       s.UserID,
		RefreshToken: s.RefreshToken,
		DeviceInfo: deviceInfo{
			UserAgent: s.DeviceInfo.UserAgent,
			IPAddress: s.DeviceInfo.IPAddress,
			Platform:  s.DeviceInfo.Platform,
		},
		ExpiresAt:      s.ExpiresAt.UTC(),
		CreatedAt:      s.CreatedAt.UTC(),
		LastAccessedAt: s.LastAccessedAt.UTC(),
	}
}

func documentToSession(doc *sessionDocument) *domain.Session {
	return &domain.Session{
		SessionToken: doc.SessionToken,
		UserID:       doc.UserID,
		RefreshToken: doc.RefreshToken,
		DeviceInfo: domain.DeviceInfo{
			UserAgent: doc.DeviceInfo.UserAgent,
			IPAddress: doc.DeviceInfo.IPAddress,
			Platform:  doc.DeviceInfo.Platform,
		},
		ExpiresAt:      doc.ExpiresAt,
		CreatedAt:      doc.CreatedAt,
		LastAccessedAt: doc.LastAccessedAt,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
