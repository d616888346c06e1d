package mocks

import (
	"context"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
)

// MockAuthService implements domain.AuthService interface for testing
type MockAuthService struct {
	RegisterLocalFunc                func(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResult, error)
	LoginLocalFunc                   func(ctx context.Context, email, password string, device domain.DeviceInfo) (*domain.AuthResult, error)
	CompleteAuthenticationFunc       func(ctx context.Context, user *domain.User, device domain.DeviceInfo) (*domain.AuthResult, error)
	RefreshAccessTokenFunc           func(ctx context.Context, refreshToken string) (*domain.AuthResult, error)
	LogoutFunc                       func(ctx context.Context, sessionID string) error
	LogoutAllFunc                    func(ctx context.Context, userID string) (int, error)
	BeginOAuthFunc                   func(ctx context.Context, redirectURI string) (*domain.OAuthAuthorization, error)
	HandleOAuthCallbackFunc          func(ctx context.Context, code, state, redirectURI string, device domain.DeviceInfo) (*domain.AuthResult, error)
	RefreshProviderTokenIfNeededFunc func(ctx context.Context, userID string) (bool, error)
	DisconnectProviderFunc           func(ctx context.Context, userID string) error
	GetCurrentUserFunc               func(ctx context.Context, userID string) (*domain.User, error)
	ChangePasswordFunc               func(ctx context.Context, userID, currentPassword, newPassword string, device domain.DeviceInfo) (*domain.AuthResult, error)
}

// NewMockAuthService creates a new MockAuthService with default behaviors
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

func defaultAuthResult(email string) *domain.AuthResult {
	return &domain.AuthResult{
		User:         &domain.User{ID: "user-1", Email: email, Role: domain.RoleUser, IsActive: true},
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		SessionID:    "session-1",
		ExpiresIn:    900,
	}
}

// RegisterLocal registers a local account
func (m *MockAuthService) RegisterLocal(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResult, error) {
	if m.RegisterLocalFunc != nil {
		return m.RegisterLocalFunc(ctx, req)
	}
	return defaultAuthResult(req.Email), nil
}

// LoginLocal authenticates with email and password
func (m *MockAuthService) LoginLocal(ctx context.Context, email, password string, device domain.DeviceInfo) (*domain.AuthResult, error) {
	if m.LoginLocalFunc != nil {
		return m.LoginLocalFunc(ctx, email, password, device)
	}
	return defaultAuthResult(email), nil
}

// CompleteAuthentication opens a session for an authenticated user
func (m *MockAuthService) CompleteAuthentication(ctx context.Context, user *domain.User, device domain.DeviceInfo) (*domain.AuthResult, error) {
	if m.CompleteAuthenticationFunc != nil {
		return m.CompleteAuthenticationFunc(ctx, user, device)
	}
	return defaultAuthResult(user.Email), nil
}

// RefreshAccessToken rotates a refresh token
func (m *MockAuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	if m.RefreshAccessTokenFunc != nil {
		return m.RefreshAccessTokenFunc(ctx, refreshToken)
	}
	return nil, domain.ErrRefreshTokenInvalid
}

// Logout revokes a session
func (m *MockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, sessionID)
	}
	return nil
}

// LogoutAll revokes every session of a user
func (m *MockAuthService) LogoutAll(ctx context.Context, userID string) (int, error) {
	if m.LogoutAllFunc != nil {
		return m.LogoutAllFunc(ctx, userID)
	}
	return 0, nil
}

// BeginOAuth starts a provider login
func (m *MockAuthService) BeginOAuth(ctx context.Context, redirectURI string) (*domain.OAuthAuthorization, error) {
	if m.BeginOAuthFunc != nil {
		return m.BeginOAuthFunc(ctx, redirectURI)
	}
	return &domain.OAuthAuthorization{AuthURL: "https://provider.test/oauth/authorize", State: "state-1", RedirectURI: redirectURI}, nil
}

// HandleOAuthCallback completes a provider login
func (m *MockAuthService) HandleOAuthCallback(ctx context.Context, code, state, redirectURI string, device domain.DeviceInfo) (*domain.AuthResult, error) {
	if m.HandleOAuthCallbackFunc != nil {
		return m.HandleOAuthCallbackFunc(ctx, code, state, redirectURI, device)
	}
	return nil, domain.ErrInvalidOAuthState
}

// RefreshProviderTokenIfNeeded refreshes the provider token near expiry
func (m *MockAuthService) RefreshProviderTokenIfNeeded(ctx context.Context, userID string) (bool, error) {
	if m.RefreshProviderTokenIfNeededFunc != nil {
		return m.RefreshProviderTokenIfNeededFunc(ctx, userID)
	}
	return false, nil
}

// DisconnectProvider unlinks the provider account
func (m *MockAuthService) DisconnectProvider(ctx context.Context, userID string) error {
	if m.DisconnectProviderFunc != nil {
		return m.DisconnectProviderFunc(ctx, userID)
	}
	return nil
}

// GetCurrentUser returns the sanitized user
func (m *MockAuthService) GetCurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	if m.GetCurrentUserFunc != nil {
		return m.GetCurrentUserFunc(ctx, userID)
	}
	return &domain.User{ID: userID, Email: "test@example.com", Role: domain.RoleUser, IsActive: true}, nil
}

// ChangePassword replaces the local password
func (m *MockAuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string, device domain.DeviceInfo) (*domain.AuthResult, error) {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, userID, currentPassword, newPassword, device)
	}
	return defaultAuthResult("test@example.com"), nil
}

// Compile-time interface compliance verification
var _ domain.AuthService = (*MockAuthService)(nil)

// MockPasswordResetService implements domain.PasswordResetService interface for testing
type MockPasswordResetService struct {
	RequestResetFunc       func(ctx context.Context, email string) error
	ValidateResetTokenFunc func(ctx context.Context, token string) (bool, error)
	ResetPasswordFunc      func(ctx context.Context, token, newPassword string) error
}

// NewMockPasswordResetService creates a new MockPasswordResetService with default behaviors
func NewMockPasswordResetService() *MockPasswordResetService {
	return &MockPasswordResetService{}
}

// RequestReset starts a password reset
func (m *MockPasswordResetService) RequestReset(ctx context.Context, email string) error {
	if m.RequestResetFunc != nil {
		return m.RequestResetFunc(ctx, email)
	}
	return nil
}

// ValidateResetToken checks a reset token
func (m *MockPasswordResetService) ValidateResetToken(ctx context.Context, token string) (bool, error) {
	if m.ValidateResetTokenFunc != nil {
		return m.ValidateResetTokenFunc(ctx, token)
	}
	return false, nil
}

// ResetPassword completes a password reset
func (m *MockPasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, token, newPassword)
	}
	return domain.ErrResetTokenInvalid
}

// Compile-time interface compliance verification
var _ domain.PasswordResetService = (*MockPasswordResetService)(nil)
