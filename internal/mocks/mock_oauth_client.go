package mocks

import (
	"context"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
)

// MockOAuthClient implements domain.OAuthClient interface for testing.
// Network-facing methods count their calls.
type MockOAuthClient struct {
	BuildAuthorizationURLFunc func(clientID, scope, state, redirectURI string) string
	ExchangeCodeFunc          func(ctx context.Context, code, redirectURI string) (*domain.ProviderToken, error)
	RefreshProviderTokenFunc  func(ctx context.Context, refreshToken string) (*domain.ProviderToken, error)
	FetchProfileFunc          func(ctx context.Context, accessToken string) (*domain.ProviderProfile, error)
	RevokeFunc                func(ctx context.Context, accessToken string) error

	ExchangeCalls atomic.Int32
	RefreshCalls  atomic.Int32
	ProfileCalls  atomic.Int32
	RevokeCalls   atomic.Int32
}

// NewMockOAuthClient creates a new MockOAuthClient with default behaviors
func NewMockOAuthClient() *MockOAuthClient {
	return &MockOAuthClient{}
}

// NetworkCalls is the number of calls that would have reached the provider
func (m *MockOAuthClient) NetworkCalls() int32 {
	return m.ExchangeCalls.Load() + m.RefreshCalls.Load() + m.ProfileCalls.Load() + m.RevokeCalls.Load()
}

// BuildAuthorizationURL builds an authorization URL
func (m *MockOAuthClient) BuildAuthorizationURL(clientID, scope, state, redirectURI string) string {
	if m.BuildAuthorizationURLFunc != nil {
		return m.BuildAuthorizationURLFunc(clientID, scope, state, redirectURI)
	}
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("scope", scope)
	q.Set("state", state)
	q.Set("redirect_uri", redirectURI)
	return "https://provider.test/oauth/authorize?" + q.Encode()
}

// ExchangeCode exchanges an authorization code
func (m *MockOAuthClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*domain.ProviderToken, error) {
	m.ExchangeCalls.Add(1)
	if m.ExchangeCodeFunc != nil {
		return m.ExchangeCodeFunc(ctx, code, redirectURI)
	}
	return &domain.ProviderToken{
		AccessToken:  "provider-at",
		RefreshToken: "provider-rt",
		ExpiresIn:    7200,
		UID:          "tuya-uid-1",
		ExpiresAt:    time.Now().Add(2 * time.Hour).UTC(),
	}, nil
}

// RefreshProviderToken refreshes a provider token
func (m *MockOAuthClient) RefreshProviderToken(ctx context.Context, refreshToken string) (*domain.ProviderToken, error) {
	m.RefreshCalls.Add(1)
	if m.RefreshProviderTokenFunc != nil {
		return m.RefreshProviderTokenFunc(ctx, refreshToken)
	}
	return &domain.ProviderToken{
		AccessToken:  "provider-at-refreshed",
		RefreshToken: "provider-rt-refreshed",
		ExpiresIn:    7200,
		ExpiresAt:    time.Now().Add(2 * time.Hour).UTC(),
	}, nil
}

// FetchProfile fetches the provider profile
func (m *MockOAuthClient) FetchProfile(ctx context.Context, accessToken string) (*domain.ProviderProfile, error) {
	m.ProfileCalls.Add(1)
	if m.FetchProfileFunc != nil {
		return m.FetchProfileFunc(ctx, accessToken)
	}
	return &domain.ProviderProfile{UID: "tuya-uid-1", Email: "tuya@example.com", Nickname: "Solar Fan"}, nil
}

// Revoke revokes a provider token
func (m *MockOAuthClient) Revoke(ctx context.Context, accessToken string) error {
	m.RevokeCalls.Add(1)
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, accessToken)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.OAuthClient = (*MockOAuthClient)(nil)
