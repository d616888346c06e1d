package mocks

import (
	"context"
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
)

// MockSessionCache implements domain.SessionCache interface for testing
type MockSessionCache struct {
	SetFunc    func(ctx context.Context, session *domain.Session, ttl time.Duration) error
	GetFunc    func(ctx context.Context, sessionToken string) (*domain.Session, error)
	DeleteFunc func(ctx context.Context, sessionTokens ...string) error
}

// NewMockSessionCache creates a new MockSessionCache with default behaviors
func NewMockSessionCache() *MockSessionCache {
	return &MockSessionCache{}
}

// Set caches a session
func (m *MockSessionCache) Set(ctx context.Context, session *domain.Session, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, session, ttl)
	}
	return nil
}

// Get reads a cached session; the default is always a miss
func (m *MockSessionCache) Get(ctx context.Context, sessionToken string) (*domain.Session, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, sessionToken)
	}
	return nil, domain.ErrSessionNotFound
}

// Delete evicts sessions
func (m *MockSessionCache) Delete(ctx context.Context, sessionTokens ...string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, sessionTokens...)
	}
	return nil
}

// MockProfileCache implements domain.ProfileCache interface for testing
type MockProfileCache struct {
	GetFunc        func(ctx context.Context, userID string) (*domain.User, bool, error)
	SetFunc        func(ctx context.Context, user *domain.User, ttl time.Duration) error
	InvalidateFunc func(ctx context.Context, userID string) error
}

// NewMockProfileCache creates a new MockProfileCache with default behaviors
func NewMockProfileCache() *MockProfileCache {
	return &MockProfileCache{}
}

// Get reads a cached profile; the default is always a miss
func (m *MockProfileCache) Get(ctx context.Context, userID string) (*domain.User, bool, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID)
	}
	return nil, false, nil
}

// Set caches a profile
func (m *MockProfileCache) Set(ctx context.Context, user *domain.User, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, user, ttl)
	}
	return nil
}

// Invalidate evicts a profile
func (m *MockProfileCache) Invalidate(ctx context.Context, userID string) error {
	if m.InvalidateFunc != nil {
		return m.InvalidateFunc(ctx, userID)
	}
	return nil
}

// MockOAuthStateStore implements domain.OAuthStateStore interface for testing
type MockOAuthStateStore struct {
	IssueFunc   func(ctx context.Context, redirectURI string) (*domain.IssuedOAuthState, error)
	ConsumeFunc func(ctx context.Context, state, redirectURI string) (*domain.OAuthState, error)
}

// NewMockOAuthStateStore creates a new MockOAuthStateStore with default behaviors
func NewMockOAuthStateStore() *MockOAuthStateStore {
	return &MockOAuthStateStore{}
}

// Issue issues a state
func (m *MockOAuthStateStore) Issue(ctx context.Context, redirectURI string) (*domain.IssuedOAuthState, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, redirectURI)
	}
	return &domain.IssuedOAuthState{State: "state-1", Nonce: "nonce-1"}, nil
}

// Consume consumes a state; the default rejects every state
func (m *MockOAuthStateStore) Consume(ctx context.Context, state, redirectURI string) (*domain.OAuthState, error) {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, state, redirectURI)
	}
	return nil, domain.ErrInvalidOAuthState
}

// MockTransientTokenStore implements domain.TransientTokenStore interface for testing
type MockTransientTokenStore struct {
	PutFunc     func(ctx context.Context, purpose, token, value string, ttl time.Duration) error
	GetFunc     func(ctx context.Context, purpose, token string) (string, bool, error)
	DeleteFunc  func(ctx context.Context, purpose, token string) error
	ConsumeFunc func(ctx context.Context, purpose, token string) (string, bool, error)
}

// NewMockTransientTokenStore creates a new MockTransientTokenStore with default behaviors
func NewMockTransientTokenStore() *MockTransientTokenStore {
	return &MockTransientTokenStore{}
}

// PutTransientToken stores a token
func (m *MockTransientTokenStore) PutTransientToken(ctx context.Context, purpose, token, value string, ttl time.Duration) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, purpose, token, value, ttl)
	}
	return nil
}

// GetTransientToken reads a token
func (m *MockTransientTokenStore) GetTransientToken(ctx context.Context, purpose, token string) (string, bool, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, purpose, token)
	}
	return "", false, nil
}

// DeleteTransientToken deletes a token
func (m *MockTransientTokenStore) DeleteTransientToken(ctx context.Context, purpose, token string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, purpose, token)
	}
	return nil
}

// ConsumeTransientToken reads and deletes a token
func (m *MockTransientTokenStore) ConsumeTransientToken(ctx context.Context, purpose, token string) (string, bool, error) {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, purpose, token)
	}
	return "", false, nil
}

// Compile-time interface compliance verification
var (
	_ domain.SessionCache        = (*MockSessionCache)(nil)
	_ domain.ProfileCache        = (*MockProfileCache)(nil)
	_ domain.OAuthStateStore     = (*MockOAuthStateStore)(nil)
	_ domain.TransientTokenStore = (*MockTransientTokenStore)(nil)
)
