package mocks

import (
	"context"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
)

// MockSessionStore implements domain.SessionStore interface for testing
type MockSessionStore struct {
	CreateFunc             func(ctx context.Context, userID string, device domain.DeviceInfo) (*domain.Session, domain.WriteOutcome, error)
	GetFunc                func(ctx context.Context, sessionToken string) (*domain.Session, error)
	FindByRefreshTokenFunc func(ctx context.Context, refreshToken string) (*domain.Session, error)
	TouchFunc              func(ctx context.Context, sessionToken string) domain.WriteOutcome
	RotateRefreshFunc      func(ctx context.Context, sessionToken, previousRefresh string) (*domain.RefreshRotation, domain.WriteOutcome, error)
	RevokeFunc             func(ctx context.Context, sessionToken string) (domain.WriteOutcome, error)
	RevokeAllForUserFunc   func(ctx context.Context, userID string) (int, domain.WriteOutcome, error)
	SweepExpiredFunc       func(ctx context.Context) (int64, error)
}

// NewMockSessionStore creates a new MockSessionStore with default behaviors
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{}
}

// Create opens a session
func (m *MockSessionStore) Create(ctx context.Context, userID string, device domain.DeviceInfo) (*domain.Session, domain.WriteOutcome, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID, device)
	}
	return &domain.Session{SessionToken: "session-1", UserID: userID, RefreshToken: "refresh-1", DeviceInfo: device}, domain.WriteOutcome{}, nil
}

// Get reads a session
func (m *MockSessionStore) Get(ctx context.Context, sessionToken string) (*domain.Session, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, sessionToken)
	}
	return nil, domain.ErrSessionNotFound
}

// FindByRefreshToken reads a session by refresh token
func (m *MockSessionStore) FindByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if m.FindByRefreshTokenFunc != nil {
		return m.FindByRefreshTokenFunc(ctx, refreshToken)
	}
	return nil, domain.ErrSessionNotFound
}

// Touch records activity
func (m *MockSessionStore) Touch(ctx context.Context, sessionToken string) domain.WriteOutcome {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, sessionToken)
	}
	return domain.WriteOutcome{}
}

// RotateRefresh rotates the refresh token
func (m *MockSessionStore) RotateRefresh(ctx context.Context, sessionToken, previousRefresh string) (*domain.RefreshRotation, domain.WriteOutcome, error) {
	if m.RotateRefreshFunc != nil {
		return m.RotateRefreshFunc(ctx, sessionToken, previousRefresh)
	}
	return &domain.RefreshRotation{RefreshToken: previousRefresh + "-next"}, domain.WriteOutcome{}, nil
}

// Revoke revokes a session
func (m *MockSessionStore) Revoke(ctx context.Context, sessionToken string) (domain.WriteOutcome, error) {
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, sessionToken)
	}
	return domain.WriteOutcome{}, nil
}

// RevokeAllForUser revokes every session of a user
func (m *MockSessionStore) RevokeAllForUser(ctx context.Context, userID string) (int, domain.WriteOutcome, error) {
	if m.RevokeAllForUserFunc != nil {
		return m.RevokeAllForUserFunc(ctx, userID)
	}
	return 0, domain.WriteOutcome{}, nil
}

// SweepExpired removes expired sessions
func (m *MockSessionStore) SweepExpired(ctx context.Context) (int64, error) {
	if m.SweepExpiredFunc != nil {
		return m.SweepExpiredFunc(ctx)
	}
	return 0, nil
}

// Compile-time interface compliance verification
var _ domain.SessionStore = (*MockSessionStore)(nil)
