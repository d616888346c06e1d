package mocks

import (
	"context"
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
)

// MockSessionRepository implements domain.SessionRepository interface for testing
type MockSessionRepository struct {
	CreateFunc             func(ctx context.Context, session *domain.Session) error
	FindByIDFunc           func(ctx context.Context, sessionToken string) (*domain.Session, error)
	FindByRefreshTokenFunc func(ctx context.Context, refreshToken string) (*domain.Session, error)
	FindByUserFunc         func(ctx context.Context, userID string) ([]*domain.Session, error)
	UpdateLastAccessedFunc func(ctx context.Context, sessionToken string, at time.Time) error
	RotateRefreshTokenFunc func(ctx context.Context, sessionToken, previous, next string, expiresAt time.Time) error
	DeleteFunc             func(ctx context.Context, sessionToken string) error
	DeleteManyFunc         func(ctx context.Context, sessionTokens []string) error
	DeleteExpiredFunc      func(ctx context.Context, now time.Time) (int64, error)
}

// NewMockSessionRepository creates a new MockSessionRepository with default behaviors
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{}
}

// Create creates a new session
func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	// Default behavior: success
	return nil
}

// FindByID finds a session by token
func (m *MockSessionRepository) FindByID(ctx context.Context, sessionToken string) (*domain.Session, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, sessionToken)
	}
	// Default behavior: not found
	return nil, domain.ErrSessionNotFound
}

// FindByRefreshToken finds a session by refresh token
func (m *MockSessionRepository) FindByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if m.FindByRefreshTokenFunc != nil {
		return m.FindByRefreshTokenFunc(ctx, refreshToken)
	}
	return nil, domain.ErrSessionNotFound
}

// FindByUser lists a user's sessions
func (m *MockSessionRepository) FindByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	if m.FindByUserFunc != nil {
		return m.FindByUserFunc(ctx, userID)
	}
	return nil, nil
}

// UpdateLastAccessed records session activity
func (m *MockSessionRepository) UpdateLastAccessed(ctx context.Context, sessionToken string, at time.Time) error {
	if m.UpdateLastAccessedFunc != nil {
		return m.UpdateLastAccessedFunc(ctx, sessionToken, at)
	}
	return nil
}

// RotateRefreshToken swaps the refresh token
func (m *MockSessionRepository) RotateRefreshToken(ctx context.Context, sessionToken, previous, next string, expiresAt time.Time) error {
	if m.RotateRefreshTokenFunc != nil {
		return m.RotateRefreshTokenFunc(ctx, sessionToken, previous, next, expiresAt)
	}
	return nil
}

// Delete deletes a session by token
func (m *MockSessionRepository) Delete(ctx context.Context, sessionToken string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, sessionToken)
	}
	// Default behavior: success
	return nil
}

// DeleteMany deletes several sessions
func (m *MockSessionRepository) DeleteMany(ctx context.Context, sessionTokens []string) error {
	if m.DeleteManyFunc != nil {
		return m.DeleteManyFunc(ctx, sessionTokens)
	}
	return nil
}

// DeleteExpired deletes all expired sessions
func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx, now)
	}
	return 0, nil
}

// Compile-time interface compliance verification
var _ domain.SessionRepository = (*MockSessionRepository)(nil)
